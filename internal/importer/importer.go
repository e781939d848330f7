// Package importer loads coverage values from a YAML file into the store.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scholarslab/nlfeatures/internal/coverage"
	"github.com/scholarslab/nlfeatures/internal/geo"
	"github.com/scholarslab/nlfeatures/internal/model"
)

// File is the import document.
type File struct {
	Items []Item `yaml:"items"`
}

// Item is one item and its coverage values.
type Item struct {
	ID       int64   `yaml:"id"`
	Coverage []Entry `yaml:"coverage"`
}

// Entry is one coverage value. Omitted geometry and viewport fields are
// read from the text's header line.
type Entry struct {
	HTML                bool `yaml:"html"`
	model.FeatureParams `yaml:",inline"`
}

// Load reads and parses an import file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	for _, it := range f.Items {
		if it.ID <= 0 {
			return nil, fmt.Errorf("item %d: %w", it.ID, model.ErrInvalidItem)
		}
	}
	return &f, nil
}

// Store is the part of the feature store an import writes to.
type Store interface {
	ReplaceCoverage(ctx context.Context, itemID int64, texts []model.ElementText, params []model.FeatureParams) ([]model.Feature, error)
}

// Summary counts what an import wrote.
type Summary struct {
	Items    int
	Texts    int
	Features int
}

// Importer replaces each item's coverage values and features.
type Importer struct {
	store        Store
	elementID    int64
	recordTypeID int64
	logger       *slog.Logger
}

// NewImporter returns an importer writing Coverage values with the given
// element and record type ids.
func NewImporter(store Store, elementID, recordTypeID int64, logger *slog.Logger) *Importer {
	return &Importer{
		store:        store,
		elementID:    elementID,
		recordTypeID: recordTypeID,
		logger:       logger,
	}
}

// Run imports every item in f. It stops at the first failing item.
func (im *Importer) Run(ctx context.Context, f *File) (Summary, error) {
	var sum Summary
	for _, it := range f.Items {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		texts, features, err := im.importItem(ctx, it)
		if err != nil {
			return sum, fmt.Errorf("importing item %d: %w", it.ID, err)
		}
		sum.Items++
		sum.Texts += texts
		sum.Features += features
	}
	return sum, nil
}

// importItem validates every entry before writing, so a bad entry leaves
// the item's stored values untouched.
func (im *Importer) importItem(ctx context.Context, it Item) (int, int, error) {
	texts := make([]model.ElementText, 0, len(it.Coverage))
	params := make([]model.FeatureParams, 0, len(it.Coverage))
	for _, e := range it.Coverage {
		p := EntryParams(e)
		if err := p.Validate(); err != nil {
			return 0, 0, err
		}
		params = append(params, p)

		itemID := it.ID
		texts = append(texts, model.ElementText{
			RecordID:     &itemID,
			RecordTypeID: im.recordTypeID,
			ElementID:    im.elementID,
			HTML:         e.HTML,
			Text:         e.Text,
		})

		im.logger.Debug("coverage value",
			"item_id", it.ID,
			"html", e.HTML,
			"pattern", coverage.NewSearchKey(e.Text).Pattern(),
		)
	}

	features, err := im.store.ReplaceCoverage(ctx, it.ID, texts, params)
	if err != nil {
		return 0, 0, err
	}
	im.logger.Info("imported item", "item_id", it.ID, "texts", len(texts), "features", len(features))
	return len(texts), len(features), nil
}

// EntryParams merges an entry's explicit fields over its header line. A
// header geometry is only used when it parses as KML or WKT.
func EntryParams(e Entry) model.FeatureParams {
	h := coverage.ParseHeader(coverage.SplitLines(e.Text)[0])
	fromHeader := h.Params(e.Text)
	if fromHeader.Geo != nil && !geo.IsKML(*fromHeader.Geo) && !geo.IsWKT(*fromHeader.Geo) {
		fromHeader.Geo = nil
	}

	p := e.FeatureParams
	if p.Geo == nil {
		p.Geo = fromHeader.Geo
	}
	if p.Zoom == nil {
		p.Zoom = fromHeader.Zoom
	}
	if p.CenterLon == nil {
		p.CenterLon = fromHeader.CenterLon
	}
	if p.CenterLat == nil {
		p.CenterLat = fromHeader.CenterLat
	}
	if p.BaseLayer == nil {
		p.BaseLayer = fromHeader.BaseLayer
	}
	if p.MapOn == nil && p.Geo != nil {
		on := true
		p.MapOn = &on
	}
	return p
}
