package model

import (
	"context"
	"time"
)

// ElementText is a stored metadata value. For coverage fields it holds the
// legacy text: a pipe-delimited geometry header followed by free text.
type ElementText struct {
	ID           *int64 `json:"id,omitempty"`        // nil for values that have not been saved
	RecordID     *int64 `json:"record_id,omitempty"` // owning item; nil when the value has no record yet
	RecordTypeID int64  `json:"record_type_id"`
	ElementID    int64  `json:"element_id"`
	HTML         bool   `json:"html"`
	Text         string `json:"text"`
}

// Feature is the geometry and map viewport attached to one coverage value.
type Feature struct {
	ID            int64     `json:"id"` // zero until saved
	Added         time.Time `json:"added"`
	ItemID        int64     `json:"item_id"`
	ElementTextID *int64    `json:"element_text_id"`
	IsMap         bool      `json:"is_map"`
	Geo           string    `json:"geo"` // KML document, or pipe-separated WKT in older rows
	Zoom          int       `json:"zoom"`
	CenterLon     float64   `json:"center_lon"`
	CenterLat     float64   `json:"center_lat"`
	BaseLayer     string    `json:"base_layer"`
}

// Saved reports whether the feature has a database row.
func (f Feature) Saved() bool { return f.ID != 0 }

// FeatureParams is the submitted form data for one coverage value. Nil
// fields fall back to Defaults.
type FeatureParams struct {
	Text      string   `json:"text" yaml:"text"`
	MapOn     *bool    `json:"mapon,omitempty" yaml:"mapon"`
	Geo       *string  `json:"geo,omitempty" yaml:"geo"`
	Zoom      *int     `json:"zoom,omitempty" yaml:"zoom"`
	CenterLon *float64 `json:"center_lon,omitempty" yaml:"center_lon"`
	CenterLat *float64 `json:"center_lat,omitempty" yaml:"center_lat"`
	BaseLayer *string  `json:"base_layer,omitempty" yaml:"base_layer"`
}

// Defaults holds the values used for missing FeatureParams fields.
type Defaults struct {
	Zoom      int
	CenterLon float64
	CenterLat float64
	BaseLayer string
}

// DefaultDefaults matches the map widget's initial viewport.
var DefaultDefaults = Defaults{Zoom: 3, BaseLayer: "osm"}

// Resolve fills missing fields from d and returns the feature row values.
func (p FeatureParams) Resolve(d Defaults) Feature {
	f := Feature{
		Zoom:      d.Zoom,
		CenterLon: d.CenterLon,
		CenterLat: d.CenterLat,
		BaseLayer: d.BaseLayer,
	}
	if p.MapOn != nil {
		f.IsMap = *p.MapOn
	}
	if p.Geo != nil {
		f.Geo = *p.Geo
	}
	if p.Zoom != nil {
		f.Zoom = *p.Zoom
	}
	if p.CenterLon != nil {
		f.CenterLon = *p.CenterLon
	}
	if p.CenterLat != nil {
		f.CenterLat = *p.CenterLat
	}
	if p.BaseLayer != nil {
		f.BaseLayer = *p.BaseLayer
	}
	return f
}

// Validate rejects params that cannot describe a map viewport.
func (p FeatureParams) Validate() error {
	if p.Zoom != nil && (*p.Zoom < 0 || *p.Zoom > MaxZoom) {
		return &ParamError{Field: "zoom", Value: *p.Zoom, Err: ErrOutOfRange}
	}
	if p.CenterLon != nil && (*p.CenterLon < -180 || *p.CenterLon > 180) {
		return &ParamError{Field: "center_lon", Value: *p.CenterLon, Err: ErrOutOfRange}
	}
	if p.CenterLat != nil && (*p.CenterLat < -90 || *p.CenterLat > 90) {
		return &ParamError{Field: "center_lat", Value: *p.CenterLat, Err: ErrOutOfRange}
	}
	return nil
}

// MaxZoom is the deepest zoom level the base layers serve.
const MaxZoom = 24

// ItemSummary counts the coverage values and features stored for an item.
type ItemSummary struct {
	ID          int64 `json:"id"`
	Texts       int   `json:"texts"`
	Features    int   `json:"features"`
	MapFeatures int   `json:"map_features"` // features shown on the map
}

// Lookup is the result of searching for the feature of an element text:
// either Found or NotFound.
type Lookup interface {
	lookup()
}

// Found carries the matched feature.
type Found struct {
	Feature Feature
}

// NotFound means no stored feature matched.
type NotFound struct{}

func (Found) lookup()    {}
func (NotFound) lookup() {}

// FeatureStore persists features and the element texts they belong to.
type FeatureStore interface {
	AddElementText(ctx context.Context, et ElementText) (ElementText, error)
	RemoveElementTexts(ctx context.Context, itemID, elementID int64) error
	ElementText(ctx context.Context, id int64) (ElementText, error)
	ItemElementTexts(ctx context.Context, itemID int64) ([]ElementText, error)
	FindByElementText(ctx context.Context, et ElementText) (Lookup, error)
	CreateOrGet(ctx context.Context, itemID int64, et ElementText) (Feature, error)
	ItemFeatures(ctx context.Context, itemID int64) ([]Feature, error)
	RemoveItemFeatures(ctx context.Context, itemID int64) error
	CreateFeatures(ctx context.Context, itemID int64, params []FeatureParams) ([]Feature, error)
	UpdateFeatures(ctx context.Context, itemID int64, params []FeatureParams) ([]Feature, error)
	ReplaceCoverage(ctx context.Context, itemID int64, texts []ElementText, params []FeatureParams) ([]Feature, error)
	Items(ctx context.Context) ([]ItemSummary, error)
}

// FeatureFilter decides whether a feature should be shown.
type FeatureFilter interface {
	Match(f Feature) bool
}
