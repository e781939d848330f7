package store

import (
	"context"

	"github.com/scholarslab/nlfeatures/internal/model"
)

// NopStore is a no-op store used by dry-run imports. Nothing is written and
// no features are created.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) ReplaceCoverage(ctx context.Context, itemID int64, texts []model.ElementText, params []model.FeatureParams) ([]model.Feature, error) {
	return nil, nil
}
