package filter

import (
	"strings"

	"github.com/scholarslab/nlfeatures/internal/model"
)

// Ensure MapAndLayerFilter implements model.FeatureFilter.
var _ model.FeatureFilter = (*MapAndLayerFilter)(nil)

// MapAndLayerFilter matches features that are shown on a map (when mapOnly
// is set) and whose base layer is one of the given layers. Layer matching is
// case-insensitive. An empty layer list matches all layers.
type MapAndLayerFilter struct {
	mapOnly    bool
	baseLayers []string
}

// NewMapAndLayerFilter returns a filter over the map flag and base layer.
func NewMapAndLayerFilter(mapOnly bool, baseLayers []string) *MapAndLayerFilter {
	var layers []string
	for _, l := range baseLayers {
		if l = strings.TrimSpace(l); l != "" {
			layers = append(layers, l)
		}
	}
	return &MapAndLayerFilter{
		mapOnly:    mapOnly,
		baseLayers: layers,
	}
}

// Match returns true if the feature passes both the map and layer checks.
func (f *MapAndLayerFilter) Match(feature model.Feature) bool {
	if f.mapOnly && !feature.IsMap {
		return false
	}

	if len(f.baseLayers) > 0 {
		matched := false
		for _, l := range f.baseLayers {
			if strings.EqualFold(feature.BaseLayer, l) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Apply returns the features that match f.
func Apply(f model.FeatureFilter, features []model.Feature) []model.Feature {
	var out []model.Feature
	for _, feature := range features {
		if f.Match(feature) {
			out = append(out, feature)
		}
	}
	return out
}
