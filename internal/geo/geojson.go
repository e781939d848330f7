package geo

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/scholarslab/nlfeatures/internal/model"
)

// FeatureCollection converts stored features to GeoJSON, one GeoJSON
// feature per geometry.
func FeatureCollection(features []model.Feature) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		geoms, err := Geometries(f.Geo)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", f.ID, err)
		}
		for _, g := range geoms {
			gf := geojson.NewFeature(g)
			gf.Properties["id"] = f.ID
			gf.Properties["item_id"] = f.ItemID
			if f.ElementTextID != nil {
				gf.Properties["element_text_id"] = *f.ElementTextID
			}
			gf.Properties["is_map"] = f.IsMap
			gf.Properties["zoom"] = f.Zoom
			gf.Properties["base_layer"] = f.BaseLayer
			fc.Append(gf)
		}
	}
	return fc, nil
}
