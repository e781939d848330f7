package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scholarslab/nlfeatures/internal/filter"
	"github.com/scholarslab/nlfeatures/internal/geo"
	"github.com/scholarslab/nlfeatures/internal/model"
)

var (
	featuresGeoJSON bool
	featuresMapOnly bool
	featuresLayers  []string
)

var featuresCmd = &cobra.Command{
	Use:   "features ITEM",
	Short: "List an item's features",
	Long:  "Prints a table of the item's features, or a GeoJSON FeatureCollection with --geojson.",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeatures,
}

func init() {
	featuresCmd.Flags().BoolVar(&featuresGeoJSON, "geojson", false, "print a GeoJSON FeatureCollection")
	featuresCmd.Flags().BoolVar(&featuresMapOnly, "map-only", false, "only features shown on a map")
	featuresCmd.Flags().StringSliceVar(&featuresLayers, "layer", nil, "only features on these base layers")
	rootCmd.AddCommand(featuresCmd)
}

func runFeatures(cmd *cobra.Command, args []string) error {
	itemID, err := parseItemID(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	features, err := s.ItemFeatures(cmd.Context(), itemID)
	if err != nil {
		return err
	}
	features = filter.Apply(filter.NewMapAndLayerFilter(featuresMapOnly, featuresLayers), features)

	if featuresGeoJSON {
		fc, err := geo.FeatureCollection(features)
		if err != nil {
			return err
		}
		data, err := fc.MarshalJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}

	if len(features) == 0 {
		fmt.Println("No features.")
		return nil
	}
	printFeatures(features)
	return nil
}

func printFeatures(features []model.Feature) {
	fmt.Printf("%-6s %-6s %-5s %-5s %-22s %-10s %s\n", "ID", "Text", "Map", "Zoom", "Center", "Layer", "Geometry")
	fmt.Println(strings.Repeat("─", 80))
	for _, f := range features {
		textID := "-"
		if f.ElementTextID != nil {
			textID = strconv.FormatInt(*f.ElementTextID, 10)
		}
		summary := "unparsed"
		if geoms, err := geo.Geometries(f.Geo); err == nil {
			summary = geo.Summary(geoms)
		}
		center := strconv.FormatFloat(f.CenterLon, 'f', -1, 64) + ", " + strconv.FormatFloat(f.CenterLat, 'f', -1, 64)
		fmt.Printf("%-6d %-6s %-5t %-5d %-22s %-10s %s\n", f.ID, textID, f.IsMap, f.Zoom, center, f.BaseLayer, summary)
	}
}
