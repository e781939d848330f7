// Package geo parses the geometry stored with coverage features and exports
// it as GeoJSON.
package geo

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// KMLNamespace is the namespace the map editor writes.
const KMLNamespace = "http://www.opengis.net/kml/2.2"

var wktTypes = regexp.MustCompile(`\b(POINT|LINESTRING|POLYGON|MULTIPOINT|MULTILINESTRING|MULTIPOLYGON)\b`)

// IsWKT makes a best guess at whether s holds WKT: it looks for a geometry
// type name as a whole word.
func IsWKT(s string) bool {
	return wktTypes.MatchString(s)
}

// IsKML reports whether s is well-formed XML with exactly one KML 2.2 root.
func IsKML(s string) bool {
	d := xml.NewDecoder(strings.NewReader(s))
	roots := 0
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return roots == 1
		}
		if err != nil {
			return false
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "kml" && se.Name.Space == KMLNamespace {
			roots++
		}
	}
}

// ParseWKTList parses pipe-separated WKT geometries.
func ParseWKTList(s string) ([]orb.Geometry, error) {
	var geoms []orb.Geometry
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		g, err := wkt.Unmarshal(part)
		if err != nil {
			return nil, fmt.Errorf("parsing wkt %q: %w", part, err)
		}
		geoms = append(geoms, g)
	}
	return geoms, nil
}

// ErrUnknownFormat is returned for geometry that is neither KML nor WKT.
var ErrUnknownFormat = errors.New("geometry is neither KML nor WKT")

// Geometries parses a stored geo value, KML or WKT. Empty input has no
// geometries.
func Geometries(geo string) ([]orb.Geometry, error) {
	geo = strings.TrimSpace(geo)
	switch {
	case geo == "":
		return nil, nil
	case IsKML(geo):
		return ParseKML(geo)
	case IsWKT(geo):
		return ParseWKTList(geo)
	default:
		return nil, ErrUnknownFormat
	}
}

// Summary describes geometries for listings, e.g. "2 Point, 1 Polygon".
func Summary(geoms []orb.Geometry) string {
	if len(geoms) == 0 {
		return "none"
	}
	var order []string
	counts := make(map[string]int)
	for _, g := range geoms {
		name := g.GeoJSONType()
		if counts[name] == 0 {
			order = append(order, name)
		}
		counts[name]++
	}
	parts := make([]string, len(order))
	for i, name := range order {
		parts[i] = fmt.Sprintf("%d %s", counts[name], name)
	}
	return strings.Join(parts, ", ")
}
