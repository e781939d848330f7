package geo

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

type kmlCoordinates struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer string   `xml:"outerBoundaryIs>LinearRing>coordinates"`
	Inner []string `xml:"innerBoundaryIs>LinearRing>coordinates"`
}

// ParseKML extracts Point, LineString and Polygon geometries from a KML
// document, wherever they are nested (Placemark, MultiGeometry, Folder).
func ParseKML(s string) ([]orb.Geometry, error) {
	d := xml.NewDecoder(strings.NewReader(s))
	var geoms []orb.Geometry
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return geoms, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading kml: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "Point":
			var c kmlCoordinates
			if err := d.DecodeElement(&c, &se); err != nil {
				return nil, fmt.Errorf("decoding kml point: %w", err)
			}
			ring, err := parseCoordinates(c.Coordinates)
			if err != nil {
				return nil, err
			}
			if len(ring) != 1 {
				return nil, fmt.Errorf("kml point has %d coordinates", len(ring))
			}
			geoms = append(geoms, ring[0])
		case "LineString":
			var c kmlCoordinates
			if err := d.DecodeElement(&c, &se); err != nil {
				return nil, fmt.Errorf("decoding kml linestring: %w", err)
			}
			pts, err := parseCoordinates(c.Coordinates)
			if err != nil {
				return nil, err
			}
			geoms = append(geoms, orb.LineString(pts))
		case "Polygon":
			var p kmlPolygon
			if err := d.DecodeElement(&p, &se); err != nil {
				return nil, fmt.Errorf("decoding kml polygon: %w", err)
			}
			poly, err := polygon(p)
			if err != nil {
				return nil, err
			}
			geoms = append(geoms, poly)
		}
	}
}

func polygon(p kmlPolygon) (orb.Polygon, error) {
	outer, err := parseCoordinates(p.Outer)
	if err != nil {
		return nil, err
	}
	poly := orb.Polygon{closeRing(outer)}
	for _, inner := range p.Inner {
		pts, err := parseCoordinates(inner)
		if err != nil {
			return nil, err
		}
		poly = append(poly, closeRing(pts))
	}
	return poly, nil
}

func closeRing(pts []orb.Point) orb.Ring {
	ring := orb.Ring(pts)
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// parseCoordinates reads whitespace-separated "lon,lat[,alt]" tuples.
func parseCoordinates(s string) ([]orb.Point, error) {
	fields := strings.Fields(s)
	pts := make([]orb.Point, 0, len(fields))
	for _, tuple := range fields {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("kml coordinate %q: want lon,lat", tuple)
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("kml coordinate %q: %w", tuple, err)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("kml coordinate %q: %w", tuple, err)
		}
		pts = append(pts, orb.Point{lon, lat})
	}
	return pts, nil
}
