// Package coverage reads and writes the legacy Coverage text format.
//
// A coverage value is a header line followed by free text:
//
//	geo|zoom|center_lon|center_lat|base_layer
//	free text, possibly HTML
//
// geo is a KML document, or one or more WKT geometries joined by "|" in
// values written by older editors. HTML-mode values separate lines with
// "<br />" and carriage returns, which SplitLines normalises.
package coverage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/scholarslab/nlfeatures/internal/match"
	"github.com/scholarslab/nlfeatures/internal/model"
)

const (
	maxLines       = 3
	viewportFields = 4
)

var lineBreakTag = regexp.MustCompile(`(?i)<br />`)

// Header is the parsed first line of a coverage value. Viewport fields the
// editor left unset ("undefined", "null", blank) are nil or empty.
type Header struct {
	Geo       string // entity-decoded geometry
	WKT       string // raw line up to the first "/"
	Zoom      *int
	CenterLon *float64
	CenterLat *float64
	BaseLayer string
}

// SplitLines normalises line breaks and splits text into at most three
// lines: header, separator, free text.
func SplitLines(text string) []string {
	text = lineBreakTag.ReplaceAllString(text, "\n")
	text = strings.ReplaceAll(text, "\r", "")
	return strings.SplitN(text, "\n", maxLines)
}

// ParseHeader parses a header line. The last four pipe-separated fields are
// the viewport when present; everything before them is geometry.
func ParseHeader(line string) Header {
	wkt, _, _ := strings.Cut(line, "/")
	h := Header{WKT: wkt}

	parts := strings.Split(line, "|")
	var viewport []string
	if len(parts) > viewportFields {
		split := len(parts) - viewportFields
		h.Geo = strings.Join(parts[:split], "|")
		viewport = parts[split:]
	} else {
		h.Geo = parts[0]
		viewport = parts[1:]
	}
	h.Geo = html.UnescapeString(h.Geo)

	field := func(i int) string {
		if i >= len(viewport) {
			return ""
		}
		v := strings.TrimSpace(viewport[i])
		if v == "undefined" || v == "null" {
			return ""
		}
		return v
	}

	if n, err := strconv.Atoi(field(0)); err == nil {
		h.Zoom = &n
	}
	if f, err := strconv.ParseFloat(field(1), 64); err == nil {
		h.CenterLon = &f
	}
	if f, err := strconv.ParseFloat(field(2), 64); err == nil {
		h.CenterLat = &f
	}
	h.BaseLayer = field(3)
	return h
}

// Params converts the header into feature params for the given raw text.
func (h Header) Params(text string) model.FeatureParams {
	p := model.FeatureParams{
		Text:      text,
		Zoom:      h.Zoom,
		CenterLon: h.CenterLon,
		CenterLat: h.CenterLat,
	}
	if h.Geo != "" {
		geo := h.Geo
		p.Geo = &geo
	}
	if h.BaseLayer != "" {
		layer := h.BaseLayer
		p.BaseLayer = &layer
	}
	return p
}

// SearchKey holds everything needed to find the feature of a coverage value
// that has no element text id.
type SearchKey struct {
	Geo  string
	WKT  string
	Free string
	Key  match.Key
}

// Pattern is the LIKE pattern for the free text, empty when there is none.
func (k SearchKey) Pattern() string { return k.Key.Pattern }

// NewSearchKey derives the search key for a stored coverage value. Only a
// third line counts as free text.
func NewSearchKey(text string) SearchKey {
	lines := SplitLines(text)
	h := ParseHeader(lines[0])

	var free string
	if len(lines) >= maxLines {
		free = lines[2]
	}

	return SearchKey{
		Geo:  h.Geo,
		WKT:  h.WKT,
		Free: free,
		Key:  match.NewKey(free),
	}
}

// Format writes a feature and its free text the way the map editor does.
func Format(f model.Feature, free string) string {
	return fmt.Sprintf("%s|%d|%s|%s|%s\n%s",
		f.Geo,
		f.Zoom,
		strconv.FormatFloat(f.CenterLon, 'f', -1, 64),
		strconv.FormatFloat(f.CenterLat, 'f', -1, 64),
		f.BaseLayer,
		free,
	)
}

// Body returns the display part of a coverage value: everything after the
// first line break, or the whole value when there is none.
func Body(text string) string {
	if i := strings.Index(text, "\r\n"); i > 0 {
		return text[i+2:]
	}
	if i := strings.Index(text, "\n"); i > 0 {
		return text[i+1:]
	}
	return text
}
