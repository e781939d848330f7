package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarslab/nlfeatures/internal/model"
	"github.com/scholarslab/nlfeatures/internal/store"
)

const (
	testElementID    = 38
	testRecordTypeID = 2
)

type fixture struct {
	store  *store.SQLiteStore
	server *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), store.Settings{
		CoverageElementID: testElementID,
		Defaults:          model.DefaultDefaults,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return &fixture{
		store:  s,
		server: New(s, slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
}

func (fx *fixture) addText(t *testing.T, itemID int64, html bool, text string) model.ElementText {
	t.Helper()
	et, err := fx.store.AddElementText(context.Background(), model.ElementText{
		RecordID:     &itemID,
		RecordTypeID: testRecordTypeID,
		ElementID:    testElementID,
		HTML:         html,
		Text:         text,
	})
	require.NoError(t, err)
	return et
}

func (fx *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	fx.server.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := newFixture(t).do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMatch(t *testing.T) {
	fx := newFixture(t)

	w := fx.do(http.MethodGet, "/api/match?text="+url.QueryEscape("<p>The <b>Rotunda</b> at UVa</p>"), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got matchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "%Rotunda%", got.Pattern)
	assert.Equal(t, "Rotunda", got.RawSegment)
	assert.False(t, got.WholeString)

	w = fx.do(http.MethodGet, "/api/match", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pattern":"","raw_segment":"","whole_string":true}`, w.Body.String())
}

func TestReplaceListAndDeleteFeatures(t *testing.T) {
	fx := newFixture(t)
	fx.addText(t, 7, false, "a")
	fx.addText(t, 7, false, "b")

	w := fx.do(http.MethodPut, "/api/items/7/features",
		`[{"text":"a","mapon":true,"geo":"POINT(1 2)","base_layer":"gsat"},{"text":"b"}]`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var features []model.Feature
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &features))
	require.Len(t, features, 2)
	assert.Equal(t, "gsat", features[0].BaseLayer)
	assert.Equal(t, "osm", features[1].BaseLayer)

	w = fx.do(http.MethodGet, "/api/items/7/features?map_only=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &features))
	require.Len(t, features, 1)
	assert.Equal(t, "POINT(1 2)", features[0].Geo)

	w = fx.do(http.MethodGet, "/api/items/7/features?base_layer=osm,roadmap", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &features))
	require.Len(t, features, 1)
	assert.Equal(t, "osm", features[0].BaseLayer)

	w = fx.do(http.MethodDelete, "/api/items/7/features", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = fx.do(http.MethodGet, "/api/items/7/features", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestReplaceFeatures_badRequests(t *testing.T) {
	fx := newFixture(t)
	tests := []struct {
		name   string
		target string
		body   string
	}{
		{name: "zoom out of range", target: "/api/items/7/features", body: `[{"text":"a","zoom":99}]`},
		{name: "malformed body", target: "/api/items/7/features", body: `{`},
		{name: "unknown field", target: "/api/items/7/features", body: `[{"txt":"a"}]`},
		{name: "non-numeric item", target: "/api/items/abc/features", body: `[]`},
		{name: "zero item", target: "/api/items/0/features", body: `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := fx.do(http.MethodPut, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestGeoJSON(t *testing.T) {
	fx := newFixture(t)
	fx.addText(t, 7, false, "a")
	w := fx.do(http.MethodPut, "/api/items/7/features", `[{"text":"a","geo":"POINT(1 2)|LINESTRING(0 0,1 1)"}]`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = fx.do(http.MethodGet, "/api/items/7/features.geojson", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	assert.Equal(t, "LineString", fc.Features[1].Geometry.Type)
	assert.Equal(t, float64(7), fc.Features[0].Properties["item_id"])
}

func TestGeoJSON_unknownGeometry(t *testing.T) {
	fx := newFixture(t)
	fx.addText(t, 7, false, "a")
	fx.do(http.MethodPut, "/api/items/7/features", `[{"text":"a","geo":"somewhere"}]`)

	w := fx.do(http.MethodGet, "/api/items/7/features.geojson", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLookup(t *testing.T) {
	fx := newFixture(t)
	et := fx.addText(t, 7, false, "a")
	fx.do(http.MethodPut, "/api/items/7/features", `[{"text":"a","geo":"POINT(0 0)"}]`)

	body, err := json.Marshal(et)
	require.NoError(t, err)
	w := fx.do(http.MethodPost, "/api/lookup", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got lookupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Found)
	assert.Equal(t, "POINT(0 0)", got.Feature.Geo)
	assert.Equal(t, "nlfeatures"+strconv.FormatInt(got.Feature.ID, 10)+"_", got.NameStem)
}

func TestLookup_notFound(t *testing.T) {
	fx := newFixture(t)
	w := fx.do(http.MethodPost, "/api/lookup", `{"record_id":7,"record_type_id":2,"element_id":38,"html":false,"text":"nothing"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got lookupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.Found)
	assert.Equal(t, int64(7), got.Feature.ItemID)
	assert.Equal(t, 3, got.Feature.Zoom)
	assert.True(t, strings.HasPrefix(got.NameStem, "nlfeatures"))
	assert.Len(t, got.NameStem, len("nlfeatures")+32+1)
}

func TestCoverage(t *testing.T) {
	fx := newFixture(t)
	mapped := fx.addText(t, 7, true, "POINT(0 0)|3|0|0|osm\r\n<p>Monticello<script>x()</script></p>")
	plain := fx.addText(t, 7, false, "A < B")
	w := fx.do(http.MethodPut, "/api/items/7/features",
		`[{"text":"POINT(0 0)|3|0|0|osm\r\n<p>Monticello<script>x()</script></p>","mapon":true,"geo":"POINT(0 0)"}]`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = fx.do(http.MethodGet, "/api/items/7/coverage/"+strconv.FormatInt(*mapped.ID, 10), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got coverageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.IsMap)
	assert.True(t, got.IsHTML)
	assert.Contains(t, got.View, "<p>Monticello")
	assert.NotContains(t, got.View, "<script>")

	w = fx.do(http.MethodGet, "/api/items/7/coverage/"+strconv.FormatInt(*plain.ID, 10), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.IsMap)
	assert.Equal(t, "A &lt; B", got.View)

	w = fx.do(http.MethodGet, "/api/items/8/coverage/"+strconv.FormatInt(*plain.ID, 10), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = fx.do(http.MethodGet, "/api/items/7/coverage/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestItems(t *testing.T) {
	fx := newFixture(t)
	w := fx.do(http.MethodGet, "/api/items", "")
	assert.JSONEq(t, `[]`, w.Body.String())

	fx.addText(t, 7, false, "a")
	w = fx.do(http.MethodGet, "/api/items", "")
	assert.JSONEq(t, `[{"id":7,"texts":1,"features":0,"map_features":0}]`, w.Body.String())
}
