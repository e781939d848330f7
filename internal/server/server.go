// Package server exposes the feature store and the text matcher over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scholarslab/nlfeatures/internal/coverage"
	"github.com/scholarslab/nlfeatures/internal/filter"
	"github.com/scholarslab/nlfeatures/internal/geo"
	"github.com/scholarslab/nlfeatures/internal/match"
	"github.com/scholarslab/nlfeatures/internal/model"
)

// maxBodyBytes caps request bodies; coverage values are small.
const maxBodyBytes = 1 << 20

// Server serves the JSON API.
type Server struct {
	store  model.FeatureStore
	logger *slog.Logger
	router chi.Router
}

// New builds the router for store.
func New(store model.FeatureStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: store, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/match", s.handleMatch)
		r.Post("/lookup", s.handleLookup)
		r.Get("/items", s.handleItems)

		r.Route("/items/{itemID}", func(r chi.Router) {
			r.Get("/features", s.handleListFeatures)
			r.Get("/features.geojson", s.handleGeoJSON)
			r.Put("/features", s.handleReplaceFeatures)
			r.Delete("/features", s.handleDeleteFeatures)
			r.Get("/coverage/{elementTextID}", s.handleCoverage)
		})
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type matchResponse struct {
	Pattern     string `json:"pattern"`
	RawSegment  string `json:"raw_segment"`
	WholeString bool   `json:"whole_string"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	key := match.NewKey(r.URL.Query().Get("text"))
	writeJSON(w, http.StatusOK, matchResponse{
		Pattern:     key.Pattern,
		RawSegment:  key.RawSegment,
		WholeString: key.WholeString,
	})
}

type lookupResponse struct {
	Found    bool          `json:"found"`
	Feature  model.Feature `json:"feature"`
	NameStem string        `json:"name_stem"`
}

// handleLookup finds the feature for a submitted element text. When none is
// stored it returns the unsaved feature the editor would start from.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var et model.ElementText
	if err := decodeBody(w, r, &et); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var itemID int64
	if et.RecordID != nil {
		itemID = *et.RecordID
	}
	f, err := s.store.CreateOrGet(r.Context(), itemID, et)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{
		Found:    f.Saved(),
		Feature:  f,
		NameStem: coverage.InputNameStem(&f),
	})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.Items(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if items == nil {
		items = []model.ItemSummary{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	features, ok := s.itemFeatures(w, r)
	if !ok {
		return
	}
	if features == nil {
		features = []model.Feature{}
	}
	writeJSON(w, http.StatusOK, features)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	features, ok := s.itemFeatures(w, r)
	if !ok {
		return
	}
	fc, err := geo.FeatureCollection(features)
	if err != nil {
		s.fail(w, err)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// itemFeatures loads an item's features and applies the map_only and
// base_layer query filters. It writes the error response itself.
func (s *Server) itemFeatures(w http.ResponseWriter, r *http.Request) ([]model.Feature, bool) {
	itemID, err := itemIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	features, err := s.store.ItemFeatures(r.Context(), itemID)
	if err != nil {
		s.fail(w, err)
		return nil, false
	}

	q := r.URL.Query()
	mapOnly, _ := strconv.ParseBool(q.Get("map_only"))
	var layers []string
	for _, v := range q["base_layer"] {
		layers = append(layers, strings.Split(v, ",")...)
	}
	if mapOnly || len(layers) > 0 {
		features = filter.Apply(filter.NewMapAndLayerFilter(mapOnly, layers), features)
	}
	return features, true
}

func (s *Server) handleReplaceFeatures(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var params []model.FeatureParams
	if err := decodeBody(w, r, &params); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	features, err := s.store.UpdateFeatures(r.Context(), itemID, params)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("features replaced", "item_id", itemID, "count", len(features))
	if features == nil {
		features = []model.Feature{}
	}
	writeJSON(w, http.StatusOK, features)
}

func (s *Server) handleDeleteFeatures(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.RemoveItemFeatures(r.Context(), itemID); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type coverageResponse struct {
	View   string `json:"view"`
	IsMap  bool   `json:"is_map"`
	IsHTML bool   `json:"is_html"`
}

// handleCoverage renders one coverage value the way the item page shows it.
func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	etID, err := strconv.ParseInt(chi.URLParam(r, "elementTextID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid element text id: %w", err))
		return
	}

	et, err := s.store.ElementText(r.Context(), etID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if et.RecordID == nil || *et.RecordID != itemID {
		writeError(w, http.StatusNotFound, fmt.Errorf("element text %d: %w", etID, model.ErrNoElementText))
		return
	}

	lookup, err := s.store.FindByElementText(r.Context(), et)
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := coverageResponse{IsHTML: et.HTML}
	if found, ok := lookup.(model.Found); ok {
		resp.IsMap = found.Feature.IsMap
	}
	// Values without a map have no header line to hide.
	if resp.IsMap {
		resp.View = coverage.View(et.Text, et.HTML)
	} else {
		resp.View = coverage.Render(et.Text, et.HTML)
	}
	writeJSON(w, http.StatusOK, resp)
}

// fail maps store errors to status codes and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var pe *model.ParamError
	switch {
	case errors.As(err, &pe), errors.Is(err, model.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, model.ErrNoElementText):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, geo.ErrUnknownFormat):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func itemIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id: %w", err)
	}
	if id <= 0 {
		return 0, model.ErrInvalidItem
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
