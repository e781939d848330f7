package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scholarslab/nlfeatures/internal/coverage"
	"github.com/scholarslab/nlfeatures/internal/model"
)

// Ensure SQLiteStore implements model.FeatureStore.
var _ model.FeatureStore = (*SQLiteStore)(nil)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS element_texts (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id      INTEGER NOT NULL,
		record_type_id INTEGER NOT NULL,
		element_id     INTEGER NOT NULL,
		html           INTEGER NOT NULL DEFAULT 0,
		text           TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS element_texts_record ON element_texts (record_id, element_id)`,
	`CREATE TABLE IF NOT EXISTS neatline_features (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		added           TEXT    NOT NULL,
		item_id         INTEGER NOT NULL,
		element_text_id INTEGER,
		is_map          INTEGER NOT NULL DEFAULT 0,
		geo             TEXT    NOT NULL DEFAULT '',
		zoom            INTEGER NOT NULL DEFAULT 3,
		center_lon      REAL    NOT NULL DEFAULT 0,
		center_lat      REAL    NOT NULL DEFAULT 0,
		base_layer      TEXT    NOT NULL DEFAULT 'osm'
	)`,
	`CREATE INDEX IF NOT EXISTS neatline_features_item ON neatline_features (item_id)`,
}

const featureColumns = `nf.id, nf.added, nf.item_id, nf.element_text_id, nf.is_map,
	nf.geo, nf.zoom, nf.center_lon, nf.center_lat, nf.base_layer`

// Settings ties the store to the site's element ids and form defaults.
type Settings struct {
	CoverageElementID int64
	Defaults          model.Defaults
}

// SQLiteStore keeps coverage element texts and their features in SQLite.
type SQLiteStore struct {
	db       *sql.DB
	settings Settings
	now      func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the element_texts and neatline_features tables exist.
func NewSQLiteStore(dbPath string, settings Settings) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, settings: settings, now: time.Now}, nil
}

// AddElementText stores a coverage value and returns it with its new id.
func (s *SQLiteStore) AddElementText(ctx context.Context, et model.ElementText) (model.ElementText, error) {
	return insertElementText(ctx, s.db, et)
}

// RemoveElementTexts deletes an item's values for one element.
func (s *SQLiteStore) RemoveElementTexts(ctx context.Context, itemID, elementID int64) error {
	return removeElementTexts(ctx, s.db, itemID, elementID)
}

// ReplaceCoverage swaps an item's coverage values and features for texts and
// params in one transaction. Params are validated before anything is
// written; on any error the item is left as it was.
func (s *SQLiteStore) ReplaceCoverage(ctx context.Context, itemID int64, texts []model.ElementText, params []model.FeatureParams) ([]model.Feature, error) {
	if itemID <= 0 {
		return nil, model.ErrInvalidItem
	}
	for _, p := range params {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := removeFeatures(ctx, tx, itemID); err != nil {
		return nil, err
	}
	if err := removeElementTexts(ctx, tx, itemID, s.settings.CoverageElementID); err != nil {
		return nil, err
	}
	for _, et := range texts {
		et.ID = nil
		et.RecordID = &itemID
		if _, err := insertElementText(ctx, tx, et); err != nil {
			return nil, err
		}
	}
	if err := s.insertFeatures(ctx, tx, itemID, params); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing coverage for item %d: %w", itemID, err)
	}

	return s.ItemFeatures(ctx, itemID)
}

// ElementText loads one element text by id.
func (s *SQLiteStore) ElementText(ctx context.Context, id int64) (model.ElementText, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, record_id, record_type_id, element_id, html, text FROM element_texts WHERE id = ?`, id)
	et, err := scanElementText(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ElementText{}, fmt.Errorf("element text %d: %w", id, model.ErrNoElementText)
	}
	if err != nil {
		return model.ElementText{}, fmt.Errorf("loading element text %d: %w", id, err)
	}
	return et, nil
}

// ItemElementTexts returns an item's coverage values in id order.
func (s *SQLiteStore) ItemElementTexts(ctx context.Context, itemID int64) ([]model.ElementText, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, record_id, record_type_id, element_id, html, text FROM element_texts
		WHERE record_id = ? AND element_id = ? ORDER BY id`,
		itemID, s.settings.CoverageElementID)
	if err != nil {
		return nil, fmt.Errorf("listing element texts for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var texts []model.ElementText
	for rows.Next() {
		et, err := scanElementText(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning element text: %w", err)
		}
		texts = append(texts, et)
	}
	return texts, rows.Err()
}

// FindByElementText looks up the feature stored for an element text.
//
// A saved element text is matched by id. An element text with no record
// cannot have a feature. Anything else is matched on its geometry and
// identifying columns, plus a LIKE search on the longest plain-text run of
// its free text, since its id is not known.
func (s *SQLiteStore) FindByElementText(ctx context.Context, et model.ElementText) (model.Lookup, error) {
	if et.RecordID == nil {
		return model.NotFound{}, nil
	}

	var (
		query strings.Builder
		args  []any
	)
	query.WriteString("SELECT " + featureColumns + " FROM neatline_features nf")

	if et.ID != nil {
		query.WriteString(" WHERE nf.item_id = ? AND nf.element_text_id = ?")
		args = append(args, *et.RecordID, *et.ID)
	} else {
		key := coverage.NewSearchKey(et.Text)
		query.WriteString(` JOIN element_texts et ON nf.element_text_id = et.id
			WHERE nf.item_id = ?
			AND (nf.geo = ? OR nf.geo = ?)
			AND et.record_id = ?
			AND et.record_type_id = ?
			AND et.element_id = ?
			AND et.html = ?`)
		args = append(args, *et.RecordID, key.Geo, key.WKT, *et.RecordID, et.RecordTypeID, et.ElementID, et.HTML)
		if p := key.Pattern(); p != "" {
			query.WriteString(" AND et.text LIKE ?")
			args = append(args, p)
		}
	}
	query.WriteString(" ORDER BY nf.id LIMIT 1")

	f, err := scanFeature(s.db.QueryRowContext(ctx, query.String(), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up feature for item %d: %w", *et.RecordID, err)
	}
	return model.Found{Feature: f}, nil
}

// CreateOrGet returns the stored feature for et, or a new unsaved feature
// with the configured defaults.
func (s *SQLiteStore) CreateOrGet(ctx context.Context, itemID int64, et model.ElementText) (model.Feature, error) {
	lookup, err := s.FindByElementText(ctx, et)
	if err != nil {
		return model.Feature{}, err
	}
	if found, ok := lookup.(model.Found); ok {
		return found.Feature, nil
	}

	f := model.FeatureParams{}.Resolve(s.settings.Defaults)
	f.ItemID = itemID
	f.ElementTextID = et.ID
	return f, nil
}

// ItemFeatures returns every feature of an item in id order.
func (s *SQLiteStore) ItemFeatures(ctx context.Context, itemID int64) ([]model.Feature, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+featureColumns+" FROM neatline_features nf WHERE nf.item_id = ? ORDER BY nf.id", itemID)
	if err != nil {
		return nil, fmt.Errorf("listing features for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var features []model.Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning feature: %w", err)
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

// RemoveItemFeatures deletes all features of an item. Item id 0 (an unsaved
// item) is a no-op.
func (s *SQLiteStore) RemoveItemFeatures(ctx context.Context, itemID int64) error {
	return removeFeatures(ctx, s.db, itemID)
}

// CreateFeatures inserts one feature per params entry, attached to the
// item's coverage value with the same text. Entries whose text matches no
// stored value insert nothing.
func (s *SQLiteStore) CreateFeatures(ctx context.Context, itemID int64, params []model.FeatureParams) ([]model.Feature, error) {
	return s.inTx(ctx, itemID, params, false)
}

// UpdateFeatures replaces the item's features with ones built from params.
func (s *SQLiteStore) UpdateFeatures(ctx context.Context, itemID int64, params []model.FeatureParams) ([]model.Feature, error) {
	return s.inTx(ctx, itemID, params, true)
}

func (s *SQLiteStore) inTx(ctx context.Context, itemID int64, params []model.FeatureParams, replace bool) ([]model.Feature, error) {
	if itemID <= 0 {
		return nil, model.ErrInvalidItem
	}
	for _, p := range params {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if err := removeFeatures(ctx, tx, itemID); err != nil {
			return nil, err
		}
	}
	if err := s.insertFeatures(ctx, tx, itemID, params); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing features for item %d: %w", itemID, err)
	}

	return s.ItemFeatures(ctx, itemID)
}

func (s *SQLiteStore) insertFeatures(ctx context.Context, tx *sql.Tx, itemID int64, params []model.FeatureParams) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO neatline_features
		(added, item_id, element_text_id, is_map, geo, zoom, center_lon, center_lat, base_layer)
		SELECT ?, ?, et.id, ?, ?, ?, ?, ?, ?
		FROM element_texts et
		WHERE et.record_id = ? AND et.text = ? AND et.element_id = ?`)
	if err != nil {
		return fmt.Errorf("preparing feature insert: %w", err)
	}
	defer stmt.Close()

	added := s.now().UTC().Format(time.RFC3339)
	for _, p := range params {
		f := p.Resolve(s.settings.Defaults)
		_, err := stmt.ExecContext(ctx,
			added, itemID, f.IsMap, f.Geo, f.Zoom, f.CenterLon, f.CenterLat, f.BaseLayer,
			itemID, p.Text, s.settings.CoverageElementID,
		)
		if err != nil {
			return fmt.Errorf("inserting feature for item %d: %w", itemID, err)
		}
	}
	return nil
}

// Items lists every item with coverage values, with feature counts.
func (s *SQLiteStore) Items(ctx context.Context) ([]model.ItemSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT et.record_id, COUNT(DISTINCT et.id), COUNT(nf.id), COALESCE(SUM(nf.is_map), 0)
		FROM element_texts et
		LEFT JOIN neatline_features nf ON nf.element_text_id = et.id
		WHERE et.element_id = ?
		GROUP BY et.record_id
		ORDER BY et.record_id`, s.settings.CoverageElementID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.ItemSummary
	for rows.Next() {
		var it model.ItemSummary
		if err := rows.Scan(&it.ID, &it.Texts, &it.Features, &it.MapFeatures); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func removeFeatures(ctx context.Context, db execer, itemID int64) error {
	if itemID == 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM neatline_features WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("removing features for item %d: %w", itemID, err)
	}
	return nil
}

func insertElementText(ctx context.Context, db execer, et model.ElementText) (model.ElementText, error) {
	if et.RecordID == nil || *et.RecordID <= 0 {
		return et, model.ErrInvalidItem
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO element_texts (record_id, record_type_id, element_id, html, text) VALUES (?, ?, ?, ?, ?)`,
		*et.RecordID, et.RecordTypeID, et.ElementID, et.HTML, et.Text,
	)
	if err != nil {
		return et, fmt.Errorf("inserting element text for item %d: %w", *et.RecordID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return et, fmt.Errorf("reading element text id: %w", err)
	}
	et.ID = &id
	return et, nil
}

func removeElementTexts(ctx context.Context, db execer, itemID, elementID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM element_texts WHERE record_id = ? AND element_id = ?`, itemID, elementID)
	if err != nil {
		return fmt.Errorf("removing element texts for item %d: %w", itemID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFeature(row scanner) (model.Feature, error) {
	var (
		f     model.Feature
		added string
		etID  sql.NullInt64
	)
	err := row.Scan(&f.ID, &added, &f.ItemID, &etID, &f.IsMap,
		&f.Geo, &f.Zoom, &f.CenterLon, &f.CenterLat, &f.BaseLayer)
	if err != nil {
		return model.Feature{}, err
	}
	if etID.Valid {
		id := etID.Int64
		f.ElementTextID = &id
	}
	if t, err := time.Parse(time.RFC3339, added); err == nil {
		f.Added = t
	}
	return f, nil
}

func scanElementText(row scanner) (model.ElementText, error) {
	var (
		et       model.ElementText
		id       int64
		recordID int64
	)
	if err := row.Scan(&id, &recordID, &et.RecordTypeID, &et.ElementID, &et.HTML, &et.Text); err != nil {
		return model.ElementText{}, err
	}
	et.ID = &id
	et.RecordID = &recordID
	return et, nil
}
