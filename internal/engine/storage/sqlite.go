package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rendis/spottet/internal/model"
)

const maxRecentQueries = 10

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS fountains (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		address TEXT,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		distance_km REAL,
		rating REAL,
		is_working INTEGER NOT NULL,
		is_favorite INTEGER NOT NULL,
		has_photo INTEGER NOT NULL,
		hours TEXT,
		is_open INTEGER NOT NULL,
		source_place_id TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_fountains_position ON fountains(position);
	CREATE INDEX IF NOT EXISTS idx_fountains_favorite ON fountains(is_favorite);

	CREATE TABLE IF NOT EXISTS searches (
		query TEXT PRIMARY KEY,
		searched_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveFountains replaces the stored set with fountains, keeping their order.
func (s *Store) SaveFountains(ctx context.Context, fountains []model.Fountain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM fountains"); err != nil {
		return fmt.Errorf("clearing fountains: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fountains
		(id, position, name, address, lat, lng, distance_km, rating,
		 is_working, is_favorite, has_photo, hours, is_open, source_place_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	for i, f := range fountains {
		_, err := stmt.ExecContext(ctx,
			f.ID, i, f.Name, f.Address, f.Location.Latitude, f.Location.Longitude,
			f.DistanceKm, f.Rating, f.IsWorking, f.IsFavorite, f.HasPhoto,
			f.Hours, f.IsOpen, f.SourcePlaceID,
		)
		if err != nil {
			return fmt.Errorf("inserting fountain %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}
	return nil
}

// LoadFountains returns the stored set in saved order.
func (s *Store) LoadFountains(ctx context.Context) ([]model.Fountain, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, lat, lng, distance_km, rating,
		       is_working, is_favorite, has_photo, hours, is_open, source_place_id
		FROM fountains ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying fountains: %w", err)
	}
	defer rows.Close()

	var out []model.Fountain
	for rows.Next() {
		var f model.Fountain
		var address, hours, source sql.NullString
		var distance, rating sql.NullFloat64
		if err := rows.Scan(
			&f.ID, &f.Name, &address, &f.Location.Latitude, &f.Location.Longitude,
			&distance, &rating, &f.IsWorking, &f.IsFavorite, &f.HasPhoto,
			&hours, &f.IsOpen, &source,
		); err != nil {
			return nil, fmt.Errorf("scanning fountain: %w", err)
		}
		f.Address = address.String
		f.Hours = hours.String
		f.SourcePlaceID = source.String
		f.DistanceKm = distance.Float64
		f.Rating = rating.Float64
		out = append(out, f)
	}
	return out, rows.Err()
}

// RecordSearch remembers query as the most recent text search.
func (s *Store) RecordSearch(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO searches (query, searched_at) VALUES (?, ?)
		ON CONFLICT(query) DO UPDATE SET searched_at = excluded.searched_at`,
		query, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("recording search: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM searches WHERE query NOT IN
		(SELECT query FROM searches ORDER BY searched_at DESC LIMIT ?)`, maxRecentQueries)
	if err != nil {
		return fmt.Errorf("trimming searches: %w", err)
	}
	return nil
}

// RecentSearch is a remembered text query.
type RecentSearch struct {
	Query      string
	SearchedAt time.Time
}

// RecentSearches returns remembered queries, newest first.
func (s *Store) RecentSearches(ctx context.Context) ([]RecentSearch, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT query, searched_at FROM searches ORDER BY searched_at DESC LIMIT ?", maxRecentQueries)
	if err != nil {
		return nil, fmt.Errorf("querying searches: %w", err)
	}
	defer rows.Close()

	var out []RecentSearch
	for rows.Next() {
		var r RecentSearch
		var at int64
		if err := rows.Scan(&r.Query, &at); err != nil {
			return nil, fmt.Errorf("scanning search: %w", err)
		}
		r.SearchedAt = time.Unix(0, at)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM fountains").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
