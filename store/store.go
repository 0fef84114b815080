// Package store provides the SQLite persistence layer for capsight scan
// reports.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glasshouse/capsight/dbopen"
	"github.com/glasshouse/capsight/probe"
)

// Schema for the reports table. Applied on Open.
const Schema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	target TEXT NOT NULL,
	user_agent TEXT NOT NULL,
	engine TEXT NOT NULL,
	backdrop_filter INTEGER NOT NULL,
	advanced_backdrop_filter INTEGER NOT NULL,
	webkit INTEGER NOT NULL,
	safari INTEGER NOT NULL,
	mobile INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
CREATE INDEX IF NOT EXISTS idx_reports_engine ON reports(engine);
`

// ErrNotFound is returned when a report ID does not exist.
var ErrNotFound = errors.New("store: report not found")

// Report is one persisted detection pass.
type Report struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Target    string         `json:"target"`
	UserAgent string         `json:"user_agent"`
	Engine    string         `json:"engine"`
	Snapshot  probe.Snapshot `json:"snapshot"`
}

// Store is the capsight database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the capsight SQLite database at path, applies
// pragmas and the reports schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// New wraps an existing database handle and applies the schema.
// Used by tests with dbopen.OpenMemory.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// SaveReport persists a report. The ID must be unique.
func (s *Store) SaveReport(ctx context.Context, r *Report) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO reports (
			id, created_at, target, user_agent, engine,
			backdrop_filter, advanced_backdrop_filter, webkit, safari, mobile
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.Unix(), r.Target, r.UserAgent, r.Engine,
		boolInt(r.Snapshot.SupportsBackdropFilter),
		boolInt(r.Snapshot.SupportsAdvancedBackdropFilter),
		boolInt(r.Snapshot.IsWebKit),
		boolInt(r.Snapshot.IsSafari),
		boolInt(r.Snapshot.IsMobile),
	)
	if err != nil {
		return fmt.Errorf("store: save report %s: %w", r.ID, err)
	}
	return nil
}

// GetReport fetches one report by ID. Returns ErrNotFound if absent.
func (s *Store) GetReport(ctx context.Context, id string) (*Report, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, created_at, target, user_agent, engine,
		       backdrop_filter, advanced_backdrop_filter, webkit, safari, mobile
		FROM reports WHERE id = ?`, id)

	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get report %s: %w", id, err)
	}
	return r, nil
}

// ListReports returns the most recent reports, newest first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, created_at, target, user_agent, engine,
		       backdrop_filter, advanced_backdrop_filter, webkit, safari, mobile
		FROM reports ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list reports: %w", err)
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list reports: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByEngine returns report counts grouped by engine label.
func (s *Store) CountByEngine(ctx context.Context) (map[string]int, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT engine, COUNT(*) FROM reports GROUP BY engine`)
	if err != nil {
		return nil, fmt.Errorf("store: count by engine: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var engine string
		var n int
		if err := rows.Scan(&engine, &n); err != nil {
			return nil, fmt.Errorf("store: count by engine: %w", err)
		}
		out[engine] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*Report, error) {
	var r Report
	var created int64
	var backdrop, advanced, webkit, safari, mobile int
	err := row.Scan(&r.ID, &created, &r.Target, &r.UserAgent, &r.Engine,
		&backdrop, &advanced, &webkit, &safari, &mobile)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(created, 0).UTC()
	r.Snapshot = probe.Snapshot{
		SupportsBackdropFilter:         backdrop != 0,
		SupportsAdvancedBackdropFilter: advanced != 0,
		IsWebKit:                       webkit != 0,
		IsSafari:                       safari != 0,
		IsMobile:                       mobile != 0,
	}
	return &r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
