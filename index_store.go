package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"osumap/dotosu"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id          TEXT PRIMARY KEY,
	root        TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	decoded     INTEGER NOT NULL DEFAULT 0,
	total       INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS beatmaps (
	path           TEXT PRIMARY KEY,
	md5            TEXT NOT NULL,
	scan_id        TEXT NOT NULL,
	beatmap_id     INTEGER NOT NULL,
	beatmapset_id  INTEGER NOT NULL,
	title          TEXT NOT NULL,
	artist         TEXT NOT NULL,
	creator        TEXT NOT NULL,
	version        TEXT NOT NULL,
	mode           INTEGER NOT NULL,
	format_version INTEGER NOT NULL,
	hit_objects    INTEGER NOT NULL,
	skipped_lines  INTEGER NOT NULL,
	indexed_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS beatmaps_by_id ON beatmaps (beatmap_id);
CREATE TABLE IF NOT EXISTS failures (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	scan_id    TEXT NOT NULL,
	category   TEXT NOT NULL,
	ref        TEXT NOT NULL,
	reason     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// IndexedBeatmap is one row of the beatmaps table.
type IndexedBeatmap struct {
	Path          string
	MD5           string
	ScanID        string
	BeatmapID     int
	BeatmapSetID  int
	Title         string
	Artist        string
	Creator       string
	Version       string
	Mode          dotosu.GameMode
	FormatVersion int
	HitObjects    int
	SkippedLines  int
	IndexedAt     time.Time
}

type Failure struct {
	ScanID   string
	Category string
	Ref      string
	Reason   string
}

type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) the sqlite index at path. ":memory:" works
// for throwaway indexes.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	// sqlite serialises writers anyway, and an in-memory db exists per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) BeginScan(ctx context.Context, root string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, root, started_at) VALUES (?, ?, ?)`,
		id.String(), root, time.Now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin scan: %w", err)
	}
	return id, nil
}

func (s *Store) FinishScan(ctx context.Context, id uuid.UUID, decoded, total int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scans SET finished_at = ?, decoded = ?, total = ? WHERE id = ?`,
		time.Now().UTC(), decoded, total, id.String())
	if err != nil {
		return fmt.Errorf("finish scan %s: %w", id, err)
	}
	return nil
}

// Upsert stores the decoded map under its path, replacing an older entry.
func (s *Store) Upsert(ctx context.Context, scanID uuid.UUID, path, md5 string, b *dotosu.Beatmap, skipped int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO beatmaps (path, md5, scan_id, beatmap_id, beatmapset_id, title, artist, creator,
			version, mode, format_version, hit_objects, skipped_lines, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			md5 = excluded.md5,
			scan_id = excluded.scan_id,
			beatmap_id = excluded.beatmap_id,
			beatmapset_id = excluded.beatmapset_id,
			title = excluded.title,
			artist = excluded.artist,
			creator = excluded.creator,
			version = excluded.version,
			mode = excluded.mode,
			format_version = excluded.format_version,
			hit_objects = excluded.hit_objects,
			skipped_lines = excluded.skipped_lines,
			indexed_at = excluded.indexed_at`,
		path, md5, scanID.String(),
		b.Metadata.BeatmapID, b.Metadata.BeatmapSetID,
		b.Metadata.Title, b.Metadata.Artist, b.Metadata.Creator, b.Metadata.Version,
		int(b.General.Mode), b.FormatVersion(), len(b.HitObjects.Objects), skipped,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", path, err)
	}
	return nil
}

const selectBeatmap = `SELECT path, md5, scan_id, beatmap_id, beatmapset_id, title, artist, creator,
	version, mode, format_version, hit_objects, skipped_lines, indexed_at FROM beatmaps`

func scanBeatmap(row interface{ Scan(...any) error }) (IndexedBeatmap, error) {
	var ib IndexedBeatmap
	var mode int
	err := row.Scan(&ib.Path, &ib.MD5, &ib.ScanID, &ib.BeatmapID, &ib.BeatmapSetID,
		&ib.Title, &ib.Artist, &ib.Creator, &ib.Version, &mode,
		&ib.FormatVersion, &ib.HitObjects, &ib.SkippedLines, &ib.IndexedAt)
	ib.Mode = dotosu.GameMode(mode)
	return ib, err
}

// ByBeatmapID returns the most recently indexed file with the given id.
func (s *Store) ByBeatmapID(ctx context.Context, id int) (IndexedBeatmap, error) {
	row := s.db.QueryRowContext(ctx, selectBeatmap+` WHERE beatmap_id = ? ORDER BY indexed_at DESC LIMIT 1`, id)
	ib, err := scanBeatmap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ib, fmt.Errorf("beatmap %d: %w", id, ErrNotFound)
	}
	return ib, err
}

func (s *Store) ByScan(ctx context.Context, scanID uuid.UUID) ([]IndexedBeatmap, error) {
	rows, err := s.db.QueryContext(ctx, selectBeatmap+` WHERE scan_id = ? ORDER BY path`, scanID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexedBeatmap
	for rows.Next() {
		ib, err := scanBeatmap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ib)
	}
	return out, rows.Err()
}

func (s *Store) Failures(ctx context.Context, scanID uuid.UUID) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scan_id, category, ref, reason FROM failures WHERE scan_id = ? ORDER BY id`, scanID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.ScanID, &f.Category, &f.Ref, &f.Reason); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
