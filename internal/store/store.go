// Package store implements the embedded relational Metadata Store (C4,
// spec §4.4/§6): a single-file SQLite database holding one row per
// ingested file, with an LSH-banded pHash index for candidate recall.
// Grounded on jota2rz-vdj-video-sync's internal/db.Open (pragma setup via
// modernc.org/sqlite, the pure-Go driver) and p0lyn0mial-intelsk's
// services.Storage (CREATE TABLE IF NOT EXISTS migrations run at open,
// INSERT OR REPLACE upserts). The teacher's own internal/db used
// lib/pq against a networked Postgres server, which spec §6's "single
// relational database file under a configurable directory" rules out; see
// DESIGN.md for the dependency-swap justification.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/sylphlab/sotimediaorganizer/internal/keylock"
	"github.com/sylphlab/sotimediaorganizer/internal/mediamodel"
	"github.com/sylphlab/sotimediaorganizer/internal/merr"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path            TEXT PRIMARY KEY,
	content_hash    TEXT NOT NULL,
	size            INTEGER NOT NULL,
	created_at_ms   INTEGER NOT NULL,
	modified_at_ms  INTEGER NOT NULL,
	width           INTEGER,
	height          INTEGER,
	gps_lat         REAL,
	gps_lon         REAL,
	camera_model    TEXT,
	image_date_ms   INTEGER,
	media_duration  REAL NOT NULL DEFAULT 0,
	p_hash          TEXT,
	lsh1            TEXT,
	lsh2            TEXT,
	lsh3            TEXT,
	lsh4            TEXT
);
CREATE INDEX IF NOT EXISTS idx_files_content_hash ON files(content_hash);
CREATE INDEX IF NOT EXISTS idx_files_p_hash ON files(p_hash);
CREATE INDEX IF NOT EXISTS idx_files_size ON files(size);
CREATE INDEX IF NOT EXISTS idx_files_lsh1 ON files(lsh1);
CREATE INDEX IF NOT EXISTS idx_files_lsh2 ON files(lsh2);
CREATE INDEX IF NOT EXISTS idx_files_lsh3 ON files(lsh3);
CREATE INDEX IF NOT EXISTS idx_files_lsh4 ON files(lsh4);
`

// Store is the embedded Metadata Store. Reads may run concurrently;
// writes to the same path are serialized via a key-sharded lock, so two
// concurrent upserts of distinct paths block each other only when their
// paths map to the same lock shard.
type Store struct {
	db     *sql.DB
	writes *keylock.Shards
}

// Open opens (creating if needed) the single-file SQLite database at
// path, enables WAL journaling, and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, merr.Wrap(merr.FileSystem, "store.Open", err).WithPath(path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, merr.Wrap(merr.Database, "store.Open", err).WithPath(path)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, merr.Wrap(merr.Database, "store.Open", err).WithPath(path)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, merr.Wrap(merr.Database, "store.Open", err).WithPath(path)
	}

	return &Store{db: db, writes: keylock.New(32)}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// LSHBands derives the four band keys from a 16-hex-char (64-bit) pHash:
// four consecutive 4-hex-char substrings, per spec §4.7 Stage B. A pHash
// of any other length returns four empty bands (the caller should treat
// this as "no candidates").
func LSHBands(pHashHex string) [4]string {
	var bands [4]string
	if len(pHashHex) != 16 {
		return bands
	}
	for i := 0; i < 4; i++ {
		bands[i] = pHashHex[i*4 : i*4+4]
	}
	return bands
}

// Upsert replaces the row for rec.Path. Writes to distinct paths may run
// concurrently; writes to the same path are serialized.
func (s *Store) Upsert(rec mediamodel.FileRecord) error {
	unlock := s.writes.Lock(rec.Path)
	defer unlock()

	bands := LSHBands(derefStr(rec.PHashHex))
	lsh1, lsh2, lsh3, lsh4 := optionalBand(bands[0]), optionalBand(bands[1]), optionalBand(bands[2]), optionalBand(bands[3])

	_, err := s.db.Exec(`
		INSERT INTO files (
			path, content_hash, size, created_at_ms, modified_at_ms,
			width, height, gps_lat, gps_lon, camera_model, image_date_ms,
			media_duration, p_hash, lsh1, lsh2, lsh3, lsh4
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash=excluded.content_hash,
			size=excluded.size,
			created_at_ms=excluded.created_at_ms,
			modified_at_ms=excluded.modified_at_ms,
			width=excluded.width,
			height=excluded.height,
			gps_lat=excluded.gps_lat,
			gps_lon=excluded.gps_lon,
			camera_model=excluded.camera_model,
			image_date_ms=excluded.image_date_ms,
			media_duration=excluded.media_duration,
			p_hash=excluded.p_hash,
			lsh1=excluded.lsh1, lsh2=excluded.lsh2, lsh3=excluded.lsh3, lsh4=excluded.lsh4
	`,
		rec.Path, rec.ContentHashHex, rec.Size, rec.CreatedAtMs, rec.ModifiedAtMs,
		rec.Width, rec.Height, rec.GPSLat, rec.GPSLon, rec.CameraModel, rec.ImageDateMs,
		rec.MediaDuration, rec.PHashHex, lsh1, lsh2, lsh3, lsh4,
	)
	if err != nil {
		return merr.Wrap(merr.Database, "store.Upsert", err).WithPath(rec.Path)
	}
	return nil
}

// Get returns the record for path, or nil if absent.
func (s *Store) Get(path string) (*mediamodel.FileRecord, error) {
	row := s.db.QueryRow(selectColumns+" WHERE path = ?", path)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, merr.Wrap(merr.Database, "store.Get", err).WithPath(path)
	}
	return rec, nil
}

// GetMany is the batched variant of Get, keyed by path.
func (s *Store) GetMany(paths []string) (map[string]mediamodel.FileRecord, error) {
	out := make(map[string]mediamodel.FileRecord, len(paths))
	if len(paths) == 0 {
		return out, nil
	}

	placeholders, args := inClause(paths)
	rows, err := s.db.Query(selectColumns+" WHERE path IN ("+placeholders+")", args...)
	if err != nil {
		return nil, merr.Wrap(merr.Database, "store.GetMany", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, merr.Wrap(merr.Database, "store.GetMany", err)
		}
		out[rec.Path] = *rec
	}
	return out, rows.Err()
}

// MediaRef is the thin pHash/duration projection media_info_for returns.
type MediaRef struct {
	PHashHex string // "" if the file has no pHash
	Duration float64
}

// MediaInfoFor returns the pHash/duration projection for each of paths
// that exists in the store.
func (s *Store) MediaInfoFor(paths []string) (map[string]MediaRef, error) {
	out := make(map[string]MediaRef, len(paths))
	if len(paths) == 0 {
		return out, nil
	}
	placeholders, args := inClause(paths)
	rows, err := s.db.Query("SELECT path, p_hash, media_duration FROM files WHERE path IN ("+placeholders+")", args...)
	if err != nil {
		return nil, merr.Wrap(merr.Database, "store.MediaInfoFor", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		var pHash sql.NullString
		var dur float64
		if err := rows.Scan(&path, &pHash, &dur); err != nil {
			return nil, merr.Wrap(merr.Database, "store.MediaInfoFor", err)
		}
		out[path] = MediaRef{PHashHex: pHash.String, Duration: dur}
	}
	return out, rows.Err()
}

// FindByPHash returns every record whose p_hash exactly equals hex.
func (s *Store) FindByPHash(hex string) ([]mediamodel.FileRecord, error) {
	rows, err := s.db.Query(selectColumns+" WHERE p_hash = ?", hex)
	if err != nil {
		return nil, merr.Wrap(merr.Database, "store.FindByPHash", err)
	}
	defer rows.Close()

	var out []mediamodel.FileRecord
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, merr.Wrap(merr.Database, "store.FindByPHash", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// FindLSHCandidates returns distinct paths (excluding excludePath) whose
// lsh1..lsh4 matches any non-null band in bands. Null bands are not
// probed, per spec §4.7 Stage B.
func (s *Store) FindLSHCandidates(excludePath string, bands [4]string) ([]string, error) {
	var clauses []string
	var args []any
	for i, b := range bands {
		if b == "" {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("lsh%d = ?", i+1))
		args = append(args, b)
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	query := "SELECT DISTINCT path FROM files WHERE path != ? AND (" + joinOr(clauses) + ")"
	args = append([]any{excludePath}, args...)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, merr.Wrap(merr.Database, "store.FindLSHCandidates", err).WithPath(excludePath)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, merr.Wrap(merr.Database, "store.FindLSHCandidates", err).WithPath(excludePath)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AllPHashes returns the (path, pHashHex) projection for every row with a
// non-null pHash, for dedup Stage A's exact-bucketing snapshot.
func (s *Store) AllPHashes() (map[string]string, error) {
	rows, err := s.db.Query("SELECT path, p_hash FROM files WHERE p_hash IS NOT NULL")
	if err != nil {
		return nil, merr.Wrap(merr.Database, "store.AllPHashes", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, ph string
		if err := rows.Scan(&path, &ph); err != nil {
			return nil, merr.Wrap(merr.Database, "store.AllPHashes", err)
		}
		out[path] = ph
	}
	return out, rows.Err()
}

// AllPaths returns every path known to the store, including those with a
// null pHash (the unclassified set for dedup Stage A/D).
func (s *Store) AllPaths() ([]string, error) {
	rows, err := s.db.Query("SELECT path FROM files")
	if err != nil {
		return nil, merr.Wrap(merr.Database, "store.AllPaths", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, merr.Wrap(merr.Database, "store.AllPaths", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
