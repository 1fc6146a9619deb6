package store

import (
	"database/sql"
	"strings"

	"github.com/sylphlab/sotimediaorganizer/internal/mediamodel"
)

const selectColumns = `SELECT
	path, content_hash, size, created_at_ms, modified_at_ms,
	width, height, gps_lat, gps_lon, camera_model, image_date_ms,
	media_duration, p_hash, lsh1, lsh2, lsh3, lsh4
FROM files`

// rowScanner abstracts over *sql.Row and *sql.Rows, both of which expose
// Scan(...) with the same signature.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row *sql.Row) (*mediamodel.FileRecord, error) {
	return scanInto(row)
}

func scanRecordRows(rows *sql.Rows) (*mediamodel.FileRecord, error) {
	return scanInto(rows)
}

func scanInto(s rowScanner) (*mediamodel.FileRecord, error) {
	var rec mediamodel.FileRecord
	var width, height sql.NullInt64
	var gpsLat, gpsLon sql.NullFloat64
	var camera sql.NullString
	var imageDateMs sql.NullInt64
	var pHash, lsh1, lsh2, lsh3, lsh4 sql.NullString

	err := s.Scan(
		&rec.Path, &rec.ContentHashHex, &rec.Size, &rec.CreatedAtMs, &rec.ModifiedAtMs,
		&width, &height, &gpsLat, &gpsLon, &camera, &imageDateMs,
		&rec.MediaDuration, &pHash, &lsh1, &lsh2, &lsh3, &lsh4,
	)
	if err != nil {
		return nil, err
	}

	rec.Width = nullIntPtr(width)
	rec.Height = nullIntPtr(height)
	rec.GPSLat = nullFloatPtr(gpsLat)
	rec.GPSLon = nullFloatPtr(gpsLon)
	rec.CameraModel = nullStringPtr(camera)
	rec.ImageDateMs = nullInt64Ptr(imageDateMs)
	rec.PHashHex = nullStringPtr(pHash)
	rec.LSH1 = nullStringPtr(lsh1)
	rec.LSH2 = nullStringPtr(lsh2)
	rec.LSH3 = nullStringPtr(lsh3)
	rec.LSH4 = nullStringPtr(lsh4)
	return &rec, nil
}

func nullIntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullFloatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullStringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalBand(b string) any {
	if b == "" {
		return nil
	}
	return b
}

func inClause(items []string) (string, []any) {
	placeholders := make([]string, len(items))
	args := make([]any, len(items))
	for i, it := range items {
		placeholders[i] = "?"
		args[i] = it
	}
	return strings.Join(placeholders, ","), args
}

func joinOr(clauses []string) string {
	return strings.Join(clauses, " OR ")
}
