package jobcache

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
	"go.uber.org/zap"

	"github.com/sylphlab/sotimediaorganizer/internal/keylock"
	"github.com/sylphlab/sotimediaorganizer/internal/merr"
)

const schema = `
CREATE TABLE IF NOT EXISTS job_cache (
	job_name TEXT NOT NULL,
	key      TEXT NOT NULL,
	result   BLOB NOT NULL,
	config   BLOB NOT NULL,
	PRIMARY KEY (job_name, key)
);
CREATE TABLE IF NOT EXISTS job_cache_audit (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	job_name  TEXT NOT NULL,
	key       TEXT NOT NULL,
	reason    TEXT NOT NULL,
	at_ms     INTEGER NOT NULL
);
`

// Cache is the embedded Job Cache. It stores, per (jobName, key), the
// serialized result and the config snapshot it was computed under in a
// single row so both fields update atomically. A per-key mutex shard
// serializes concurrent readers/writers of the same key, per spec §4.8.
//
// The audit log (job_cache_audit) is a supplemental feature beyond the
// base spec: every invalidation (config-mismatch miss, explicit
// invalidate) is recorded for later debugging of unexpectedly-stale or
// unexpectedly-recomputed results.
type Cache struct {
	db    *sql.DB
	locks *keylock.Shards
	log   *zap.Logger
	nowMs func() int64
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithClock overrides the wall-clock source used for audit timestamps,
// for deterministic tests.
func WithClock(nowMs func() int64) Option {
	return func(c *Cache) { c.nowMs = nowMs }
}

// WithLogger attaches a logger; defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// Open opens (creating if needed) the single-file SQLite job cache at
// path.
func Open(path string, opts ...Option) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, merr.Wrap(merr.FileSystem, "jobcache.Open", err).WithPath(path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, merr.Wrap(merr.Database, "jobcache.Open", err).WithPath(path)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, merr.Wrap(merr.Database, "jobcache.Open", err).WithPath(path)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, merr.Wrap(merr.Database, "jobcache.Open", err).WithPath(path)
	}

	c := &Cache{db: db, locks: keylock.New(32), log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Get looks up jobName/key, decoding the stored result into dest only if
// the stored config snapshot deep-equals config (per its canonical
// encoding). Cache failures of any kind degrade to a miss with a logged
// warning rather than propagating an error, per spec §7: a false return
// covers both an absent entry and a failed lookup.
func (c *Cache) Get(jobName, key string, config any, dest any) bool {
	unlock := c.locks.Lock(keyFor(jobName, key))
	defer unlock()

	var resultBytes, configBytes []byte
	err := c.db.QueryRow("SELECT result, config FROM job_cache WHERE job_name = ? AND key = ?", jobName, key).
		Scan(&resultBytes, &configBytes)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		c.log.Warn("jobcache get failed, degrading to recompute", zap.String("job", jobName), zap.String("key", key), zap.Error(err))
		return false
	}

	wantConfig, err := encode(config)
	if err != nil {
		c.log.Warn("jobcache config encode failed, degrading to recompute", zap.Error(err))
		return false
	}
	if !bytes.Equal(wantConfig, configBytes) {
		c.audit(jobName, key, "config_mismatch")
		return false
	}

	if _, err := decode(resultBytes, dest); err != nil {
		c.log.Warn("jobcache result decode failed, degrading to recompute", zap.String("job", jobName), zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Put stores result and the config snapshot it was computed under,
// atomically (a single-row UPDATE/INSERT). A write failure is logged and
// swallowed: per spec §7, cache failures never fail the caller's
// computation.
func (c *Cache) Put(jobName, key string, result any, config any) {
	unlock := c.locks.Lock(keyFor(jobName, key))
	defer unlock()

	resultBytes, err := encode(result)
	if err != nil {
		c.log.Warn("jobcache result encode failed, skipping write", zap.Error(err))
		return
	}
	configBytes, err := encode(config)
	if err != nil {
		c.log.Warn("jobcache config encode failed, skipping write", zap.Error(err))
		return
	}

	_, err = c.db.Exec(`
		INSERT INTO job_cache (job_name, key, result, config) VALUES (?, ?, ?, ?)
		ON CONFLICT(job_name, key) DO UPDATE SET result=excluded.result, config=excluded.config
	`, jobName, key, resultBytes, configBytes)
	if err != nil {
		c.log.Warn("jobcache write failed", zap.String("job", jobName), zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes a cached entry outright, recording why in the audit
// log.
func (c *Cache) Invalidate(jobName, key, reason string) {
	unlock := c.locks.Lock(keyFor(jobName, key))
	defer unlock()

	if _, err := c.db.Exec("DELETE FROM job_cache WHERE job_name = ? AND key = ?", jobName, key); err != nil {
		c.log.Warn("jobcache invalidate failed", zap.Error(err))
		return
	}
	c.audit(jobName, key, reason)
}

func (c *Cache) audit(jobName, key, reason string) {
	ms := int64(0)
	if c.nowMs != nil {
		ms = c.nowMs()
	}
	if _, err := c.db.Exec("INSERT INTO job_cache_audit (job_name, key, reason, at_ms) VALUES (?, ?, ?, ?)", jobName, key, reason, ms); err != nil {
		c.log.Warn("jobcache audit write failed", zap.Error(err))
	}
}
