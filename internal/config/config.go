// Package config loads the engine's layered configuration (defaults,
// optional config file, environment overrides) via spf13/viper, mirroring
// GoonHub's internal/config.Load: SetDefault calls for every option,
// environment-prefix overrides, then Unmarshal into a typed struct.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is every option the core and its ambient stack recognize. Field
// names track spec §6's option names; struct grouping mirrors the
// components that consume each group.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	Hash       HashConfig       `mapstructure:"hash"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Store      StoreConfig      `mapstructure:"store"`
	JobCache   JobCacheConfig   `mapstructure:"job_cache"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Log        LogConfig        `mapstructure:"log"`

	Concurrency int `mapstructure:"concurrency"`
}

// HashConfig configures the DCT perceptual hasher (C1/§4.6.1).
type HashConfig struct {
	Resolution int `mapstructure:"resolution"`
	HashSize   int `mapstructure:"hash_size"`
}

// ExtractionConfig configures the frame extractor's scene/interval policy
// (C6/§4.6) and the content-hash chunking threshold (§3).
type ExtractionConfig struct {
	TargetFPS            float64 `mapstructure:"target_fps"`
	MinFrames            int     `mapstructure:"min_frames"`
	MaxSceneFrames       int     `mapstructure:"max_scene_frames"`
	SceneChangeThreshold float64 `mapstructure:"scene_change_threshold"`
	MaxChunkSize         int64   `mapstructure:"max_chunk_size"`
}

// SimilarityConfig configures the windowed video comparison and the
// adaptive per-pair thresholds (C2/§4.2).
type SimilarityConfig struct {
	WindowSize                    int     `mapstructure:"window_size"`
	StepSize                      float64 `mapstructure:"step_size"`
	ImageSimilarityThreshold      float64 `mapstructure:"image_similarity_threshold"`
	ImageVideoSimilarityThreshold float64 `mapstructure:"image_video_similarity_threshold"`
	VideoSimilarityThreshold      float64 `mapstructure:"video_similarity_threshold"`
}

// StoreConfig locates the embedded metadata store (C4/§6).
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// JobCacheConfig locates the embedded job cache (C8/§6).
type JobCacheConfig struct {
	Path string `mapstructure:"path"`
}

// JobsConfig configures the asynq-backed background queue and the cron
// scheduler that drives periodic dedup runs.
type JobsConfig struct {
	RedisAddr    string `mapstructure:"redis_addr"`
	QueueName    string `mapstructure:"queue_name"`
	CronSchedule string `mapstructure:"cron_schedule"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Load reads configuration from environment variables prefixed
// SOTIDEDUP_, an optional file, and the defaults below, in that
// descending order of precedence. path may be empty to skip the
// config-file layer.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", "./data")

	v.SetDefault("hash.resolution", 64)
	v.SetDefault("hash.hash_size", 8)

	v.SetDefault("extraction.target_fps", 0.5)
	v.SetDefault("extraction.min_frames", 15)
	v.SetDefault("extraction.max_scene_frames", 200)
	v.SetDefault("extraction.scene_change_threshold", 0.01)
	v.SetDefault("extraction.max_chunk_size", 1<<20)

	v.SetDefault("similarity.window_size", 5)
	v.SetDefault("similarity.step_size", 1)
	v.SetDefault("similarity.image_similarity_threshold", 0.98)
	v.SetDefault("similarity.image_video_similarity_threshold", 0.93)
	v.SetDefault("similarity.video_similarity_threshold", 0.93)

	v.SetDefault("store.path", "./data/metadata.db")
	v.SetDefault("job_cache.path", "./data/jobcache.db")

	v.SetDefault("jobs.redis_addr", "127.0.0.1:6379")
	v.SetDefault("jobs.queue_name", "sotidedup")
	v.SetDefault("jobs.cron_schedule", "@every 1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("concurrency", 4)

	v.SetEnvPrefix("SOTIDEDUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ExtractionSnapshot is the subset of ExtractionConfig the Frame
// Extraction job caches its config snapshot under (spec §4.5.3): changing
// any of these fields must invalidate cached frame extractions, but
// unrelated config changes (e.g. log level) must not.
type ExtractionSnapshot struct {
	Resolution           int
	HashSize             int
	TargetFPS            float64
	MinFrames            int
	MaxSceneFrames       int
	SceneChangeThreshold float64
}

// Snapshot projects the fields that participate in job-cache invalidation
// for frame extraction.
func (c *Config) Snapshot() ExtractionSnapshot {
	return ExtractionSnapshot{
		Resolution:           c.Hash.Resolution,
		HashSize:             c.Hash.HashSize,
		TargetFPS:            c.Extraction.TargetFPS,
		MinFrames:            c.Extraction.MinFrames,
		MaxSceneFrames:       c.Extraction.MaxSceneFrames,
		SceneChangeThreshold: c.Extraction.SceneChangeThreshold,
	}
}
