// Command sotidedup runs the perceptual-hash media deduplication engine:
// it ingests files into the metadata store, serves an asynq task queue
// for per-file ingest and library-wide dedup runs, and re-runs dedup on
// a cron schedule. Grounded on CineVault's cmd/server/main.go: config
// load, collaborator construction, handler registration, then a set of
// background loops started and deferred-stopped in sequence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sylphlab/sotimediaorganizer/internal/config"
	"github.com/sylphlab/sotimediaorganizer/internal/dedup"
	"github.com/sylphlab/sotimediaorganizer/internal/events"
	"github.com/sylphlab/sotimediaorganizer/internal/extractor"
	"github.com/sylphlab/sotimediaorganizer/internal/jobcache"
	"github.com/sylphlab/sotimediaorganizer/internal/jobs"
	"github.com/sylphlab/sotimediaorganizer/internal/logging"
	"github.com/sylphlab/sotimediaorganizer/internal/mediaio"
	"github.com/sylphlab/sotimediaorganizer/internal/metrics"
	"github.com/sylphlab/sotimediaorganizer/internal/phash"
	"github.com/sylphlab/sotimediaorganizer/internal/processor"
	"github.com/sylphlab/sotimediaorganizer/internal/scheduler"
	"github.com/sylphlab/sotimediaorganizer/internal/similarity"
	"github.com/sylphlab/sotimediaorganizer/internal/store"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (optional; env vars and defaults otherwise)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("sotidedup: failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("sotidedup: failed to build logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("sotidedup: starting", zap.String("data_dir", cfg.DataDir))

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Fatal("sotidedup: failed to open metadata store", zap.Error(err))
	}
	defer st.Close()

	cache, err := jobcache.Open(cfg.JobCache.Path, jobcache.WithLogger(logger))
	if err != nil {
		logger.Fatal("sotidedup: failed to open job cache", zap.Error(err))
	}
	defer cache.Close()

	hasher := phash.NewHasher(cfg.Hash.Resolution, cfg.Hash.HashSize)
	frameSource := mediaio.NewFFmpegFrameSource()
	metaReader := mediaio.NewExiftoolMetadataReader()

	ex := extractor.New(frameSource, hasher, extractor.Params{
		Resolution:           cfg.Hash.Resolution,
		HashSize:             cfg.Hash.HashSize,
		TargetFPS:            cfg.Extraction.TargetFPS,
		MinFrames:            cfg.Extraction.MinFrames,
		MaxSceneFrames:       cfg.Extraction.MaxSceneFrames,
		SceneChangeThreshold: cfg.Extraction.SceneChangeThreshold,
		Concurrency:          cfg.Concurrency,
	})
	proc := processor.New(cache, st, metaReader, ex, cfg.Extraction.MaxChunkSize, cfg.Snapshot(), processor.WithLogger(logger))

	thresholds := similarity.Thresholds{
		Image:      cfg.Similarity.ImageSimilarityThreshold,
		ImageVideo: cfg.Similarity.ImageVideoSimilarityThreshold,
		Video:      cfg.Similarity.VideoSimilarityThreshold,
	}
	windowCfg := similarity.WindowConfig{StepSize: cfg.Similarity.StepSize}
	detector := dedup.New(st, thresholds, windowCfg, dedup.WithLogger(logger))

	hub := events.NewHub()
	m := metrics.New(prometheus.DefaultRegisterer)

	queue := jobs.NewQueue(cfg.Jobs.RedisAddr, cfg.Concurrency, logger)
	queue.RegisterHandler(jobs.TaskIngestFile, jobs.NewIngestHandler(proc, hub, m, logger))
	queue.RegisterHandler(jobs.TaskRunDedup, jobs.NewDedupHandler(detector, hub, m, logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := queue.Start(ctx); err != nil {
			logger.Error("sotidedup: job queue worker stopped with error", zap.Error(err))
		}
	}()

	sched, err := scheduler.New(cfg.Jobs.CronSchedule, func(ctx context.Context) {
		if _, err := queue.EnqueueUnique(jobs.TaskRunDedup, jobs.RunDedupPayload{}, "scheduled-dedup"); err != nil {
			logger.Warn("sotidedup: failed to enqueue scheduled dedup run", zap.Error(err))
		}
	}, logger)
	if err != nil {
		logger.Fatal("sotidedup: invalid cron schedule", zap.String("schedule", cfg.Jobs.CronSchedule), zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	fmt.Println("sotidedup: ready")
	<-ctx.Done()
	logger.Info("sotidedup: shutting down")
}
