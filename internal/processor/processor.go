// Package processor implements the Per-File Processor (C5, spec §4.5):
// given a path, runs three Job-Cache-backed sub-jobs (FileStats first,
// then Metadata and Frame Extraction concurrently), joins on the first
// error, and
// on success upserts the result into the Metadata Store. Grounded on
// CineVault's internal/jobs handler pattern (a small struct wrapping its
// collaborators, one method per unit of work) generalized from
// CineVault's single-purpose job handlers into this package's
// three-concurrent-sub-jobs join.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/sylphlab/sotimediaorganizer/internal/extractor"
	"github.com/sylphlab/sotimediaorganizer/internal/filehash"
	"github.com/sylphlab/sotimediaorganizer/internal/jobcache"
	"github.com/sylphlab/sotimediaorganizer/internal/mediaio"
	"github.com/sylphlab/sotimediaorganizer/internal/mediamodel"
	"github.com/sylphlab/sotimediaorganizer/internal/merr"
	"github.com/sylphlab/sotimediaorganizer/internal/store"
)

const (
	jobFileStats          = "fileStats"
	jobMetadataExtraction = "metadataExtraction"
	jobAdaptiveExtraction = "adaptiveExtraction"
)

// Processor wires the three sub-jobs to their shared collaborators.
type Processor struct {
	cache     *jobcache.Cache
	store     *store.Store
	reader    mediaio.MetadataReader
	extractor *extractor.Extractor

	maxChunkSize int64
	extractCfg   any // deep-compared config snapshot for the extraction job
	log          *zap.Logger
}

// Option configures optional Processor behavior.
type Option func(*Processor)

// WithLogger attaches a logger for per-ingest progress messages. Without
// it, Ingest stays silent.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.log = l }
}

// New constructs a Processor. extractCfg is opaque to this package; it is
// whatever config.Config.Snapshot() (or an equivalent comparable value)
// the caller wants the Frame Extraction job invalidated against.
func New(cache *jobcache.Cache, st *store.Store, reader mediaio.MetadataReader, ex *extractor.Extractor, maxChunkSize int64, extractCfg any, opts ...Option) *Processor {
	p := &Processor{cache: cache, store: st, reader: reader, extractor: ex, maxChunkSize: maxChunkSize, extractCfg: extractCfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type subResult struct {
	stats mediamodel.FileStats
	meta  mediamodel.Metadata
	media mediamodel.MediaInfo
	err   error
}

// Ingest runs FileStats, then Metadata and Frame Extraction concurrently
// (both are keyed by the content hash FileStats yields), and on success upserts
// the resulting FileInfo into the Metadata Store. A sub-job failure
// returns the first observed error and does not write to the store. A
// store write failure after successful ingest does not demote the
// result: the caller still gets the valid FileInfo, per spec §7.
func (p *Processor) Ingest(ctx context.Context, path string) (mediamodel.FileInfo, error) {
	start := time.Now()
	statsCh := make(chan subResult, 1)
	go func() { statsCh <- p.runFileStats(path) }()

	// Metadata and Frame Extraction are both keyed by content-hash, so
	// they wait on FileStats rather than racing it a second time.
	statsRes := <-statsCh
	if statsRes.err != nil {
		return mediamodel.FileInfo{}, statsRes.err
	}
	contentHashHex := filehash.Hex(statsRes.stats)

	var wg sync.WaitGroup
	var metaRes, mediaRes subResult
	wg.Add(2)
	go func() { defer wg.Done(); metaRes = p.runMetadata(ctx, path, contentHashHex) }()
	go func() { defer wg.Done(); mediaRes = p.runExtraction(ctx, path, contentHashHex) }()
	wg.Wait()

	if metaRes.err != nil {
		return mediamodel.FileInfo{}, metaRes.err
	}
	if mediaRes.err != nil {
		return mediamodel.FileInfo{}, mediaRes.err
	}

	fi := mediamodel.FileInfo{
		Path:  path,
		Stats: statsRes.stats,
		Meta:  metaRes.meta,
		Media: mediaRes.media,
	}

	if err := p.store.Upsert(toRecord(path, contentHashHex, fi)); err != nil {
		// A failed write after successful ingest does not fail Ingest;
		// the file is still re-ingested on the next run (spec §7).
		p.log.Warn("processor: store upsert failed after successful ingest", zap.String("path", path), zap.Error(err))
	}

	p.log.Info("processor: ingested",
		zap.String("path", path),
		zap.String("size", humanize.Bytes(uint64(fi.Stats.Size))),
		zap.Duration("elapsed", time.Since(start)),
	)

	return fi, nil
}

func (p *Processor) runFileStats(path string) subResult {
	type cacheKey struct {
		MaxChunkSize int64
	}
	cfg := cacheKey{MaxChunkSize: p.maxChunkSize}

	var cached mediamodel.FileStats
	if p.cache.Get(jobFileStats, path, cfg, &cached) {
		return subResult{stats: cached}
	}

	stats, err := filehash.Compute(path, p.maxChunkSize)
	if err != nil {
		return subResult{err: merr.Wrap(merr.FileSystem, "processor.runFileStats", err).WithPath(path)}
	}
	p.cache.Put(jobFileStats, path, stats, cfg)
	return subResult{stats: stats}
}

func (p *Processor) runMetadata(ctx context.Context, path, contentHashHex string) subResult {
	type noConfig struct{}

	var cached mediamodel.Metadata
	if p.cache.Get(jobMetadataExtraction, contentHashHex, noConfig{}, &cached) {
		return subResult{meta: cached}
	}

	tags, err := p.reader.ReadTags(ctx, path)
	if err != nil {
		return subResult{err: merr.Wrap(merr.ExternalTool, "processor.runMetadata", err).WithPath(path)}
	}

	imageDate, width, height, lat, lon, camera := mediaio.ProjectTags(tags)
	meta := mediamodel.Metadata{ImageDate: imageDate, Width: width, Height: height, GPSLat: lat, GPSLon: lon, CameraModel: camera}

	p.cache.Put(jobMetadataExtraction, contentHashHex, meta, noConfig{})
	return subResult{meta: meta}
}

func (p *Processor) runExtraction(ctx context.Context, path, contentHashHex string) subResult {
	var cached mediamodel.MediaInfo
	if p.cache.Get(jobAdaptiveExtraction, contentHashHex, p.extractCfg, &cached) {
		return subResult{media: cached}
	}

	media, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return subResult{err: merr.Wrap(merr.Hashing, "processor.runExtraction", err).WithPath(path)}
	}

	p.cache.Put(jobAdaptiveExtraction, contentHashHex, media, p.extractCfg)
	return subResult{media: media}
}

func toRecord(path, contentHashHex string, fi mediamodel.FileInfo) mediamodel.FileRecord {
	rec := mediamodel.FileRecord{
		Path:           path,
		ContentHashHex: contentHashHex,
		Size:           fi.Stats.Size,
		CreatedAtMs:    fi.Stats.CreatedAt.UnixMilli(),
		ModifiedAtMs:   fi.Stats.ModifiedAt.UnixMilli(),
		Width:          fi.Meta.Width,
		Height:         fi.Meta.Height,
		GPSLat:         fi.Meta.GPSLat,
		GPSLon:         fi.Meta.GPSLon,
		CameraModel:    fi.Meta.CameraModel,
		MediaDuration:  fi.Media.Duration,
	}
	if fi.Meta.ImageDate != nil {
		ms := fi.Meta.ImageDate.UnixMilli()
		rec.ImageDateMs = &ms
	}
	if ph := fi.PHashHex(); ph != "" {
		rec.PHashHex = &ph
	}
	return rec
}
