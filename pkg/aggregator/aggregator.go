// Package aggregator runs the jobs that fold raw traffic captures into the
// historical archive: full generation, incremental update, and the daily
// part-file push and offload cycle.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/storage"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/tags"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/weather"
)

// ErrNoReference is returned by Update when no reference records are given
var ErrNoReference = errors.New("update requires reference records")

// ErrArchiveExists is returned by Generate when an archive is already present
var ErrArchiveExists = errors.New("archive already exists")

// ErrTooFewRecords is returned by an unforced Offload of a sparse part file
var ErrTooFewRecords = errors.New("not enough part file records to offload")

// Config holds aggregator configuration
type Config struct {
	RawDir            string
	MinOffloadRecords int
	Location          *time.Location
}

// DefaultConfig returns default aggregator configuration
func DefaultConfig() *Config {
	return &Config{
		RawDir:            "Traffic_Records",
		MinOffloadRecords: 16,
		Location:          tags.Zone(tags.DefaultZoneOffset),
	}
}

// Aggregator serialises every job against one archive
type Aggregator struct {
	cfg     *Config
	archive storage.Archive
	part    *storage.PartFile
	tags    tags.Store
	weather weather.Provider
	now     func() time.Time
	logger  *log.Logger

	mu   sync.Mutex
	last *types.JobResult
}

// New creates an aggregator. tagStore and wp may be nil: dates then get their
// default tag and the weather reads as Unknown.
func New(cfg *Config, archive storage.Archive, part *storage.PartFile, tagStore tags.Store, wp weather.Provider) *Aggregator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Location == nil {
		cfg.Location = tags.Zone(tags.DefaultZoneOffset)
	}
	if wp == nil {
		wp = weather.Static(weather.Unknown)
	}
	return &Aggregator{
		cfg:     cfg,
		archive: archive,
		part:    part,
		tags:    tagStore,
		weather: wp,
		now:     time.Now,
		logger:  log.Default(),
	}
}

// SetClock replaces the time source used for day boundaries
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// SetLogger replaces the job logger
func (a *Aggregator) SetLogger(l *log.Logger) {
	a.logger = l
}

// LastResult returns the outcome of the most recent successful job
func (a *Aggregator) LastResult() *types.JobResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *Aggregator) localNow() time.Time {
	return a.now().In(a.cfg.Location)
}

// Generate builds a new archive from every raw file in dir
func (a *Aggregator) Generate(ctx context.Context, dir string) (*types.JobResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.track("generate", func() (*types.JobResult, error) {
		return a.generateLocked(ctx, dir)
	})
}

func (a *Aggregator) generateLocked(ctx context.Context, dir string) (*types.JobResult, error) {
	if a.archive.Exists() {
		return nil, ErrArchiveExists
	}
	return a.run(ctx, dir, nil)
}

// Update folds the raw files of dates not yet covered into ref, the
// tag-centric records loaded from the archive, and rewrites only the tags
// that changed
func (a *Aggregator) Update(ctx context.Context, ref []*types.DayRecord, dir string) (*types.JobResult, error) {
	if ref == nil {
		return nil, ErrNoReference
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.track("update", func() (*types.JobResult, error) {
		return a.run(ctx, dir, ref)
	})
}

// Refresh loads the archive and updates it from dir, or generates it when
// no archive exists yet
func (a *Aggregator) Refresh(ctx context.Context, dir string) (*types.JobResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.archive.Exists() {
		return a.track("generate", func() (*types.JobResult, error) {
			return a.generateLocked(ctx, dir)
		})
	}

	return a.track("update", func() (*types.JobResult, error) {
		_, ref, err := a.archive.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load archive: %w", err)
		}
		if ref == nil {
			ref = []*types.DayRecord{}
		}
		return a.run(ctx, dir, ref)
	})
}

// track records metrics and the last result for one job (must hold lock)
func (a *Aggregator) track(job string, fn func() (*types.JobResult, error)) (*types.JobResult, error) {
	start := time.Now()
	res, err := fn()
	elapsed := time.Since(start)
	jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())

	if err != nil {
		jobFailures.WithLabelValues(job).Inc()
		a.logger.Printf("aggregator: %s failed: %v", job, err)
		return nil, err
	}

	res.Duration = elapsed
	a.last = res
	a.logger.Printf("aggregator: %s finished in %v: %d files, %d dates, %d tags written",
		job, elapsed, res.FilesParsed, len(res.DatesTouched), len(res.TagsWritten))
	return res, nil
}
