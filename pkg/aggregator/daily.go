package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/codec"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/coverage"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/rawfile"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/record"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/tags"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/weather"
)

// tagRefreshHour reports whether captures at hour refresh today's tag
// (02:00, 08:00, 14:00 and 20:00)
func tagRefreshHour(hour int) bool {
	return hour%6 == 2
}

// PushSample appends one raw capture taken at timestamp (HHMM) to the part
// file. Captures at the tag refresh hours also refresh today's tag, and the
// first capture after midnight offloads the previous day first. A failed
// offload is reported after the capture has been stored.
func (a *Aggregator) PushSample(ctx context.Context, rawPath, timestamp string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(timestamp) == 3 {
		timestamp += "0"
	}
	bucket, err := record.BucketTimestamp(timestamp)
	if err != nil {
		return err
	}
	hour, _ := strconv.Atoi(timestamp[:2])

	parsed, err := rawfile.ParseFile(ctx, rawfile.File{Path: rawPath, Time: timestamp})
	if err != nil {
		return fmt.Errorf("failed to load capture: %w", err)
	}
	if parsed.Skipped > 0 {
		linesSkipped.Add(float64(parsed.Skipped))
	}

	if tagRefreshHour(hour) {
		if _, err := a.updateTagFileLocked(ctx, a.localNow()); err != nil {
			a.logger.Printf("aggregator: tag refresh failed: %v", err)
		}
	}

	var offloadErr error
	if hour == 0 {
		_, offloadErr = a.track("offload", func() (*types.JobResult, error) {
			return a.offloadLocked(ctx, false)
		})
	}

	entry := types.Bucket{Timestamp: bucket, Data: codec.EncodeSampleSet(parsed.Set)}
	if err := a.part.Append(entry); err != nil {
		return fmt.Errorf("failed to append capture: %w", err)
	}
	samplesPushed.Inc()

	if offloadErr != nil {
		return fmt.Errorf("failed to offload previous day: %w", offloadErr)
	}
	return nil
}

// Offload folds the part file into the archive block of the previous day's
// tag and removes the part file. Unless forced, the part file must hold at
// least MinOffloadRecords distinct captures.
func (a *Aggregator) Offload(ctx context.Context, force bool) (*types.JobResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.track("offload", func() (*types.JobResult, error) {
		return a.offloadLocked(ctx, force)
	})
}

func (a *Aggregator) offloadLocked(ctx context.Context, force bool) (*types.JobResult, error) {
	if !force {
		count, err := a.part.CountRecords()
		if err != nil {
			return nil, fmt.Errorf("failed to check part file: %w", err)
		}
		if count < a.cfg.MinOffloadRecords {
			return nil, fmt.Errorf("%w: %d of %d", ErrTooFewRecords, count, a.cfg.MinOffloadRecords)
		}
	}

	date := tags.PreviousDay(a.localNow())
	tag, err := tags.Resolve(ctx, a.tags, date)
	if err != nil {
		return nil, err
	}

	if !a.archive.Exists() {
		a.logger.Printf("aggregator: no archive yet, generating from %s", a.cfg.RawDir)
		if _, err := a.track("generate", func() (*types.JobResult, error) {
			return a.generateLocked(ctx, a.cfg.RawDir)
		}); err != nil && !errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("failed to generate archive: %w", err)
		}
	}

	captures, err := a.part.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load part file: %w", err)
	}

	day := types.NewDayRecord(date, tag)
	day.Buckets = record.Reduce(captures)
	if failed := record.NormalizeAll(day); failed > 0 {
		mergeFailures.Add(float64(failed))
	}

	header := &types.FileHeader{}
	if a.archive.Exists() {
		if header, err = a.archive.Info(ctx); err != nil {
			return nil, fmt.Errorf("failed to read archive header: %w", err)
		}
	}

	target, err := a.archive.LoadTag(ctx, tag)
	switch {
	case errors.Is(err, types.ErrNotFound):
		target = types.NewDayRecord(types.UnknownDate, tag)
	case err != nil:
		return nil, fmt.Errorf("failed to load block for %s: %w", tag, err)
	}
	if failed := record.MergeRecord(target, day); failed > 0 {
		mergeFailures.Add(float64(failed))
	}

	cov, err := coverage.Merge(header.Coverage, date)
	if err != nil {
		return nil, fmt.Errorf("failed to update coverage: %w", err)
	}

	if err := a.archive.Rewrite(ctx, &types.FileHeader{Coverage: cov, Tags: []string{tag}}, []*types.DayRecord{target}); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	tagsWritten.Inc()

	if err := a.part.Remove(); err != nil {
		return nil, err
	}

	return &types.JobResult{
		DatesTouched: []string{date},
		TagsWritten:  []string{tag},
		Coverage:     cov,
	}, nil
}

// UpdateTagFile records today's tag with the current weather, or upgrades
// the weather part of an existing entry. It returns the stored tag.
func (a *Aggregator) UpdateTagFile(ctx context.Context, now time.Time) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.updateTagFileLocked(ctx, now.In(a.cfg.Location))
}

func (a *Aggregator) updateTagFileLocked(ctx context.Context, now time.Time) (string, error) {
	if a.tags == nil {
		return "", fmt.Errorf("no tag store configured")
	}

	today := tags.DateString(now)
	def := tags.DefaultTag(now)

	cond, err := a.weather.CurrentCondition(ctx)
	if err != nil {
		a.logger.Printf("aggregator: weather lookup failed: %v", err)
		cond = weather.Unknown
	}
	observed := tags.WeatherTag(cond)

	current, ok, err := a.tags.Lookup(ctx, today)
	if err != nil {
		return "", fmt.Errorf("failed to read tag for %s: %w", today, err)
	}

	next := current
	switch {
	case !ok:
		next = tags.Compose(def, observed)
	default:
		if upgraded, changed := tags.Upgrade(current, observed); changed {
			next = tags.Compose(def, upgraded)
		}
	}

	if next != current {
		if err := a.tags.Put(ctx, today, next); err != nil {
			return "", fmt.Errorf("failed to store tag for %s: %w", today, err)
		}
		a.logger.Printf("aggregator: tag for %s set to %q", today, next)
	}
	return next, nil
}
