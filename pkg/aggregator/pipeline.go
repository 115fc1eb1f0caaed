package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/codec"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/coverage"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/rawfile"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/record"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/tags"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

// dayBatch holds the date-keyed records built from one run's raw files
type dayBatch struct {
	byDate map[string]*types.DayRecord
	order  []string
}

// tagSet is the authoritative tag-keyed accumulation of a run
type tagSet struct {
	byTag map[string]*types.DayRecord
	order []string
}

func newTagSet(ref []*types.DayRecord) *tagSet {
	ts := &tagSet{byTag: make(map[string]*types.DayRecord, len(ref))}
	for _, rec := range ref {
		if _, dup := ts.byTag[rec.Tag]; dup {
			continue
		}
		rec.Dirty = false
		ts.byTag[rec.Tag] = rec
		ts.order = append(ts.order, rec.Tag)
	}
	return ts
}

// run executes Discover, Parse, Bucket, Normalize, Reclassify and Persist
// (must hold lock)
func (a *Aggregator) run(ctx context.Context, dir string, ref []*types.DayRecord) (*types.JobResult, error) {
	header := &types.FileHeader{}
	if a.archive.Exists() {
		h, err := a.archive.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read archive header: %w", err)
		}
		header = h
	}

	skip, err := coverage.NewFilter(header.Coverage)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive coverage: %w", err)
	}

	files, err := rawfile.Discover(dir, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to discover raw files: %w", err)
	}

	res := &types.JobResult{}
	batch, err := a.collect(ctx, files, res)
	if err != nil {
		return nil, err
	}
	if len(batch.order) == 0 {
		a.logger.Printf("aggregator: no new raw files in %s", dir)
		res.Coverage = header.Coverage
		return res, nil
	}

	for _, date := range batch.order {
		if failed := record.NormalizeAll(batch.byDate[date]); failed > 0 {
			mergeFailures.Add(float64(failed))
		}
	}

	set := newTagSet(ref)
	if err := a.reclassify(ctx, batch, set); err != nil {
		return nil, err
	}

	cov, err := coverage.Merge(header.Coverage, strings.Join(batch.order, ","))
	if err != nil {
		return nil, fmt.Errorf("failed to update coverage: %w", err)
	}

	var dirty []*types.DayRecord
	for _, tag := range set.order {
		if rec := set.byTag[tag]; rec.Dirty && len(rec.Buckets) > 0 {
			dirty = append(dirty, rec)
			res.TagsWritten = append(res.TagsWritten, tag)
		}
	}

	header.Coverage = cov
	header.Tags = res.TagsWritten
	if err := a.archive.Rewrite(ctx, header, dirty); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	for _, rec := range dirty {
		rec.Dirty = false
	}

	tagsWritten.Add(float64(len(dirty)))
	res.DatesTouched = batch.order
	res.Coverage = cov
	return res, nil
}

// collect parses each raw file into the bucket of its date
func (a *Aggregator) collect(ctx context.Context, files []rawfile.File, res *types.JobResult) (*dayBatch, error) {
	batch := &dayBatch{byDate: make(map[string]*types.DayRecord)}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ts, err := record.BucketTimestamp(f.Time)
		if err != nil {
			a.logger.Printf("aggregator: skipping %s: %v", f.Path, err)
			continue
		}

		parsed, err := rawfile.ParseFile(ctx, f)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			a.logger.Printf("aggregator: skipping %s: %v", f.Path, err)
			continue
		}
		res.FilesParsed++
		res.LinesSkipped += parsed.Skipped
		filesParsed.Inc()
		linesSkipped.Add(float64(parsed.Skipped))

		rec := batch.byDate[f.Date]
		if rec == nil {
			rec = types.NewDayRecord(f.Date, "")
			batch.byDate[f.Date] = rec
			batch.order = append(batch.order, f.Date)
		}

		out, err := record.Insert(rec, types.Bucket{Timestamp: ts, Data: codec.EncodeSampleSet(parsed.Set)})
		if err != nil {
			a.logger.Printf("aggregator: skipping %s: %v", f.Path, err)
			continue
		}
		if out == record.MergeFailed {
			mergeFailures.Inc()
		}
	}

	return batch, nil
}

// reclassify merges every date record into the tag-centric record of its tag
func (a *Aggregator) reclassify(ctx context.Context, batch *dayBatch, set *tagSet) error {
	for _, date := range batch.order {
		rec := batch.byDate[date]

		tag, err := tags.Resolve(ctx, a.tags, date)
		if err != nil {
			return fmt.Errorf("failed to resolve tag for %s: %w", date, err)
		}
		rec.Tag = tag

		target := set.byTag[tag]
		if target == nil {
			target = types.NewDayRecord(types.UnknownDate, tag)
			set.byTag[tag] = target
			set.order = append(set.order, tag)
		}

		if failed := record.MergeRecord(target, rec); failed > 0 {
			mergeFailures.Add(float64(failed))
		}
		target.Dirty = true
	}
	return nil
}
