// Package record keeps a DayRecord's buckets ordered by timestamp and merges
// same-hour readings into them.
package record

import (
	"fmt"
	"log"
	"sort"
	"strconv"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/codec"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

// Outcome reports what Insert did with a bucket
type Outcome int

const (
	Inserted Outcome = iota
	Merged
	MergeFailed
)

var logger = log.Default()

// SetLogger replaces the logger used for merge warnings
func SetLogger(l *log.Logger) {
	if l != nil {
		logger = l
	}
}

// BucketHour returns the hour bucket a sample taken at hour:minute belongs
// to. The second half of an hour counts towards the next hour, except at 23.
func BucketHour(hour, minute int) int {
	if minute >= 30 && hour < 23 {
		return hour + 1
	}
	return hour
}

// BucketTimestamp maps a raw HHMM time to its HH00 bucket timestamp
func BucketTimestamp(hhmm string) (string, error) {
	if len(hhmm) != 4 {
		return "", types.Errorf(types.KindMalformed, "record.BucketTimestamp", "invalid time %q", hhmm)
	}
	hour, err := strconv.Atoi(hhmm[:2])
	if err != nil || hour < 0 || hour > 23 {
		return "", types.Errorf(types.KindMalformed, "record.BucketTimestamp", "invalid hour in %q", hhmm)
	}
	minute, err := strconv.Atoi(hhmm[2:])
	if err != nil || minute < 0 || minute > 59 {
		return "", types.Errorf(types.KindMalformed, "record.BucketTimestamp", "invalid minute in %q", hhmm)
	}
	return fmt.Sprintf("%02d00", BucketHour(hour, minute)), nil
}

func timestampValue(ts string) (int, error) {
	v, err := strconv.Atoi(ts)
	if err != nil || v < 0 || v > 2359 {
		return 0, types.Errorf(types.KindMalformed, "record", "invalid timestamp %q", ts)
	}
	return v, nil
}

// search returns the position of ts in buckets, or where it would be inserted
func search(buckets []types.Bucket, v int) (int, bool) {
	i := sort.Search(len(buckets), func(i int) bool {
		bv, err := timestampValue(buckets[i].Timestamp)
		return err != nil || bv >= v
	})
	if i < len(buckets) {
		if bv, err := timestampValue(buckets[i].Timestamp); err == nil && bv == v {
			return i, true
		}
	}
	return i, false
}

// Find returns the bucket with timestamp ts
func Find(rec *types.DayRecord, ts string) (types.Bucket, bool) {
	v, err := timestampValue(ts)
	if err != nil {
		return types.Bucket{}, false
	}
	i, ok := search(rec.Buckets, v)
	if !ok {
		return types.Bucket{}, false
	}
	return rec.Buckets[i], true
}

// Insert places b at its sorted position, or merges it into the bucket that
// already holds its timestamp. A failed merge keeps the existing payload.
func Insert(rec *types.DayRecord, b types.Bucket) (Outcome, error) {
	v, err := timestampValue(b.Timestamp)
	if err != nil {
		return Inserted, err
	}

	i, found := search(rec.Buckets, v)
	if found {
		merged, err := codec.MergeEncoded(rec.Buckets[i].Data, b.Data)
		if err != nil {
			logger.Printf("record: keeping prior bucket %s for %s/%s: %v",
				b.Timestamp, rec.Date, rec.Tag, err)
			return MergeFailed, nil
		}
		rec.Buckets[i].Data = merged
		return Merged, nil
	}

	rec.Buckets = append(rec.Buckets, types.Bucket{})
	copy(rec.Buckets[i+1:], rec.Buckets[i:])
	rec.Buckets[i] = b
	return Inserted, nil
}

// MergeRecord folds every bucket of src into dst and returns the number of
// failed merges
func MergeRecord(dst, src *types.DayRecord) int {
	failed := 0
	for _, b := range src.Buckets {
		out, err := Insert(dst, b)
		if err != nil {
			logger.Printf("record: skipping bucket: %v", err)
			failed++
			continue
		}
		if out == MergeFailed {
			failed++
		}
	}
	return failed
}

// Reduce collapses an unordered bucket list, merging same-hour entries
func Reduce(buckets []types.Bucket) []types.Bucket {
	rec := &types.DayRecord{}
	for _, b := range buckets {
		if _, err := Insert(rec, b); err != nil {
			logger.Printf("record: skipping bucket: %v", err)
		}
	}
	return rec.Buckets
}

// NormalizeAll condenses the merged history of every bucket into its
// average. Buckets that fail keep their prior payload; the count of those is
// returned.
func NormalizeAll(rec *types.DayRecord) int {
	failed := 0
	for i := range rec.Buckets {
		n, err := codec.NormalizeEncoded(rec.Buckets[i].Data)
		if err != nil {
			logger.Printf("record: keeping unnormalized bucket %s for %s: %v",
				rec.Buckets[i].Timestamp, rec.Date, err)
			failed++
			continue
		}
		rec.Buckets[i].Data = n
	}
	return failed
}

// IsOrdered reports whether buckets are strictly ascending by timestamp
func IsOrdered(buckets []types.Bucket) bool {
	prev := -1
	for _, b := range buckets {
		v, err := timestampValue(b.Timestamp)
		if err != nil || v <= prev {
			return false
		}
		prev = v
	}
	return true
}
