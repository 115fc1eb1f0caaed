package storage

import (
	"fmt"
	"testing"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

func testRecord(tag string, timestamps ...string) *types.DayRecord {
	rec := types.NewDayRecord(types.UnknownDate, tag)
	for _, ts := range timestamps {
		rec.Buckets = append(rec.Buckets, types.Bucket{Timestamp: ts, Data: "./B.3C"})
	}
	return rec
}

func TestBlockCache(t *testing.T) {
	cache := NewBlockCache(100)

	if _, ok := cache.Get("Weekday|Monday"); ok {
		t.Error("Expected cache miss, got hit")
	}

	cache.Put("Weekday|Monday", testRecord("Weekday|Monday", "0100", "0200"))

	rec, ok := cache.Get("Weekday|Monday")
	if !ok {
		t.Fatal("Expected cache hit, got miss")
	}
	if len(rec.Buckets) != 2 {
		t.Errorf("Expected 2 buckets, got %d", len(rec.Buckets))
	}
}

func TestBlockCacheReturnsCopies(t *testing.T) {
	cache := NewBlockCache(10)
	cache.Put("a", testRecord("a", "0100"))

	rec, _ := cache.Get("a")
	rec.Buckets[0].Data = "changed"
	rec.Buckets = append(rec.Buckets, types.Bucket{Timestamp: "0200"})

	again, _ := cache.Get("a")
	if len(again.Buckets) != 1 || again.Buckets[0].Data != "./B.3C" {
		t.Errorf("Cached block was mutated: %+v", again.Buckets)
	}
}

func TestBlockCacheLRU(t *testing.T) {
	cache := NewBlockCache(3)

	for i := 0; i < 5; i++ {
		tag := fmt.Sprintf("tag-%d", i)
		cache.Put(tag, testRecord(tag))
	}

	if cache.Stats().Size != 3 {
		t.Errorf("Expected cache size 3, got %d", cache.Stats().Size)
	}
	if _, ok := cache.Get("tag-0"); ok {
		t.Error("Expected oldest entry to be evicted")
	}
	if _, ok := cache.Get("tag-4"); !ok {
		t.Error("Expected newest entry to be present")
	}
}

func TestBlockCacheClearAndStats(t *testing.T) {
	cache := NewBlockCache(10)
	cache.Put("a", testRecord("a"))

	cache.Get("a")
	cache.Get("b")

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %+v", stats)
	}
	if stats.HitRate != 50.0 {
		t.Errorf("Expected 50%% hit rate, got %f", stats.HitRate)
	}

	cache.Clear()
	if _, ok := cache.Get("a"); ok {
		t.Error("Expected miss after Clear")
	}
}

func TestBlockCacheDisabled(t *testing.T) {
	cache := NewBlockCache(0)
	cache.Put("a", testRecord("a"))
	if _, ok := cache.Get("a"); ok {
		t.Error("Zero capacity cache should not store entries")
	}
}
