package storage

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

// BlockCache is an LRU cache of parsed tag blocks
type BlockCache struct {
	capacity int
	mu       sync.Mutex
	cache    map[uint64]*cacheEntry
	lru      *list.List
	hits     uint64
	misses   uint64
}

type cacheEntry struct {
	key     uint64
	tag     string
	record  *types.DayRecord
	element *list.Element
}

// NewBlockCache creates a new block cache. A capacity below one disables it.
func NewBlockCache(capacity int) *BlockCache {
	return &BlockCache{
		capacity: capacity,
		cache:    make(map[uint64]*cacheEntry),
		lru:      list.New(),
	}
}

// Get returns a copy of the cached block for tag
func (bc *BlockCache) Get(tag string) (*types.DayRecord, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	entry, exists := bc.cache[blockKey(tag)]
	if !exists || entry.tag != tag {
		bc.misses++
		return nil, false
	}

	bc.lru.MoveToFront(entry.element)
	bc.hits++
	return cloneRecord(entry.record), true
}

// Put stores a copy of rec under tag
func (bc *BlockCache) Put(tag string, rec *types.DayRecord) {
	if bc.capacity < 1 {
		return
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	key := blockKey(tag)
	if entry, exists := bc.cache[key]; exists {
		entry.tag = tag
		entry.record = cloneRecord(rec)
		bc.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{
		key:    key,
		tag:    tag,
		record: cloneRecord(rec),
	}
	entry.element = bc.lru.PushFront(entry)
	bc.cache[key] = entry

	if bc.lru.Len() > bc.capacity {
		if oldest := bc.lru.Back(); oldest != nil {
			bc.removeLocked(oldest.Value.(*cacheEntry).key)
		}
	}
}

// removeLocked removes an entry from the cache (must hold lock)
func (bc *BlockCache) removeLocked(key uint64) {
	if entry, exists := bc.cache[key]; exists {
		bc.lru.Remove(entry.element)
		delete(bc.cache, key)
	}
}

// Clear drops every entry
func (bc *BlockCache) Clear() {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	bc.cache = make(map[uint64]*cacheEntry)
	bc.lru = list.New()
}

// CacheStats contains cache statistics
type CacheStats struct {
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}

// Stats returns cache statistics
func (bc *BlockCache) Stats() CacheStats {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	stats := CacheStats{
		Size:     len(bc.cache),
		Capacity: bc.capacity,
		Hits:     bc.hits,
		Misses:   bc.misses,
	}
	if total := bc.hits + bc.misses; total > 0 {
		stats.HitRate = float64(bc.hits) / float64(total) * 100.0
	}
	return stats
}

func blockKey(tag string) uint64 {
	return xxhash.Sum64String(tag)
}

func cloneRecord(rec *types.DayRecord) *types.DayRecord {
	if rec == nil {
		return nil
	}
	out := *rec
	out.Buckets = append([]types.Bucket(nil), rec.Buckets...)
	return &out
}
