package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

// PartFile is the append-only log of the current day's captures, one
// "<HHMM>:<encoded>" line per capture
type PartFile struct {
	path string
	mu   sync.Mutex
}

// NewPartFile creates a part file handle. The file is created on first Append.
func NewPartFile(path string) *PartFile {
	return &PartFile{path: path}
}

// Path returns the part file location
func (p *PartFile) Path() string {
	return p.path
}

// Append appends one capture and syncs it to disk
func (p *PartFile) Append(b types.Bucket) error {
	if b.Timestamp == "" || strings.Contains(b.Timestamp, ":") || strings.Contains(b.Data, ":") {
		return types.Errorf(types.KindMalformed, "storage.PartFile.Append", "invalid entry %q", b.Timestamp)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if dir := filepath.Dir(p.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create part file directory: %w", err)
		}
	}

	file, err := os.OpenFile(p.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open part file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.WriteString(b.Timestamp + ":" + b.Data + "\n"); err != nil {
		return fmt.Errorf("failed to write to part file: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush part file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync part file: %w", err)
	}
	return nil
}

// Load returns every capture ordered by timestamp. Captures sharing a
// timestamp keep their file order. A missing file is NotFound.
func (p *PartFile) Load() ([]types.Bucket, error) {
	var buckets []types.Bucket
	err := p.scan(func(b types.Bucket) {
		buckets = append(buckets, b)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Timestamp < buckets[j].Timestamp
	})
	return buckets, nil
}

// CountRecords counts the captures in the file, treating consecutive lines
// with the same timestamp as one. A missing file counts zero.
func (p *PartFile) CountRecords() (int, error) {
	count := 0
	prev := ""
	err := p.scan(func(b types.Bucket) {
		if b.Timestamp != prev {
			count++
		}
		prev = b.Timestamp
	})
	if errors.Is(err, types.ErrNotFound) {
		return 0, nil
	}
	return count, err
}

// Remove deletes the part file. Removing a missing file is not an error.
func (p *PartFile) Remove() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove part file: %w", err)
	}
	return nil
}

// scan calls fn for each well-formed line
func (p *PartFile) scan(fn func(types.Bucket)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	file, err := os.Open(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Wrap(types.KindNotFound, "storage.PartFile", err)
		}
		return types.Wrap(types.KindIOFailure, "storage.PartFile", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), ":")
		if len(parts) != 2 {
			continue
		}
		fn(types.Bucket{Timestamp: parts[0], Data: parts[1]})
	}
	if err := scanner.Err(); err != nil {
		return types.Wrap(types.KindIOFailure, "storage.PartFile", err)
	}
	return nil
}
