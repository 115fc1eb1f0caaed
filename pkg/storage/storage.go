// Package storage implements the historical archive file: a line-oriented,
// optionally zlib-compressed text file holding one block of hourly buckets
// per tag, plus the running part file of the current day's captures.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/record"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

const (
	markerCoverage = "[DatesCovered]"
	markerTagStart = "[TagIndexStart]"
	markerTagEnd   = "[TagIndexEnd]"
	markerContent  = "[Content]"
)

const maxLineSize = 1024 * 1024

// Archive defines the contract for historical archive storage
type Archive interface {
	// Exists reports whether the archive file is present
	Exists() bool

	// Info reads the header only
	Info(ctx context.Context) (*types.FileHeader, error)

	// Load reads the header and every tag block
	Load(ctx context.Context) (*types.FileHeader, []*types.DayRecord, error)

	// LoadTag reads the block stored for one tag
	LoadTag(ctx context.Context, tag string) (*types.DayRecord, error)

	// Rewrite replaces the blocks of the given records and updates the header
	Rewrite(ctx context.Context, header *types.FileHeader, records []*types.DayRecord) error
}

// Config holds storage configuration
type Config struct {
	Path             string
	Compress         bool
	CompressionLevel int
	CacheSize        int
}

// DefaultConfig returns default storage configuration
func DefaultConfig() *Config {
	return &Config{
		Path:             "./hist_data.txt",
		Compress:         true,
		CompressionLevel: 2,
		CacheSize:        64,
	}
}

// Store implements Archive on a single file
type Store struct {
	cfg        *Config
	compressor *Compressor
	cache      *BlockCache
	logger     *log.Logger
	mu         sync.RWMutex
}

// NewStore creates a new archive store. The file itself is created by the
// first Rewrite.
func NewStore(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("archive path is required")
	}

	s := &Store{
		cfg:    cfg,
		cache:  NewBlockCache(cfg.CacheSize),
		logger: log.Default(),
	}

	if cfg.Compress {
		compressor, err := NewCompressor(cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create compressor: %w", err)
		}
		s.compressor = compressor
	}

	return s, nil
}

// SetLogger replaces the logger used for skipped archive lines
func (s *Store) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Path returns the archive file location
func (s *Store) Path() string {
	return s.cfg.Path
}

// CacheStats returns tag-block cache statistics
func (s *Store) CacheStats() CacheStats {
	return s.cache.Stats()
}

// Exists implements Archive.Exists
func (s *Store) Exists() bool {
	_, err := os.Stat(s.cfg.Path)
	return err == nil
}

// Info implements Archive.Info
func (s *Store) Info(ctx context.Context) (*types.FileHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return readHeader(r)
}

// Load implements Archive.Load. Records come back in first-appearance order
// with date UNKNOWN; repeated blocks of one tag join a single record.
func (s *Store) Load(ctx context.Context) (*types.FileHeader, []*types.DayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.load(ctx, nil)
}

// LoadTag implements Archive.LoadTag. A tag with no block is NotFound.
func (s *Store) LoadTag(ctx context.Context, tag string) (*types.DayRecord, error) {
	if rec, ok := s.cache.Get(tag); ok {
		return rec, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, recs, err := s.load(ctx, func(t string) bool { return t == tag })
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, types.Errorf(types.KindNotFound, "storage.LoadTag", "no block for tag %q", tag)
	}

	s.cache.Put(tag, recs[0])
	return recs[0], nil
}

func (s *Store) load(ctx context.Context, want func(string) bool) (*types.FileHeader, []*types.DayRecord, error) {
	r, err := s.open()
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	header, err := readHeader(r)
	if err != nil {
		return nil, nil, err
	}

	var recs []*types.DayRecord
	byTag := make(map[string]*types.DayRecord)
	var cur *types.DayRecord

	for line, ok := r.next(); ok; line, ok = r.next() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		if isBlockLine(line) {
			tag, valid := blockTag(line)
			if !valid {
				s.logger.Printf("storage: malformed block header %q", line)
				cur = nil
				continue
			}
			if want != nil && !want(tag) {
				cur = nil
				continue
			}
			cur = byTag[tag]
			if cur == nil {
				cur = types.NewDayRecord(types.UnknownDate, tag)
				byTag[tag] = cur
				recs = append(recs, cur)
			}
			continue
		}

		if cur == nil || strings.TrimSpace(line) == "" {
			continue
		}

		ts, data, found := strings.Cut(line, ":")
		if !found {
			s.logger.Printf("storage: skipping malformed line in [%s]: %q", cur.Tag, line)
			continue
		}
		if _, err := record.Insert(cur, types.Bucket{Timestamp: ts, Data: data}); err != nil {
			s.logger.Printf("storage: skipping bucket in [%s]: %v", cur.Tag, err)
		}
	}
	if err := r.err(); err != nil {
		return nil, nil, types.Wrap(types.KindIOFailure, "storage.Load", err)
	}

	return header, recs, nil
}

// Rewrite implements Archive.Rewrite. The new tags are merged into the
// existing index, prior blocks of every rewritten tag are dropped and the
// replacement blocks are appended. The archive is replaced atomically.
// A nil header keeps the current coverage.
func (s *Store) Rewrite(ctx context.Context, header *types.FileHeader, records []*types.DayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cache.Clear()

	rewriting := make(map[string]bool, len(records))
	empty := make(map[string]bool)
	var blocks []*types.DayRecord
	for _, rec := range records {
		if err := validateTag(rec.Tag); err != nil {
			return err
		}
		if rewriting[rec.Tag] {
			return types.Errorf(types.KindMalformed, "storage.Rewrite", "tag %q given twice", rec.Tag)
		}
		if len(rec.Buckets) == 0 {
			s.logger.Printf("storage: no buckets for [%s], leaving block untouched", rec.Tag)
			empty[rec.Tag] = true
			continue
		}
		rewriting[rec.Tag] = true
		blocks = append(blocks, rec)
	}

	idx := NewTagIndex()
	coverage := ""

	old, err := s.open()
	switch {
	case err == nil:
		defer old.Close()
		prev, err := readHeader(old)
		if err != nil {
			return err
		}
		idx.Merge(prev.Tags)
		coverage = prev.Coverage
	case errors.Is(err, types.ErrNotFound):
		old = nil
	default:
		return err
	}

	if header != nil {
		coverage = header.Coverage
		for _, tag := range header.Tags {
			// an empty record never gains an index entry without a block
			if empty[tag] && !idx.Contains(tag) {
				continue
			}
			idx.Add(tag)
		}
	}
	for _, rec := range blocks {
		idx.Add(rec.Tag)
	}

	dir, base := filepath.Split(s.cfg.Path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return types.Wrap(types.KindIOFailure, "storage.Rewrite", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	fileWriter := bufio.NewWriter(tmp)
	cw, err := s.compressor.NewWriter(fileWriter)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(cw)

	writeHeader(w, coverage, idx.Tags(), old == nil)

	if old != nil {
		skipping := false
		for line, ok := old.next(); ok; line, ok = old.next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if isBlockLine(line) {
				tag, valid := blockTag(line)
				skipping = valid && rewriting[tag]
			}
			if skipping {
				continue
			}
			w.WriteString(line)
			w.WriteByte('\n')
		}
		if err := old.err(); err != nil {
			return types.Wrap(types.KindIOFailure, "storage.Rewrite", err)
		}
	}

	for _, rec := range blocks {
		w.WriteString("> [" + rec.Tag + "]\n")
		for _, b := range rec.Buckets {
			w.WriteString(b.Timestamp + ":" + b.Data + "\n")
		}
	}

	if err := w.Flush(); err != nil {
		return types.Wrap(types.KindIOFailure, "storage.Rewrite", err)
	}
	if err := cw.Close(); err != nil {
		return types.Wrap(types.KindIOFailure, "storage.Rewrite", err)
	}
	if err := fileWriter.Flush(); err != nil {
		return types.Wrap(types.KindIOFailure, "storage.Rewrite", err)
	}
	if err := tmp.Sync(); err != nil {
		return types.Wrap(types.KindIOFailure, "storage.Rewrite", err)
	}
	if err := tmp.Close(); err != nil {
		return types.Wrap(types.KindIOFailure, "storage.Rewrite", err)
	}
	if old != nil {
		old.Close()
	}
	if err := os.Rename(tmp.Name(), s.cfg.Path); err != nil {
		os.Remove(tmp.Name())
		committed = true
		return types.Wrap(types.KindIOFailure, "storage.Rewrite", err)
	}
	committed = true
	return nil
}

func validateTag(tag string) error {
	if strings.TrimSpace(tag) == "" || strings.ContainsAny(tag, "\r\n") {
		return types.Errorf(types.KindMalformed, "storage.Rewrite", "invalid tag %q", tag)
	}
	return nil
}

func writeHeader(w *bufio.Writer, coverage string, tags []string, fresh bool) {
	w.WriteString(markerCoverage + coverage + "\n")
	w.WriteString(markerTagStart + "\n")
	for _, tag := range tags {
		w.WriteString(tag + "\n")
	}
	w.WriteString(markerTagEnd + "\n")
	w.WriteString("\n")
	w.WriteString(markerContent + "\n")
	if fresh {
		w.WriteString("\n")
	}
}

// readHeader consumes lines up to and including [Content]. A block line
// ends the header early and is pushed back.
func readHeader(r *lineReader) (*types.FileHeader, error) {
	h := &types.FileHeader{Tags: []string{}}
	inTags := false
	seen := false

	for line, ok := r.next(); ok; line, ok = r.next() {
		switch {
		case strings.Contains(line, markerCoverage):
			_, cov, _ := strings.Cut(line, markerCoverage)
			h.Coverage = strings.TrimSpace(cov)
			seen = true
		case strings.Contains(line, markerTagStart):
			inTags = true
			seen = true
		case strings.Contains(line, markerTagEnd):
			inTags = false
		case strings.Contains(line, markerContent):
			return h, nil
		case isBlockLine(line):
			r.unread(line)
			return h, nil
		case inTags:
			if tag := strings.TrimSpace(line); tag != "" {
				h.Tags = append(h.Tags, tag)
			}
		}
	}
	if err := r.err(); err != nil {
		return nil, types.Wrap(types.KindIOFailure, "storage.readHeader", err)
	}
	if !seen {
		return nil, types.Errorf(types.KindMalformed, "storage.readHeader", "archive header not found")
	}
	return h, nil
}

func isBlockLine(line string) bool {
	return len(line) > 0 && line[0] == '>'
}

// blockTag extracts the tag between the first '[' and the last ']'
func blockTag(line string) (string, bool) {
	start := strings.IndexByte(line, '[')
	end := strings.LastIndexByte(line, ']')
	if start < 0 || end <= start {
		return "", false
	}
	return line[start+1 : end], true
}

// lineReader reads archive lines through the configured decompressor
type lineReader struct {
	file    *os.File
	stream  io.ReadCloser
	scanner *bufio.Scanner
	held    string
	hasHeld bool
	closed  bool
}

func (s *Store) open() (*lineReader, error) {
	file, err := os.Open(s.cfg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.Wrap(types.KindNotFound, "storage.open", err)
		}
		return nil, types.Wrap(types.KindIOFailure, "storage.open", err)
	}

	stream, err := s.compressor.NewReader(bufio.NewReader(file))
	if err != nil {
		file.Close()
		return nil, types.Wrap(types.KindMalformed, "storage.open", err)
	}

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &lineReader{file: file, stream: stream, scanner: scanner}, nil
}

func (r *lineReader) next() (string, bool) {
	if r.hasHeld {
		r.hasHeld = false
		return r.held, true
	}
	if r.scanner.Scan() {
		return r.scanner.Text(), true
	}
	return "", false
}

func (r *lineReader) unread(line string) {
	r.held = line
	r.hasHeld = true
}

func (r *lineReader) err() error {
	return r.scanner.Err()
}

func (r *lineReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.stream.Close()
	return r.file.Close()
}
