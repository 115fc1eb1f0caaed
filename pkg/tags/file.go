package tags

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

// FileStore keeps assignments in a text file of "<date>:<tagset>" lines
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store. A missing file reads as empty.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Lookup implements Store.Lookup
func (s *FileStore) Lookup(ctx context.Context, date string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if e.Date == date {
			return e.Tag, true, nil
		}
	}
	return "", false, nil
}

// Put implements Store.Put. Entry order is kept; new dates are appended.
func (s *FileStore) Put(ctx context.Context, date, tag string) error {
	if date == "" || strings.Contains(date, ":") || strings.Contains(tag, ":") || strings.ContainsAny(tag, "\r\n") {
		return types.Errorf(types.KindMalformed, "tags.FileStore.Put", "invalid entry %q:%q", date, tag)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}

	found := false
	for i := range entries {
		if entries[i].Date == date {
			entries[i].Tag = tag
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, types.TagAssignment{Date: date, Tag: tag})
	}
	return s.write(entries)
}

// All implements Store.All
func (s *FileStore) All(ctx context.Context) ([]types.TagAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Close implements Store.Close
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() ([]types.TagAssignment, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, types.Wrap(types.KindIOFailure, "tags.FileStore", err)
	}
	defer file.Close()

	var entries []types.TagAssignment
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), ":")
		if len(parts) != 2 {
			continue
		}
		entries = append(entries, types.TagAssignment{
			Date: strings.TrimSpace(parts[0]),
			Tag:  strings.TrimSpace(parts[1]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, types.Wrap(types.KindIOFailure, "tags.FileStore", err)
	}
	return entries, nil
}

func (s *FileStore) write(entries []types.TagAssignment) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create tag file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, e := range entries {
		w.WriteString(e.Date + ":" + e.Tag + "\n")
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write tag file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write tag file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace tag file: %w", err)
	}
	return nil
}
