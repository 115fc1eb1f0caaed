package tags

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/types"
)

var keyPrefix = []byte("tag/")

// BadgerStore keeps assignments in a BadgerDB directory
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens or creates a store at dir
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable BadgerDB logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func tagKey(date string) []byte {
	return append(append([]byte{}, keyPrefix...), date...)
}

// Lookup implements Store.Lookup
func (s *BadgerStore) Lookup(ctx context.Context, date string) (string, bool, error) {
	var tag string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tagKey(date))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			tag = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, types.Wrap(types.KindIOFailure, "tags.BadgerStore.Lookup", err)
	}
	return tag, true, nil
}

// Put implements Store.Put
func (s *BadgerStore) Put(ctx context.Context, date, tag string) error {
	if date == "" {
		return types.Errorf(types.KindMalformed, "tags.BadgerStore.Put", "empty date")
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tagKey(date), []byte(tag))
	})
	if err != nil {
		return types.Wrap(types.KindIOFailure, "tags.BadgerStore.Put", err)
	}
	return nil
}

// All implements Store.All. Assignments come back ordered by date.
func (s *BadgerStore) All(ctx context.Context) ([]types.TagAssignment, error) {
	var out []types.TagAssignment
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, types.TagAssignment{
				Date: string(item.Key()[len(keyPrefix):]),
				Tag:  string(val),
			})
		}
		return nil
	})
	if err != nil {
		return nil, types.Wrap(types.KindIOFailure, "tags.BadgerStore.All", err)
	}
	return out, nil
}

// Close implements Store.Close
func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
