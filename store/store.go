// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package store provides the key-value storage backing registry snapshots.
package store

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// Options options for creating a store instance.
type Options struct {
	CacheSize              int
	OpenFilesCacheCapacity int
}

var writeOpt = opt.WriteOptions{}
var readOpt = opt.ReadOptions{}

// Store wraps a level db instance.
type Store struct {
	db *leveldb.DB
}

// New creates a persistent store at path.
// Creates an empty one if not exists, or opens if already there.
func New(path string, opts Options) (*Store, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "new persistent store")
	}
	return open(stg, opts.CacheSize, opts.OpenFilesCacheCapacity)
}

// NewMem creates a store in memory, for tests and dry runs.
func NewMem() (*Store, error) {
	return open(storage.NewMemStorage(), 0, 0)
}

func open(stg storage.Storage, cacheSize, openFilesCacheCapacity int) (*Store, error) {
	if cacheSize < 16 {
		cacheSize = 16
	}
	if openFilesCacheCapacity < 16 {
		openFilesCacheCapacity = 16
	}

	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: openFilesCacheCapacity,
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB, // Two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	return &Store{db: db}, nil
}

// IsNotFound checks if the error returned by Get indicates key not found.
func (s *Store) IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}

// Get retrieves the value for the given key.
// It returns an error if key not found. The error can be checked via IsNotFound.
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.db.Get(key, &readOpt)
}

// Has returns whether a key exists.
func (s *Store) Has(key []byte) (bool, error) {
	return s.db.Has(key, &readOpt)
}

// Put saves the value for the given key.
func (s *Store) Put(key, value []byte) error {
	return s.db.Put(key, value, &writeOpt)
}

// Delete deletes the given key and its value.
func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, &writeOpt)
}

// Close closes the store. Later operations will all fail.
func (s *Store) Close() error {
	return s.db.Close()
}
