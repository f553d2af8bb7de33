package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

// Key layout:
//
//	e:<key>             -> gob(diskItem)
//	t:<tag>\x00<key>    -> empty, tag index
const (
	entryPrefix = "e:"
	tagPrefix   = "t:"
	tagSep      = "\x00"
)

type diskItem struct {
	Value     []byte
	ExpiresAt int64 // unix nanoseconds, 0 = never
	Tags      []string
}

// LevelDBStore persists cached stages on disk so a restart does not force a
// full page-tree walk and content fetch.
type LevelDBStore struct {
	db     *leveldb.DB
	now    func() time.Time
	logger *zap.Logger

	// serializes read-modify-write of entries and their tag index
	mu sync.Mutex
}

func NewLevelDBStore(path string, logger *zap.Logger) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LevelDBStore{db: db, now: time.Now, logger: logger}, nil
}

func (s *LevelDBStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.peekLocked(key)
	if !ok {
		return nil, false
	}
	if it.ExpiresAt != 0 && s.now().UnixNano() >= it.ExpiresAt {
		s.writeLocked(s.deleteBatch(key, it))
		return nil, false
	}
	return it.Value, true
}

func (s *LevelDBStore) Set(key string, value []byte, ttl time.Duration, tags ...string) {
	it := diskItem{Value: value, Tags: append([]string(nil), tags...)}
	if ttl > 0 {
		it.ExpiresAt = s.now().Add(ttl).UnixNano()
	}
	b, err := encodeGob(it)
	if err != nil {
		s.logger.Warn("cache: encode entry", zap.String("key", key), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	batch := new(leveldb.Batch)
	if old, ok := s.peekLocked(key); ok {
		batch = s.deleteBatch(key, old)
	}
	batch.Put([]byte(entryPrefix+key), b)
	for _, tag := range it.Tags {
		batch.Put([]byte(tagPrefix+tag+tagSep+key), nil)
	}
	s.writeLocked(batch)
}

func (s *LevelDBStore) Invalidate(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := []byte(tagPrefix + tag + tagSep)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	var keys []string
	for iter.Next() {
		keys = append(keys, string(bytes.TrimPrefix(iter.Key(), prefix)))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		s.logger.Warn("cache: iterate tag index", zap.String("tag", tag), zap.Error(err))
	}

	n := 0
	batch := new(leveldb.Batch)
	for _, key := range keys {
		batch.Delete([]byte(tagPrefix + tag + tagSep + key))
		it, ok := s.peekLocked(key)
		if !ok {
			continue
		}
		batch.Delete([]byte(entryPrefix + key))
		for _, t := range it.Tags {
			batch.Delete([]byte(tagPrefix + t + tagSep + key))
		}
		n++
	}
	s.writeLocked(batch)
	return n
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func (s *LevelDBStore) peekLocked(key string) (diskItem, bool) {
	b, err := s.db.Get([]byte(entryPrefix+key), nil)
	if err != nil {
		if !errors.Is(err, leveldb.ErrNotFound) {
			s.logger.Warn("cache: read entry", zap.String("key", key), zap.Error(err))
		}
		return diskItem{}, false
	}
	var it diskItem
	if err := decodeGob(b, &it); err != nil {
		return diskItem{}, false
	}
	return it, true
}

func (s *LevelDBStore) deleteBatch(key string, it diskItem) *leveldb.Batch {
	batch := new(leveldb.Batch)
	batch.Delete([]byte(entryPrefix + key))
	for _, tag := range it.Tags {
		batch.Delete([]byte(tagPrefix + tag + tagSep + key))
	}
	return batch
}

func (s *LevelDBStore) writeLocked(batch *leveldb.Batch) {
	if batch.Len() == 0 {
		return
	}
	if err := s.db.Write(batch, nil); err != nil {
		s.logger.Warn("cache: write batch", zap.Error(err))
	}
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
