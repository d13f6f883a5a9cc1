// Package memory provides an in-process storage.KV.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jrsteele09/bgv-gateway/storage"
)

type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

var _ storage.KV = (*Store)(nil)

func New() *Store {
	return &Store{buckets: make(map[string]map[string][]byte)}
}

func (s *Store) Get(bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.buckets[bucket][key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, storage.ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(bucket, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		s.buckets[bucket] = b
	}
	b[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket][key]; !ok {
		return fmt.Errorf("%s/%s: %w", bucket, key, storage.ErrNotFound)
	}
	delete(s.buckets[bucket], key)
	return nil
}

// Keys returns the keys of bucket in lexical order.
func (s *Store) Keys(bucket string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.buckets[bucket]))
	for k := range s.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close() error {
	return nil
}
