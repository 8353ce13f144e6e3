// Package store keeps recent assessments in memory so results can be
// exported or fetched again by ID.
package store

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"cvrisk/risk"
)

const DefaultSize = 256

var ErrNotFound = errors.New("assessment not found")

// Store is a bounded, concurrency-safe cache of assessments keyed by ID.
// The least recently used entry is evicted once Size is reached.
type Store struct {
	cache *lru.Cache[string, *risk.Assessment]
}

func New(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, *risk.Assessment](size)
	if err != nil {
		return nil, err
	}
	return &Store{cache: cache}, nil
}

// Put stores a. Assessments without an ID are ignored.
func (s *Store) Put(a *risk.Assessment) {
	if a == nil || a.ID == "" {
		return
	}
	s.cache.Add(a.ID, a)
}

func (s *Store) Get(id string) (*risk.Assessment, error) {
	a, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Store) Len() int {
	return s.cache.Len()
}
