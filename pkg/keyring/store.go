package keyring

import (
	"crypto/subtle"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
)

type entry struct {
	key    []byte
	issued time.Time
}

// store is not safe for concurrent use, the Registry serializes access.
type store interface {
	get(id string) (entry, bool)
	// put replaces any previous entry. Replaced and evicted keys are wiped.
	put(id string, e entry)
	remove(id string)
	len() int
}

type mapStore map[string]entry

func (m mapStore) get(id string) (entry, bool) {
	e, ok := m[id]
	return e, ok
}

func (m mapStore) put(id string, e entry) {
	if old, ok := m[id]; ok {
		wipe(old.key)
	}
	m[id] = e
}

func (m mapStore) remove(id string) {
	if old, ok := m[id]; ok {
		wipe(old.key)
		delete(m, id)
	}
}

func (m mapStore) len() int { return len(m) }

type lruStore struct {
	lru *simplelru.LRU
	// removing suppresses onEvict for explicit removals.
	removing bool
}

func newLRUStore(size int, onEvict func(id string)) (*lruStore, error) {
	s := &lruStore{}
	l, err := simplelru.NewLRU(size, func(k interface{}, v interface{}) {
		wipe(v.(entry).key)
		if !s.removing && onEvict != nil {
			onEvict(k.(string))
		}
	})
	if err != nil {
		return nil, err
	}
	s.lru = l
	return s, nil
}

func (s *lruStore) get(id string) (entry, bool) {
	v, ok := s.lru.Get(id)
	if !ok {
		return entry{}, false
	}
	return v.(entry), true
}

func (s *lruStore) put(id string, e entry) {
	// Add does not fire the eviction callback when it replaces a value.
	if v, ok := s.lru.Peek(id); ok {
		wipe(v.(entry).key)
	}
	s.lru.Add(id, e)
}

func (s *lruStore) remove(id string) {
	s.removing = true
	s.lru.Remove(id)
	s.removing = false
}

func (s *lruStore) len() int { return s.lru.Len() }

func wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
}
