package collector

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store keeps live sessions, bounded in count and dropped after sitting idle
// for the configured TTL.
type Store struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *Session]
}

func NewStore(capacity int, idleTTL time.Duration) *Store {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Store{cache: expirable.NewLRU[string, *Session](capacity, nil, idleTTL)}
}

func (s *Store) Get(key string) (*Session, bool) {
	return s.cache.Get(key)
}

// Put stores sess under its key and refreshes its idle timer. It returns the
// session it replaced, if any.
func (s *Store) Put(sess *Session) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.cache.Peek(sess.Key)
	s.cache.Add(sess.Key, sess)
	if ok && prev != sess {
		return prev, true
	}
	return nil, false
}

// Remove drops the session stored under key and returns it.
func (s *Store) Remove(key string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.cache.Peek(key)
	if ok {
		s.cache.Remove(key)
	}
	return prev, ok
}

// Touch refreshes the idle timer of sess if it is still the one stored under
// its key.
func (s *Store) Touch(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.cache.Peek(sess.Key); ok && cur == sess {
		s.cache.Add(sess.Key, sess)
		return true
	}
	return false
}

// Release drops sess only if it is still the one stored under its key.
func (s *Store) Release(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.cache.Peek(sess.Key); ok && cur == sess {
		s.cache.Remove(sess.Key)
	}
}

func (s *Store) Len() int { return s.cache.Len() }
