package refresh

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-process Store. It backs tests and
// single-node wiring; durable deployments use RedisStore or PostgresStore.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	byUser  map[string]map[string]struct{}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		byUser:  make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insert(rec.clone())
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok || s.evictStaleTombstone(rec) {
		return nil, ErrTokenNotFound
	}
	return rec.clone(), nil
}

func (s *MemoryStore) Rotate(_ context.Context, oldToken string, next *Record, keepRevoked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.records[oldToken]
	if !ok || s.evictStaleTombstone(old) || old.Revoked() || old.Compromised {
		return ErrTokenNotFound
	}

	if keepRevoked {
		old.RevokedAt = time.Now()
		old.ReplacedByHash = TokenHash(next.Token)
	} else {
		s.remove(oldToken)
	}
	s.insert(next.clone())
	return nil
}

func (s *MemoryStore) MarkCompromised(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok {
		return ErrTokenNotFound
	}
	rec.Compromised = true
	if rec.RevokedAt.IsZero() {
		rec.RevokedAt = time.Now()
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(token)
	return nil
}

func (s *MemoryStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.byUser[userID]
	count := len(tokens)
	for token := range tokens {
		delete(s.records, token)
	}
	delete(s.byUser, userID)
	return count, nil
}

// DeleteExpired removes every record whose lifetime elapsed before now,
// reuse-detection tombstones included; a periodic caller keeps long-lived
// processes from accumulating dead chains.
func (s *MemoryStore) DeleteExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	count := 0
	for token, rec := range s.records {
		if rec.Expired(now) {
			s.remove(token)
			count++
		}
	}
	return count, nil
}

// Len reports how many records the store currently holds.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemoryStore) insert(rec *Record) {
	s.records[rec.Token] = rec
	tokens, ok := s.byUser[rec.UserID]
	if !ok {
		tokens = make(map[string]struct{})
		s.byUser[rec.UserID] = tokens
	}
	tokens[rec.Token] = struct{}{}
}

// evictStaleTombstone drops a revoked record whose lifetime has elapsed, so
// a tombstone kept for reuse detection disappears at natural expiry the way
// it would under a Redis key TTL. Caller holds the lock.
func (s *MemoryStore) evictStaleTombstone(rec *Record) bool {
	if !rec.Revoked() && !rec.Compromised {
		return false
	}
	if !rec.Expired(time.Now()) {
		return false
	}
	s.remove(rec.Token)
	return true
}

func (s *MemoryStore) remove(token string) {
	rec, ok := s.records[token]
	if !ok {
		return
	}
	delete(s.records, token)
	if tokens, ok := s.byUser[rec.UserID]; ok {
		delete(tokens, token)
		if len(tokens) == 0 {
			delete(s.byUser, rec.UserID)
		}
	}
}
