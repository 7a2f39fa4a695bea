package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/djbeb/djbeb/internal/models"
	"github.com/djbeb/djbeb/internal/repositories"
	"github.com/djbeb/djbeb/internal/shared"
	"golang.org/x/oauth2"
)

// Store holds the provider token pair for server-side sessions, keyed by
// session id. A missing or expired session reads as (nil, nil); absence is
// not an error, callers translate it into an unauthorized response.
type Store interface {
	Get(ctx context.Context, id string) (*oauth2.Token, error)
	Set(ctx context.Context, id string, tok *oauth2.Token) error
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type memoryEntry struct {
	token     *oauth2.Token
	expiresAt time.Time
}

// MemoryStore is an in-process [Store] backed by a mutex-guarded map.
// Concurrent reads are safe; concurrent writes to the same id are
// last-write-wins, which is acceptable for a single-client cookie.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryStore creates a memory store whose sessions expire after ttl of issuance.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*oauth2.Token, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.token, nil
}

func (s *MemoryStore) Set(ctx context.Context, id string, tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{token: tok, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	now := time.Now()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			purged++
		}
	}
	return purged, nil
}

// SQLiteStore is a [Store] persisting sessions through the repository layer,
// so sessions survive restarts.
type SQLiteStore struct {
	repo *repositories.SessionRepository
	ttl  time.Duration
}

// NewSQLiteStore creates a SQLite-backed store with the given idle ttl.
func NewSQLiteStore(repo *repositories.SessionRepository, ttl time.Duration) *SQLiteStore {
	return &SQLiteStore{repo: repo, ttl: ttl}
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*oauth2.Token, error) {
	session, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return session.Token(), nil
}

func (s *SQLiteStore) Set(ctx context.Context, id string, tok *oauth2.Token) error {
	existing, err := s.repo.Get(id)
	if err != nil {
		return err
	}

	if existing != nil {
		existing.SetToken(tok)
		existing.SetExpiresAt(time.Now().Add(s.ttl))
		return s.repo.Update(existing)
	}

	// An expired row under the same id would collide on insert.
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	session := models.NewSession(tok, s.ttl)
	session.SetID(id)
	return s.repo.Create(session)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(id)
}

func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired()
}

// NewSessionID generates a fresh session identifier.
func NewSessionID() string {
	return shared.GenerateID()
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
