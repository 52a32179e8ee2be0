package apikey

import (
	"context"
	"fmt"
	"sync"

	"github.com/dharsanguruparan/staffdrop/internal/model"
)

// UserLookup resolves a key's owner.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (model.User, error)
}

// MemoryStore keeps keys in memory.
type MemoryStore struct {
	users UserLookup

	mu       sync.RWMutex
	keys     map[string]Key
	byDigest map[string]string
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore(users UserLookup) *MemoryStore {
	return &MemoryStore{
		users:    users,
		keys:     make(map[string]Key),
		byDigest: make(map[string]string),
	}
}

func (s *MemoryStore) Insert(_ context.Context, key Key, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byDigest[digest]; dup {
		return fmt.Errorf("api key digest already stored")
	}
	s.keys[key.ID] = key
	s.byDigest[digest] = key.ID
	return nil
}

func (s *MemoryStore) UserByDigest(ctx context.Context, digest string) (model.User, error) {
	s.mu.RLock()
	key, ok := s.keys[s.byDigest[digest]]
	s.mu.RUnlock()
	if !ok || !key.Active {
		return model.User{}, model.ErrNotFound
	}
	return s.users.GetUser(ctx, key.UserID)
}

func (s *MemoryStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return fmt.Errorf("api key %s: %w", id, model.ErrNotFound)
	}
	key.Active = false
	s.keys[id] = key
	return nil
}
