// Package apikey issues API credentials and resolves them to the acting user.
package apikey

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/staffdrop/internal/model"
	"github.com/dharsanguruparan/staffdrop/internal/signing"
)

// ErrInvalidKey is returned for a missing, unknown or revoked credential.
var ErrInvalidKey = errors.New("invalid api key")

const tokenBytes = 32

// Key is a stored credential. The plaintext token is never persisted.
type Key struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"user_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists key digests.
type Store interface {
	Insert(ctx context.Context, key Key, digest string) error
	// UserByDigest returns the owner of an active key, or model.ErrNotFound.
	UserByDigest(ctx context.Context, digest string) (model.User, error)
	Deactivate(ctx context.Context, id string) error
}

// Manager creates and resolves keys.
type Manager struct {
	store  Store
	signer *signing.Signer
}

// NewManager constructs a Manager.
func NewManager(store Store, signer *signing.Signer) *Manager {
	return &Manager{store: store, signer: signer}
}

// Create issues a key for userID and returns it with its plaintext token.
// The token is only available here.
func (m *Manager) Create(ctx context.Context, name, userID string) (Key, string, error) {
	if strings.TrimSpace(userID) == "" {
		return Key{}, "", errors.New("api key needs a user")
	}
	token, err := NewToken()
	if err != nil {
		return Key{}, "", err
	}
	key := Key{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		UserID:    userID,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Insert(ctx, key, m.signer.Sign(token)); err != nil {
		return Key{}, "", fmt.Errorf("store api key: %w", err)
	}
	return key, token, nil
}

// Resolve maps a token to the user it acts as.
func (m *Manager) Resolve(ctx context.Context, token string) (model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.User{}, ErrInvalidKey
	}
	user, err := m.store.UserByDigest(ctx, m.signer.Sign(token))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, ErrInvalidKey
		}
		return model.User{}, fmt.Errorf("resolve api key: %w", err)
	}
	return user, nil
}

// Revoke deactivates a key.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	return m.store.Deactivate(ctx, id)
}

// NewToken returns a random URL-safe token.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
