package credentials

import (
	"context"
	"fmt"
	"sync"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"golang.org/x/oauth2"
)

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	token string
	mu    sync.RWMutex
}

// NewMemoryStore returns a store seeded with token, which may be empty.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Token returns the current token.
func (m *MemoryStore) Token(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

// SetToken replaces the token.
func (m *MemoryStore) SetToken(_ context.Context, token string) error {
	if err := validateString(token, "token"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// ClearToken forgets the token.
func (m *MemoryStore) ClearToken(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// storeTokenSource reads the store on every request so a login or logout in
// the same process takes effect immediately.
type storeTokenSource struct {
	ctx   context.Context
	store service.CredentialStore
}

// TokenSource adapts a credential store to oauth2. An empty store yields
// common.ErrUnauthenticated.
func TokenSource(ctx context.Context, store service.CredentialStore) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, store: store}
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.store.Token(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if token == "" {
		return nil, common.ErrUnauthenticated
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
