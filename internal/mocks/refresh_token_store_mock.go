package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository"
)

var _ ports.RefreshTokenStore = (*MockRefreshTokenStore)(nil)

// MockRefreshTokenStore is a mock implementation of ports.RefreshTokenStore for testing
type MockRefreshTokenStore struct {
	mu sync.Mutex

	// Mock data storage, keyed by plaintext token
	Tokens map[string]*domain.RefreshToken

	// Mock behavior flags
	SaveError         error
	GetError          error
	RevokeError       error
	RevokeAllError    error
	PurgeExpiredError error

	// Call tracking
	SaveCalls      int
	GetCalls       int
	RevokeCalls    int
	RevokeAllCalls int
	PurgeCalls     int
}

// NewMockRefreshTokenStore creates a new mock refresh token store
func NewMockRefreshTokenStore() *MockRefreshTokenStore {
	return &MockRefreshTokenStore{
		Tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *MockRefreshTokenStore) Save(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveError != nil {
		return m.SaveError
	}
	stored := *token
	m.Tokens[token.Token] = &stored
	return nil
}

func (m *MockRefreshTokenStore) Get(ctx context.Context, tokenString string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetError != nil {
		return nil, m.GetError
	}
	token, exists := m.Tokens[tokenString]
	if !exists {
		return nil, repository.ErrNoRecord
	}
	out := *token
	return &out, nil
}

func (m *MockRefreshTokenStore) Revoke(ctx context.Context, tokenString string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RevokeCalls++
	if m.RevokeError != nil {
		return m.RevokeError
	}
	token, exists := m.Tokens[tokenString]
	if !exists {
		return repository.ErrNoRecord
	}
	token.IsRevoked = true
	return nil
}

func (m *MockRefreshTokenStore) RevokeAllForProfile(ctx context.Context, profileID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RevokeAllCalls++
	if m.RevokeAllError != nil {
		return m.RevokeAllError
	}
	for _, token := range m.Tokens {
		if token.ProfileID == profileID {
			token.IsRevoked = true
		}
	}
	return nil
}

func (m *MockRefreshTokenStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PurgeCalls++
	if m.PurgeExpiredError != nil {
		return 0, m.PurgeExpiredError
	}
	var n int64
	for key, token := range m.Tokens {
		if token.ExpiresAt.Before(before) {
			delete(m.Tokens, key)
			n++
		}
	}
	return n, nil
}

// ActiveFor counts unrevoked tokens of a profile
func (m *MockRefreshTokenStore) ActiveFor(profileID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, token := range m.Tokens {
		if token.ProfileID == profileID && !token.IsRevoked {
			n++
		}
	}
	return n
}

// WithTx returns the same mock; tests do not need real transactions.
func (m *MockRefreshTokenStore) WithTx(dbtx ports.DBTX) ports.RefreshTokenStore {
	return m
}
