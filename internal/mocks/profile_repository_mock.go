package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository"
)

var _ ports.ProfileRepository = (*MockProfileRepository)(nil)

// ErrEmailAlreadyExists mirrors the repository duplicate error
var ErrEmailAlreadyExists = repository.ErrDuplicateEmail

// tokenData stores a token with its expiry, separate from Profile
type tokenData struct {
	ProfileID int64
	ExpiresAt time.Time
}

// MockProfileRepository is a mock implementation of ports.ProfileRepository for testing
type MockProfileRepository struct {
	mu sync.Mutex

	// Mock data storage
	Profiles           map[int64]*domain.Profile
	ResetTokens        map[string]tokenData
	VerificationTokens map[string]tokenData

	// Mock behavior flags
	CreateError          error
	GetByIDError         error
	GetByEmailError      error
	DeleteError          error
	LockAccountError     error
	IncrementFailedError error
	ResetFailedError     error
	UpdatePasswordError  error
	ListError            error

	// Call tracking
	CreateCalls          int
	GetByIDCalls         int
	GetByEmailCalls      int
	DeleteCalls          int
	LockAccountCalls     int
	IncrementFailedCalls int
	ResetFailedCalls     int
}

// NewMockProfileRepository creates a new mock profile repository
func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{
		Profiles:           make(map[int64]*domain.Profile),
		ResetTokens:        make(map[string]tokenData),
		VerificationTokens: make(map[string]tokenData),
	}
}

func (m *MockProfileRepository) Create(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateError != nil {
		return nil, m.CreateError
	}

	for _, existing := range m.Profiles {
		if existing.Email == p.Email {
			return nil, ErrEmailAlreadyExists
		}
	}

	role := domain.SystemRoleUser
	if len(m.Profiles) == 0 {
		role = domain.SystemRoleAdmin
	}
	created := *p
	created.ID = int64(len(m.Profiles) + 1)
	created.SystemRole = role
	created.CreatedAt = time.Now()
	m.Profiles[created.ID] = &created
	out := created
	return &out, nil
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetByIDCalls++
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}

	p, exists := m.Profiles[id]
	if !exists {
		return nil, repository.ErrNoRecord
	}
	out := *p
	return &out, nil
}

func (m *MockProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetByEmailCalls++
	if m.GetByEmailError != nil {
		return nil, m.GetByEmailError
	}

	for _, p := range m.Profiles {
		if p.Email == email {
			out := *p
			return &out, nil
		}
	}
	return nil, repository.ErrNoRecord
}

func (m *MockProfileRepository) List(ctx context.Context, offset, limit int) ([]*domain.Profile, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, 0, m.ListError
	}

	ids := make([]int64, 0, len(m.Profiles))
	for id := range m.Profiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := len(ids)
	if offset >= total {
		return []*domain.Profile{}, total, nil
	}
	end := min(offset+limit, total)

	out := make([]*domain.Profile, 0, end-offset)
	for _, id := range ids[offset:end] {
		p := *m.Profiles[id]
		out = append(out, &p)
	}
	return out, total, nil
}

func (m *MockProfileRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Profiles), nil
}

func (m *MockProfileRepository) UpdateDetails(ctx context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, exists := m.Profiles[p.ID]
	if !exists {
		return repository.ErrNoRecord
	}
	existing.FirstName, existing.LastName, existing.Phone = p.FirstName, p.LastName, p.Phone
	return nil
}

func (m *MockProfileRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if _, exists := m.Profiles[id]; !exists {
		return repository.ErrNoRecord
	}
	delete(m.Profiles, id)
	return nil
}

func (m *MockProfileRepository) UpdateDBSendEmail(ctx context.Context, token string, expiresAt time.Time, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Profiles[id]; !exists {
		return repository.ErrNoRecord
	}
	for k, v := range m.VerificationTokens {
		if v.ProfileID == id {
			delete(m.VerificationTokens, k)
		}
	}
	m.VerificationTokens[token] = tokenData{ProfileID: id, ExpiresAt: expiresAt}
	return nil
}

func (m *MockProfileRepository) UpdateDBVerify(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, exists := m.VerificationTokens[token]
	if !exists || time.Now().After(data.ExpiresAt) {
		return repository.ErrNoRecord
	}
	m.Profiles[data.ProfileID].EmailVerified = true
	delete(m.VerificationTokens, token)
	return nil
}

// VerificationTokenFor returns the pending verification token of a profile
func (m *MockProfileRepository) VerificationTokenFor(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.VerificationTokens {
		if v.ProfileID == id {
			return k
		}
	}
	return ""
}

func (m *MockProfileRepository) IncrementFailedAttempts(ctx context.Context, profileID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IncrementFailedCalls++
	if m.IncrementFailedError != nil {
		return m.IncrementFailedError
	}
	p, exists := m.Profiles[profileID]
	if !exists {
		return repository.ErrNoRecord
	}
	p.FailedLoginAttempts++
	return nil
}

func (m *MockProfileRepository) ResetFailedAttempts(ctx context.Context, profileID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetFailedCalls++
	if m.ResetFailedError != nil {
		return m.ResetFailedError
	}
	p, exists := m.Profiles[profileID]
	if !exists {
		return repository.ErrNoRecord
	}
	p.FailedLoginAttempts = 0
	p.LockedUntil = nil
	return nil
}

func (m *MockProfileRepository) LockAccount(ctx context.Context, profileID int64, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockAccountCalls++
	if m.LockAccountError != nil {
		return m.LockAccountError
	}
	p, exists := m.Profiles[profileID]
	if !exists {
		return repository.ErrNoRecord
	}
	p.LockedUntil = &until
	return nil
}

func (m *MockProfileRepository) UpdateSystemRole(ctx context.Context, profileID int64, role domain.SystemRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, exists := m.Profiles[profileID]
	if !exists {
		return repository.ErrNoRecord
	}
	p.SystemRole = role
	return nil
}

func (m *MockProfileRepository) SetPasswordResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Profiles {
		if p.Email == email {
			m.ResetTokens[token] = tokenData{ProfileID: p.ID, ExpiresAt: expiresAt}
			p.PasswordResetToken.String, p.PasswordResetToken.Valid = token, true
			p.PasswordResetExpiresAt.Time, p.PasswordResetExpiresAt.Valid = expiresAt, true
			return nil
		}
	}
	return repository.ErrNoRecord
}

func (m *MockProfileRepository) GetByPasswordResetToken(ctx context.Context, token string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, exists := m.ResetTokens[token]
	if !exists || time.Now().After(data.ExpiresAt) {
		return nil, repository.ErrNoRecord
	}
	p, exists := m.Profiles[data.ProfileID]
	if !exists {
		return nil, repository.ErrNoRecord
	}
	out := *p
	return &out, nil
}

func (m *MockProfileRepository) UpdatePassword(ctx context.Context, profileID int64, hashedPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdatePasswordError != nil {
		return m.UpdatePasswordError
	}
	p, exists := m.Profiles[profileID]
	if !exists {
		return repository.ErrNoRecord
	}
	p.Password = hashedPassword
	return nil
}

func (m *MockProfileRepository) ClearPasswordResetToken(ctx context.Context, profileID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, exists := m.Profiles[profileID]
	if !exists {
		return repository.ErrNoRecord
	}
	for k, v := range m.ResetTokens {
		if v.ProfileID == profileID {
			delete(m.ResetTokens, k)
		}
	}
	p.PasswordResetToken.Valid = false
	p.PasswordResetExpiresAt.Valid = false
	return nil
}

// WithTx returns the same mock instance; tests do not need real transactions.
func (m *MockProfileRepository) WithTx(dbtx ports.DBTX) ports.AccountSecurityRepository {
	return m
}

// ErrMockFailure is a generic injected failure
var ErrMockFailure = errors.New("mock failure")
