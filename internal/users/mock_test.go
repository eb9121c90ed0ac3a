package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dispatch-service/pkg/jwt"
)

type memoryStore struct {
	mu    sync.Mutex
	users map[string]*User

	GetError error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]*User)}
}

func (m *memoryStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Exact match: the service is responsible for storing one casing.
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memoryStore) find(match func(*User) bool) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryStore) GetByID(_ context.Context, id string) (*User, error) {
	return m.find(func(u *User) bool { return u.ID == id })
}

func (m *memoryStore) GetByEmail(_ context.Context, email string) (*User, error) {
	return m.find(func(u *User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memoryStore) GetByProvider(_ context.Context, provider, subject string) (*User, error) {
	return m.find(func(u *User) bool { return u.Provider == provider && u.ProviderSubject == subject })
}

func (m *memoryStore) UpdateProfile(_ context.Context, id, name, phone, pictureURL string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Name, u.Phone, u.ProfilePictureURL = name, phone, pictureURL
	cp := *u
	return &cp, nil
}

func (m *memoryStore) disable(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u.Disabled = true
		}
	}
}

type fakeVerifier struct {
	identity *jwt.Identity
	err      error
}

func (f *fakeVerifier) Provider() string { return "google" }

func (f *fakeVerifier) Verify(string) (*jwt.Identity, error) {
	return f.identity, f.err
}

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (r *memoryRevoker) RevokeToken(_ context.Context, tokenID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked == nil {
		r.revoked = make(map[string]time.Duration)
	}
	r.revoked[tokenID] = ttl
	return nil
}

func (r *memoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[tokenID]
	return ok, nil
}
