package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/docvault/pkg/rbac"
)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]Profile
	hashes   map[string]string
	calls    map[string]int
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]Profile),
		hashes:   make(map[string]string),
		calls:    make(map[string]int),
	}
}

// Put inserts or replaces a profile without credentials.
func (m *MemoryStore) Put(p *Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = *p
}

// Calls returns how many times method was invoked.
func (m *MemoryStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["GetByID"]++
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = NormalizeEmail(email)
	for _, p := range m.profiles {
		if p.Email == email {
			p := p
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Create(ctx context.Context, p *Profile, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Email = NormalizeEmail(p.Email)
	for _, existing := range m.profiles {
		if existing.Email == p.Email {
			return ErrEmailTaken
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.profiles[p.ID] = *p
	m.hashes[p.ID] = passwordHash
	return nil
}

func (m *MemoryStore) PasswordHash(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[userID]
	if !ok {
		return "", ErrNotFound
	}
	return h, nil
}

func (m *MemoryStore) ListPending(ctx context.Context, orgID string) ([]*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Profile
	for _, p := range m.profiles {
		if p.OrgID == orgID && p.ApprovalStatus == ApprovalPending {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) ListByOrg(ctx context.Context, orgID string) ([]*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Profile
	for _, p := range m.profiles {
		if p.OrgID == orgID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) mutate(id string, fn func(*Profile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	m.profiles[id] = p
	return nil
}

func (m *MemoryStore) UpdateRole(ctx context.Context, id string, role rbac.Role) error {
	return m.mutate(id, func(p *Profile) { p.Role = role })
}

func (m *MemoryStore) UpdateOrg(ctx context.Context, id, orgID string) error {
	return m.mutate(id, func(p *Profile) { p.OrgID = orgID })
}

func (m *MemoryStore) SetActive(ctx context.Context, id string, active bool) error {
	return m.mutate(id, func(p *Profile) { p.IsActive = active })
}

func (m *MemoryStore) SetApproval(ctx context.Context, id string, status ApprovalStatus) error {
	return m.mutate(id, func(p *Profile) { p.ApprovalStatus = status })
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id]; !ok {
		return ErrNotFound
	}
	delete(m.profiles, id)
	delete(m.hashes, id)
	return nil
}
