package keys

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]*APIKey
	seq  time.Duration
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]*APIKey)}
}

// Raw returns the stored row for id, ciphertext included.
func (m *MemoryStore) Raw(id string) (*APIKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok {
		return nil, false
	}
	cp := *k
	return &cp, true
}

// Corrupt replaces the stored secret for id.
func (m *MemoryStore) Corrupt(id string, fn func(*APIKey)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.keys[id]; ok {
		fn(k)
	}
}

func (m *MemoryStore) Replace(ctx context.Context, key *APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.UserID == key.UserID && k.Provider == key.Provider {
			k.IsActive = false
		}
	}
	// Strictly increasing timestamps keep newest-first ordering stable.
	m.seq += time.Millisecond
	now := time.Now().UTC().Add(m.seq)
	key.ID = uuid.NewString()
	key.IsActive = true
	key.CreatedAt, key.UpdatedAt = now, now
	cp := *key
	m.keys[key.ID] = &cp
	return nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*APIKey{}
	for _, k := range m.keys {
		if k.UserID == userID {
			cp := *k
			cp.Secret.Ciphertext, cp.Secret.IV, cp.Secret.AuthTag = "", "", ""
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) ActiveForProvider(ctx context.Context, userID string, provider Provider) (*APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.UserID == userID && k.Provider == provider && k.IsActive {
			cp := *k
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Delete(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok || k.UserID != userID {
		return ErrNotFound
	}
	delete(m.keys, id)
	return nil
}
