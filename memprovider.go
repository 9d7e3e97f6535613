package cloudhatch

import (
	"context"
	"strings"
	"sync"
)

// MemoryUserProvider is an in-memory UserProvider for tests, examples, and
// load generation. Accounts live in process memory; all methods are safe
// for concurrent use.
type MemoryUserProvider struct {
	mu    sync.RWMutex
	byID  map[string]User
	index struct {
		username map[string]string
		email    map[string]string
		external map[string]string
	}
}

func NewMemoryUserProvider() *MemoryUserProvider {
	p := &MemoryUserProvider{
		byID: make(map[string]User),
	}
	p.index.username = make(map[string]string)
	p.index.email = make(map[string]string)
	p.index.external = make(map[string]string)
	return p
}

// AddUser inserts or replaces an account. The previous index entries for
// the same ID are not cleaned up; intended for test seeding, not churn.
func (p *MemoryUserProvider) AddUser(u User) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.byID[u.ID] = u
	if u.Username != "" {
		p.index.username[strings.ToLower(u.Username)] = u.ID
	}
	if u.Email != "" {
		p.index.email[strings.ToLower(u.Email)] = u.ID
	}
	if u.ExternalID != "" {
		p.index.external[externalKey(u.ExternalID, u.Issuer)] = u.ID
	}
}

func (p *MemoryUserProvider) GetUserByUsername(_ context.Context, username string) (User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lookup(p.index.username[strings.ToLower(username)])
}

func (p *MemoryUserProvider) GetUserByID(_ context.Context, id string) (User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lookup(id)
}

func (p *MemoryUserProvider) GetUserByExternalID(_ context.Context, externalID, issuer string) (User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lookup(p.index.external[externalKey(externalID, issuer)])
}

func (p *MemoryUserProvider) GetUserByEmail(_ context.Context, email string) (User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lookup(p.index.email[strings.ToLower(email)])
}

func (p *MemoryUserProvider) UpdateUser(_ context.Context, user User) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.byID[user.ID]; !ok {
		return ErrUserNotFound
	}
	p.byID[user.ID] = user
	return nil
}

func (p *MemoryUserProvider) lookup(id string) (User, error) {
	u, ok := p.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	u.Roles = append([]string(nil), u.Roles...)
	return u, nil
}

func externalKey(externalID, issuer string) string {
	return normalizeIDP(issuer) + "\x00" + externalID
}
