package identity

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store with transaction support used by
// tests and by the API server when no database DSN is configured.
// WithinTx serializes callers; there is no rollback, matching the
// single-writer usage it is meant for.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*User
	companies map[string]*Company
	roles     map[string]*Role
}

var _ TxStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*User),
		companies: make(map[string]*Company),
		roles:     make(map[string]*Role),
	}
}

func (m *MemoryStore) Users() UserStore        { return (*memUserStore)(m) }
func (m *MemoryStore) Companies() CompanyStore { return (*memCompanyStore)(m) }
func (m *MemoryStore) Roles() RoleStore        { return (*memRoleStore)(m) }

func (m *MemoryStore) WithinTx(_ context.Context, fn func(s Store) error) error {
	return fn(m)
}

func cloneUser(u *User) *User {
	cp := *u
	cp.Roles = append([]string(nil), u.Roles...)
	return &cp
}

type memUserStore MemoryStore

func (m *memUserStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Login == u.Login {
			return ErrConflict
		}
	}
	if _, ok := m.users[u.ID]; ok {
		return ErrConflict
	}
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *memUserStore) FindByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *memUserStore) FindByLogin(_ context.Context, login string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Login == login {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUserStore) List(_ context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Login < out[j].Login })
	return out, nil
}

func (m *memUserStore) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *memUserStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type memCompanyStore MemoryStore

func (m *memCompanyStore) Create(_ context.Context, c *Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.companies {
		if existing.RoleAlias == c.RoleAlias {
			return ErrConflict
		}
	}
	cp := *c
	m.companies[c.ID] = &cp
	return nil
}

func (m *memCompanyStore) FindByID(_ context.Context, id string) (*Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCompanyStore) List(_ context.Context) ([]*Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Company, 0, len(m.companies))
	for _, c := range m.companies {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memCompanyStore) Update(_ context.Context, c *Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.companies[c.ID]; !ok {
		return ErrNotFound
	}
	cp := *c
	m.companies[c.ID] = &cp
	return nil
}

func (m *memCompanyStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.companies[id]; !ok {
		return ErrNotFound
	}
	delete(m.companies, id)
	return nil
}

type memRoleStore MemoryStore

func (m *memRoleStore) Create(_ context.Context, r *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := NormalizeRoleName(r.Name)
	if _, ok := m.roles[name]; ok {
		return ErrConflict
	}
	m.roles[name] = &Role{Name: name, CreatedAt: r.CreatedAt}
	return nil
}

func (m *memRoleStore) FindByName(_ context.Context, name string) (*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roles[NormalizeRoleName(name)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRoleStore) List(_ context.Context) ([]*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Role, 0, len(m.roles))
	for _, r := range m.roles {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MemoryACL is an in-memory ACLStore used by tests and the DSN-less
// server mode.
type MemoryACL struct {
	mu     sync.RWMutex
	grants map[string]map[string]map[Permission]bool // object -> subject -> perms
	order  []aclFact
}

type aclFact struct {
	object  string
	subject string
	perm    Permission
}

var _ ACLStore = (*MemoryACL)(nil)

func NewMemoryACL() *MemoryACL {
	return &MemoryACL{grants: make(map[string]map[string]map[Permission]bool)}
}

func (m *MemoryACL) Grant(_ context.Context, subject string, obj ObjectRef, perm Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := obj.String()
	if m.grants[key] == nil {
		m.grants[key] = make(map[string]map[Permission]bool)
	}
	if m.grants[key][subject] == nil {
		m.grants[key][subject] = make(map[Permission]bool)
	}
	if !m.grants[key][subject][perm] {
		m.grants[key][subject][perm] = true
		m.order = append(m.order, aclFact{object: key, subject: subject, perm: perm})
	}
	return nil
}

func (m *MemoryACL) Revoke(_ context.Context, subject string, obj ObjectRef, perm Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subs := m.grants[obj.String()]; subs != nil {
		delete(subs[subject], perm)
	}
	return nil
}

func (m *MemoryACL) RevokeObject(_ context.Context, obj ObjectRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.grants, obj.String())
	return nil
}

func (m *MemoryACL) RevokeSubject(_ context.Context, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, subs := range m.grants {
		delete(subs, subject)
	}
	return nil
}

// OwnerOf returns the subject of the earliest WRITE grant still in
// force on the object.
func (m *MemoryACL) OwnerOf(_ context.Context, obj ObjectRef) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := obj.String()
	for _, fact := range m.order {
		if fact.object != key || fact.perm != PermWrite {
			continue
		}
		if subs := m.grants[key]; subs != nil && subs[fact.subject][PermWrite] {
			return fact.subject, nil
		}
	}
	return "", ErrNotFound
}

func (m *MemoryACL) GrantsFor(_ context.Context, subject string, obj ObjectRef) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Permission
	if subs := m.grants[obj.String()]; subs != nil {
		for _, perm := range []Permission{PermRead, PermWrite} {
			if subs[subject][perm] {
				out = append(out, perm)
			}
		}
	}
	return out, nil
}
