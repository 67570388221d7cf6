package identity

import "context"

// UserStore persists user records together with their role set.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByLogin(ctx context.Context, login string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

// CompanyStore persists companies.
type CompanyStore interface {
	Create(ctx context.Context, c *Company) error
	FindByID(ctx context.Context, id string) (*Company, error)
	List(ctx context.Context) ([]*Company, error)
	Update(ctx context.Context, c *Company) error
	Delete(ctx context.Context, id string) error
}

// RoleStore persists the role catalog. Roles are immutable once
// created; there is no update operation.
type RoleStore interface {
	Create(ctx context.Context, r *Role) error
	FindByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
}

// Store groups the persistence collaborators consumed by the services.
type Store interface {
	Users() UserStore
	Companies() CompanyStore
	Roles() RoleStore
}

// TxStore is a Store that can run a function inside a single
// transaction. Company provisioning refuses to run without it; other
// operations use it opportunistically when the store offers it.
type TxStore interface {
	Store
	WithinTx(ctx context.Context, fn func(s Store) error) error
}
