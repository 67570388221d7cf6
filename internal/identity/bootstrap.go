package identity

import (
	"context"
	"errors"
	"time"

	"tenauth.org/internal/ids"
)

// EnsureAdminRole makes sure the global admin role exists.
func EnsureAdminRole(ctx context.Context, store Store) error {
	_, err := store.Roles().FindByName(ctx, RoleAdmin)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return store.Roles().Create(ctx, &Role{Name: RoleAdmin, CreatedAt: time.Now().UTC()})
}

// BootstrapAdmin creates the initial administrator account when the
// login does not exist yet. The password still has to pass the
// credential policy; the creation rule chain is bypassed because there
// is no actor yet to satisfy it.
func BootstrapAdmin(ctx context.Context, store Store, acl ACLStore, login, password string) (*User, error) {
	if err := EnsureAdminRole(ctx, store); err != nil {
		return nil, err
	}
	if existing, err := store.Users().FindByLogin(ctx, login); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	admin := &User{
		ID:           ids.New(),
		Login:        login,
		PasswordHash: hash,
		Enabled:      true,
		Roles:        []string{RoleAdmin},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.Users().Create(ctx, admin); err != nil {
		return nil, err
	}
	ref := UserRef(admin.ID)
	if err := acl.Grant(ctx, admin.Login, ref, PermRead); err != nil {
		return nil, err
	}
	if err := acl.Grant(ctx, admin.Login, ref, PermWrite); err != nil {
		return nil, err
	}
	return admin, nil
}
