package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"tenauth.org/internal/ids"
)

// UserService orchestrates the user lifecycle: every operation is a
// single permit/deny decision followed by validation, persistence and
// the ACL side effects that keep object-level access in step with
// ownership.
type UserService struct {
	store    Store
	acl      ACLStore
	authz    *Authorizer
	validate *validator.Validate
	now      func() time.Time
}

func NewUserService(store Store, acl ACLStore, authz *Authorizer, validate *validator.Validate) *UserService {
	return &UserService{
		store:    store,
		acl:      acl,
		authz:    authz,
		validate: validate,
		now:      time.Now,
	}
}

// List returns the user records the actor may read. Denied entries are
// silently omitted, never errors.
func (s *UserService) List(ctx context.Context, actor Actor) ([]*User, error) {
	all, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]*User, 0, len(all))
	for _, u := range all {
		ok, err := s.authz.CanReadUser(ctx, actor, u)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, u)
		}
	}
	return visible, nil
}

// Get returns a single record. A permission denial surfaces exactly
// like a missing id so that callers cannot probe for existence.
func (s *UserService) Get(ctx context.Context, actor Actor, id string) (*User, error) {
	u, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.authz.CanReadUser(ctx, actor, u)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

// Me resolves the actor's own record by login.
func (s *UserService) Me(ctx context.Context, actor Actor) (*User, error) {
	return s.store.Users().FindByLogin(ctx, actor.Login)
}

// Create builds and persists a new enabled user: structural validation,
// password policy, role resolution and the creation rule chain all run
// before the write. The new user is then granted READ and WRITE on
// itself so self-service edits work from the first request.
func (s *UserService) Create(ctx context.Context, actor Actor, params CreateUserParams) (*User, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}
	roles := NormalizeRoleNames(params.Roles)
	if err := s.authz.AuthorizeCreate(ctx, actor, roles); err != nil {
		return nil, err
	}
	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &User{
		ID:           ids.New(),
		Login:        params.Login,
		PasswordHash: hash,
		Enabled:      true,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}

	// ACL writes happen after the primary commit; a failure here leaves
	// the user without self-grants and is surfaced, not reconciled.
	ref := UserRef(user.ID)
	if err := s.acl.Grant(ctx, user.Login, ref, PermRead); err != nil {
		return nil, fmt.Errorf("grant read on %s: %w", ref, err)
	}
	if err := s.acl.Grant(ctx, user.Login, ref, PermWrite); err != nil {
		return nil, fmt.Errorf("grant write on %s: %w", ref, err)
	}
	return user, nil
}

func (s *UserService) createUser(ctx context.Context, user *User) error {
	if tx, ok := s.store.(TxStore); ok {
		return tx.WithinTx(ctx, func(st Store) error {
			return st.Users().Create(ctx, user)
		})
	}
	return s.store.Users().Create(ctx, user)
}

// Edit changes the target's password. A WRITE grant on the target is
// required and the password is re-validated on every call, even when
// the caller believes it unchanged.
func (s *UserService) Edit(ctx context.Context, actor Actor, id string, params EditUserParams) (*User, error) {
	target, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.authz.CanWriteUser(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: write grant required", ErrAccessDenied)
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}
	target.PasswordHash = hash
	target.UpdatedAt = s.now().UTC()
	if err := s.store.Users().Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// Disable soft-locks the account: the enabled flag flips, grants and
// role membership stay untouched.
func (s *UserService) Disable(ctx context.Context, actor Actor, id string) error {
	target, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.AuthorizeRemoval(ctx, actor, target); err != nil {
		return err
	}
	target.Enabled = false
	target.UpdatedAt = s.now().UTC()
	return s.store.Users().Update(ctx, target)
}

// Owner resolves the login that owns the record, the subject of the
// earliest WRITE grant still in force. Used for audit enrichment.
func (s *UserService) Owner(ctx context.Context, id string) (string, error) {
	return s.acl.OwnerOf(ctx, UserRef(id))
}

// Delete removes the record and then the ACL facts on both sides: the
// grants held on the user as an object and the grants held by the user
// as a subject. A revoke failure after the repository delete has
// committed is reported as an incomplete operation.
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	target, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.AuthorizeRemoval(ctx, actor, target); err != nil {
		return err
	}
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return err
	}
	if err := s.acl.RevokeObject(ctx, UserRef(id)); err != nil {
		return fmt.Errorf("user deleted but object grants remain: %w", err)
	}
	if err := s.acl.RevokeSubject(ctx, target.Login); err != nil {
		return fmt.Errorf("user deleted but subject grants remain: %w", err)
	}
	return nil
}

// Authenticate verifies login credentials for token issuance. Disabled
// accounts and unknown logins fail identically.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*User, error) {
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.Users().FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
