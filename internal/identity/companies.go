package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"tenauth.org/internal/ids"
)

// CompanyService provisions tenants and keeps the two canonical tenant
// roles in lockstep with the company record.
type CompanyService struct {
	store    Store
	acl      ACLStore
	validate *validator.Validate
	now      func() time.Time
}

func NewCompanyService(store Store, acl ACLStore, validate *validator.Validate) *CompanyService {
	return &CompanyService{store: store, acl: acl, validate: validate, now: time.Now}
}

// Provision persists a company and synthesizes its LOCAL_ADMIN and
// LOCAL_USER roles. Company and roles land in one transaction; a store
// without transaction support is rejected up front rather than risking
// a tenant with no roles. The provisioning actor is recorded as the
// company's owner through READ and WRITE grants.
func (s *CompanyService) Provision(ctx context.Context, actor Actor, params CompanyParams) (*Company, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	tx, ok := s.store.(TxStore)
	if !ok {
		return nil, ErrNoTransactionSupport
	}

	now := s.now().UTC()
	company := &Company{
		ID:        ids.New(),
		Name:      params.Name,
		RoleAlias: strings.ToUpper(strings.TrimSpace(params.RoleAlias)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := tx.WithinTx(ctx, func(st Store) error {
		if err := st.Companies().Create(ctx, company); err != nil {
			return err
		}
		for _, kind := range []string{KindLocalAdmin, KindLocalUser} {
			role := &Role{Name: RoleName(company.RoleAlias, kind), CreatedAt: now}
			if err := st.Roles().Create(ctx, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Same post-commit grant discipline as user creation: a failure here
	// is surfaced, not reconciled.
	ref := CompanyRef(company.ID)
	if err := s.acl.Grant(ctx, actor.Login, ref, PermRead); err != nil {
		return nil, fmt.Errorf("grant read on %s: %w", ref, err)
	}
	if err := s.acl.Grant(ctx, actor.Login, ref, PermWrite); err != nil {
		return nil, fmt.Errorf("grant write on %s: %w", ref, err)
	}
	return company, nil
}

// Update re-validates and persists a company. The role alias is
// immutable: the tenant's role names embed it, so a rename attempt is
// rejected outright.
func (s *CompanyService) Update(ctx context.Context, id string, params CompanyParams) (*Company, error) {
	existing, err := s.store.Companies().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(params.RoleAlias), existing.RoleAlias) {
		return nil, fmt.Errorf("%w: role alias cannot change", ErrImmutableField)
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	existing.Name = params.Name
	existing.UpdatedAt = s.now().UTC()
	if err := s.store.Companies().Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// List returns all companies.
func (s *CompanyService) List(ctx context.Context) ([]*Company, error) {
	return s.store.Companies().List(ctx)
}

// Get returns a single company.
func (s *CompanyService) Get(ctx context.Context, id string) (*Company, error) {
	return s.store.Companies().FindByID(ctx, id)
}

// Delete removes a company record and the grants held on it. The role
// cascade is out of scope; tenant roles outlive the company until
// cleaned up operationally.
func (s *CompanyService) Delete(ctx context.Context, id string) error {
	if err := s.store.Companies().Delete(ctx, id); err != nil {
		return err
	}
	if err := s.acl.RevokeObject(ctx, CompanyRef(id)); err != nil {
		return fmt.Errorf("company deleted but object grants remain: %w", err)
	}
	return nil
}
