package identity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("identity: not found")
	ErrConflict             = errors.New("identity: already exists")
	ErrValidation           = errors.New("identity: invalid input")
	ErrWeakCredential       = errors.New("identity: weak credential")
	ErrInvalidCredentials   = errors.New("identity: invalid credentials")
	ErrImmutableField       = errors.New("identity: immutable field")
	ErrNoTransactionSupport = errors.New("identity: store does not support transactions")

	// ErrAccessDenied is the umbrella for every permission-rule failure.
	// The HTTP layer maps all of them to a uniform forbidden response;
	// the specific kinds below exist so that logs and tests can tell the
	// sub-rules apart via errors.Is.
	ErrAccessDenied = errors.New("identity: access denied")

	ErrInvalidRoleSet        = fmt.Errorf("%w: user needs at least one role", ErrAccessDenied)
	ErrUnknownRole           = fmt.Errorf("%w: unknown role", ErrAccessDenied)
	ErrForbiddenRoleGrant    = fmt.Errorf("%w: cannot grant the admin role", ErrAccessDenied)
	ErrInsufficientPrivilege = fmt.Errorf("%w: local admin role required", ErrAccessDenied)
	ErrCrossTenantCreation   = fmt.Errorf("%w: local admin cannot create users for its own tenant", ErrAccessDenied)
	ErrAdminTarget           = fmt.Errorf("%w: admin accounts cannot be disabled or deleted", ErrAccessDenied)
)
