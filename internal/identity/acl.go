package identity

import "context"

// Permission is an object-level capability recorded in the ACL store.
type Permission string

const (
	PermRead  Permission = "READ"
	PermWrite Permission = "WRITE"
)

// ObjectRef identifies a domain object in ACL grants.
type ObjectRef struct {
	Kind string
	ID   string
}

func (r ObjectRef) String() string { return r.Kind + ":" + r.ID }

// UserRef builds the ObjectRef for a user record.
func UserRef(id string) ObjectRef { return ObjectRef{Kind: "user", ID: id} }

// CompanyRef builds the ObjectRef for a company record.
func CompanyRef(id string) ObjectRef { return ObjectRef{Kind: "company", ID: id} }

// ACLStore is the single source of truth for object-level access
// beyond role checks. Calls are synchronous with no internal retry;
// a failure after the primary entity write has committed is surfaced
// to the caller rather than reconciled here.
type ACLStore interface {
	Grant(ctx context.Context, subject string, obj ObjectRef, perm Permission) error
	Revoke(ctx context.Context, subject string, obj ObjectRef, perm Permission) error
	RevokeObject(ctx context.Context, obj ObjectRef) error
	RevokeSubject(ctx context.Context, subject string) error
	OwnerOf(ctx context.Context, obj ObjectRef) (string, error)
	GrantsFor(ctx context.Context, subject string, obj ObjectRef) ([]Permission, error)
}

func permissionsContain(perms []Permission, want Permission) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}
