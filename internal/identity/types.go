package identity

import "time"

// Company is a tenant. Its RoleAlias is embedded into the names of the
// two roles the tenant owns and is immutable after provisioning.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RoleAlias string    `json:"role_alias"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role is a named, globally unique permission role. Local roles carry a
// tenant alias inside the name (ROLE_<ALIAS>_LOCAL_ADMIN and the like);
// the global administrator role is RoleAdmin.
type Role struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account. Tenant membership is derived from the held role
// names, never stored directly.
type User struct {
	ID           string    `json:"id"`
	Login        string    `json:"login"`
	PasswordHash string    `json:"-"`
	Enabled      bool      `json:"enabled"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name string) bool {
	name = NormalizeRoleName(name)
	for _, r := range u.Roles {
		if NormalizeRoleName(r) == name {
			return true
		}
	}
	return false
}

// Actor is the authenticated caller for the duration of one operation.
// It is reconstructed per request from the bearer token and passed
// explicitly into every decision; nothing here is ambient state.
type Actor struct {
	Login string
	Roles []string
}

// HasRole reports whether the actor holds the named role.
func (a Actor) HasRole(name string) bool {
	name = NormalizeRoleName(name)
	for _, r := range a.Roles {
		if NormalizeRoleName(r) == name {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor holds the global admin role.
func (a Actor) IsAdmin() bool { return a.HasRole(RoleAdmin) }

// RolesOfKind returns the actor's roles whose name contains the given
// kind segment, preserving the order they were granted in.
func (a Actor) RolesOfKind(kind string) []string {
	var out []string
	for _, r := range a.Roles {
		if IsRoleOfKind(r, kind) {
			out = append(out, NormalizeRoleName(r))
		}
	}
	return out
}

// CreateUserParams is the payload for user creation. Structural
// constraints live in the validate tags and are enforced by the
// injected validator before any business rule runs.
type CreateUserParams struct {
	Login    string   `json:"login" validate:"required,min=3,max=64"`
	Password string   `json:"password" validate:"required"`
	Roles    []string `json:"roles"`
}

// EditUserParams is the payload for user edits. Password is required on
// every edit and re-validated even when the caller considers it
// unchanged.
type EditUserParams struct {
	Password string `json:"password" validate:"required"`
}

// CompanyParams is the payload for company provisioning and updates.
type CompanyParams struct {
	Name      string `json:"name" validate:"required,min=2,max=128"`
	RoleAlias string `json:"role_alias" validate:"required,alphanum,min=2,max=16"`
}
