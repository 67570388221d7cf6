package identity

import (
	"fmt"
	"strings"
)

// RoleAdmin is the global administrator role. It is never tenant
// scoped and can never be granted through user creation.
const RoleAdmin = "ROLE_ADMIN"

// Role kind segments embedded into tenant role names.
const (
	KindLocalAdmin = "LOCAL_ADMIN"
	KindLocalUser  = "LOCAL_USER"
)

// RoleName derives the canonical tenant role name for an alias and
// kind: ROLE_<ALIAS>_<KIND>. The alias is upper-cased; it must come
// from the owning company, never from a caller-supplied value.
func RoleName(alias, kind string) string {
	return fmt.Sprintf("ROLE_%s_%s", strings.ToUpper(strings.TrimSpace(alias)), kind)
}

// IsRoleOfKind classifies an arbitrary role name by kind segment
// without parsing out the alias.
func IsRoleOfKind(name, kind string) bool {
	return strings.Contains(NormalizeRoleName(name), kind)
}

// NormalizeRoleName upper-cases and trims a role name. Every
// comparison and every stored name goes through this first.
func NormalizeRoleName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// NormalizeRoleNames normalizes and deduplicates a role name set,
// preserving first-seen order.
func NormalizeRoleNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, name := range names {
		name = NormalizeRoleName(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func containsRole(names []string, target string) bool {
	target = NormalizeRoleName(target)
	for _, name := range names {
		if NormalizeRoleName(name) == target {
			return true
		}
	}
	return false
}
