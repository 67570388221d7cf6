package pg

import (
	"context"
	"database/sql"
	"errors"

	"tenauth.org/internal/identity"
)

// ACL implements identity.ACLStore on PostgreSQL. Grants are plain
// rows; idempotent writes keep retries harmless.
type ACL struct {
	db *sql.DB
}

var _ identity.ACLStore = (*ACL)(nil)

func NewACL(db *sql.DB) *ACL { return &ACL{db: db} }

func (a *ACL) Grant(ctx context.Context, subject string, obj identity.ObjectRef, perm identity.Permission) error {
	_, err := a.db.ExecContext(ctx, `
		insert into acl_entries (subject_login, object_kind, object_id, permission)
		values ($1, $2, $3, $4)
		on conflict (subject_login, object_kind, object_id, permission) do nothing
	`, subject, obj.Kind, obj.ID, string(perm))
	return mapWriteError(err)
}

func (a *ACL) Revoke(ctx context.Context, subject string, obj identity.ObjectRef, perm identity.Permission) error {
	_, err := a.db.ExecContext(ctx, `
		delete from acl_entries
		where subject_login = $1 and object_kind = $2 and object_id = $3 and permission = $4
	`, subject, obj.Kind, obj.ID, string(perm))
	return err
}

func (a *ACL) RevokeObject(ctx context.Context, obj identity.ObjectRef) error {
	_, err := a.db.ExecContext(ctx, `
		delete from acl_entries where object_kind = $1 and object_id = $2
	`, obj.Kind, obj.ID)
	return err
}

func (a *ACL) RevokeSubject(ctx context.Context, subject string) error {
	_, err := a.db.ExecContext(ctx, `delete from acl_entries where subject_login = $1`, subject)
	return err
}

// OwnerOf resolves the object's owner: the subject of the earliest
// WRITE grant still in force.
func (a *ACL) OwnerOf(ctx context.Context, obj identity.ObjectRef) (string, error) {
	var subject string
	err := a.db.QueryRowContext(ctx, `
		select subject_login from acl_entries
		where object_kind = $1 and object_id = $2 and permission = $3
		order by created_at asc
		limit 1
	`, obj.Kind, obj.ID, string(identity.PermWrite)).Scan(&subject)
	if errors.Is(err, sql.ErrNoRows) {
		return "", identity.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return subject, nil
}

func (a *ACL) GrantsFor(ctx context.Context, subject string, obj identity.ObjectRef) ([]identity.Permission, error) {
	rows, err := a.db.QueryContext(ctx, `
		select permission from acl_entries
		where subject_login = $1 and object_kind = $2 and object_id = $3
		order by permission
	`, subject, obj.Kind, obj.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []identity.Permission
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, identity.Permission(p))
	}
	return perms, rows.Err()
}
