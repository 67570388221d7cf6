package pg

import (
	"context"
	"database/sql"
	"errors"

	"tenauth.org/internal/identity"
)

type roleStore struct {
	q querier
}

var _ identity.RoleStore = (*roleStore)(nil)

func (s *roleStore) Create(ctx context.Context, r *identity.Role) error {
	_, err := s.q.ExecContext(ctx, `
		insert into roles (name, created_at) values ($1, $2)
	`, identity.NormalizeRoleName(r.Name), r.CreatedAt)
	return mapWriteError(err)
}

func (s *roleStore) FindByName(ctx context.Context, name string) (*identity.Role, error) {
	var r identity.Role
	err := s.q.QueryRowContext(ctx, `
		select name, created_at from roles where name = $1
	`, identity.NormalizeRoleName(name)).Scan(&r.Name, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *roleStore) List(ctx context.Context) ([]*identity.Role, error) {
	rows, err := s.q.QueryContext(ctx, `select name, created_at from roles order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*identity.Role
	for rows.Next() {
		var r identity.Role
		if err := rows.Scan(&r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, &r)
	}
	return roles, rows.Err()
}
