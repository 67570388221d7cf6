package pg

import (
	"context"
	"database/sql"
	"errors"

	"tenauth.org/internal/identity"
)

type userStore struct {
	q querier
}

var _ identity.UserStore = (*userStore)(nil)

func (s *userStore) Create(ctx context.Context, u *identity.User) error {
	_, err := s.q.ExecContext(ctx, `
		insert into users (id, login, password_hash, enabled, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Login, u.PasswordHash, u.Enabled, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	for _, role := range u.Roles {
		if _, err := s.q.ExecContext(ctx, `
			insert into user_roles (user_id, role_name) values ($1, $2)
		`, u.ID, identity.NormalizeRoleName(role)); err != nil {
			return mapWriteError(err)
		}
	}
	return nil
}

func (s *userStore) FindByID(ctx context.Context, id string) (*identity.User, error) {
	return s.findOne(ctx, `
		select id, login, password_hash, enabled, created_at, updated_at
		from users where id = $1
	`, id)
}

func (s *userStore) FindByLogin(ctx context.Context, login string) (*identity.User, error) {
	return s.findOne(ctx, `
		select id, login, password_hash, enabled, created_at, updated_at
		from users where login = $1
	`, login)
}

func (s *userStore) findOne(ctx context.Context, query, arg string) (*identity.User, error) {
	var u identity.User
	err := s.q.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Enabled, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	roles, err := s.rolesFor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (s *userStore) rolesFor(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		select role_name from user_roles where user_id = $1 order by role_name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

func (s *userStore) List(ctx context.Context) ([]*identity.User, error) {
	rows, err := s.q.QueryContext(ctx, `
		select u.id, u.login, u.password_hash, u.enabled, u.created_at, u.updated_at, r.role_name
		from users u
		left join user_roles r on r.user_id = u.id
		order by u.login, r.role_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		users []*identity.User
		index = map[string]*identity.User{}
	)
	for rows.Next() {
		var (
			u    identity.User
			role sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Enabled, &u.CreatedAt, &u.UpdatedAt, &role); err != nil {
			return nil, err
		}
		existing, ok := index[u.ID]
		if !ok {
			existing = &u
			index[u.ID] = existing
			users = append(users, existing)
		}
		if role.Valid {
			existing.Roles = append(existing.Roles, role.String)
		}
	}
	return users, rows.Err()
}

func (s *userStore) Update(ctx context.Context, u *identity.User) error {
	// Role membership is immutable through the lifecycle operations;
	// only credentials and the enabled flag are written back.
	res, err := s.q.ExecContext(ctx, `
		update users set password_hash = $2, enabled = $3, updated_at = $4 where id = $1
	`, u.ID, u.PasswordHash, u.Enabled, u.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return identity.ErrNotFound
	}
	return nil
}
