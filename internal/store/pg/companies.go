package pg

import (
	"context"
	"database/sql"
	"errors"

	"tenauth.org/internal/identity"
)

type companyStore struct {
	q querier
}

var _ identity.CompanyStore = (*companyStore)(nil)

func (s *companyStore) Create(ctx context.Context, c *identity.Company) error {
	_, err := s.q.ExecContext(ctx, `
		insert into companies (id, name, role_alias, created_at, updated_at)
		values ($1, $2, $3, $4, $5)
	`, c.ID, c.Name, c.RoleAlias, c.CreatedAt, c.UpdatedAt)
	return mapWriteError(err)
}

func (s *companyStore) FindByID(ctx context.Context, id string) (*identity.Company, error) {
	var c identity.Company
	err := s.q.QueryRowContext(ctx, `
		select id, name, role_alias, created_at, updated_at from companies where id = $1
	`, id).Scan(&c.ID, &c.Name, &c.RoleAlias, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *companyStore) List(ctx context.Context) ([]*identity.Company, error) {
	rows, err := s.q.QueryContext(ctx, `
		select id, name, role_alias, created_at, updated_at from companies order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []*identity.Company
	for rows.Next() {
		var c identity.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.RoleAlias, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, &c)
	}
	return companies, rows.Err()
}

func (s *companyStore) Update(ctx context.Context, c *identity.Company) error {
	res, err := s.q.ExecContext(ctx, `
		update companies set name = $2, updated_at = $3 where id = $1
	`, c.ID, c.Name, c.UpdatedAt)
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

func (s *companyStore) Delete(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `delete from companies where id = $1`, id)
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
