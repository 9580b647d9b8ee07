package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	apperrors "github.com/umalmyha/customer-records/internal/errors"
	"github.com/umalmyha/customer-records/internal/model"
	"github.com/umalmyha/customer-records/pkg/db/transactor"
)

const uniqueViolationCode = "23505"

type postgresCustomerRepository struct {
	executor transactor.PgxExecutor
}

// NewPostgresCustomerRepository builds customer repository on top of postgres,
// queries join transaction bound to context if any
func NewPostgresCustomerRepository(e transactor.PgxExecutor) CustomerRepository {
	return &postgresCustomerRepository{executor: e}
}

func (r *postgresCustomerRepository) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	q := "SELECT id, name, email, age FROM customers WHERE email = $1"

	c, err := scanCustomer(r.executor.Querier(ctx).QueryRow(ctx, q, email))
	if err != nil {
		return nil, apperrors.NewStoreErr("find by email", err)
	}
	return c, nil
}

func (r *postgresCustomerRepository) FindAll(ctx context.Context) ([]*model.Customer, error) {
	q := "SELECT id, name, email, age FROM customers ORDER BY created_at, id"

	rows, err := r.executor.Querier(ctx).Query(ctx, q)
	if err != nil {
		return nil, apperrors.NewStoreErr("find all", err)
	}
	defer rows.Close()

	customers := make([]*model.Customer, 0)
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Age); err != nil {
			return nil, apperrors.NewStoreErr("find all", err)
		}
		customers = append(customers, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreErr("find all", err)
	}
	return customers, nil
}

func (r *postgresCustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	id := uuid.NewString()
	q := "INSERT INTO customers(id, name, email, age) VALUES($1, $2, $3, $4)"

	if _, err := r.executor.Querier(ctx).Exec(ctx, q, id, c.Name, c.Email, c.Age); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return apperrors.NewConflictErr("email", duplicateEmailMessage)
		}
		return apperrors.NewStoreErr("create", err)
	}

	c.ID = id
	return nil
}

func (r *postgresCustomerRepository) UpdateByID(ctx context.Context, id string, patch *model.CustomerPatch) (*model.Customer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewStoreErr("update by id", err)
	}

	q := `UPDATE customers SET name = COALESCE($2, name), email = COALESCE($3, email), age = COALESCE($4, age)
		  WHERE id = $1
		  RETURNING id, name, email, age`

	row := r.executor.Querier(ctx).QueryRow(ctx, q, id, patch.Name, patch.Email, patch.Age)
	c, err := scanCustomer(row)
	if err != nil {
		return nil, apperrors.NewStoreErr("update by id", err)
	}
	return c, nil
}

func (r *postgresCustomerRepository) DeleteByID(ctx context.Context, id string) (*model.Customer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewStoreErr("delete by id", err)
	}

	q := "DELETE FROM customers WHERE id = $1 RETURNING id, name, email, age"

	c, err := scanCustomer(r.executor.Querier(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, apperrors.NewStoreErr("delete by id", err)
	}
	return c, nil
}

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Age); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
