//go:generate mockery --name=CustomerRepository --output=./mocks --case=underscore
package repository

import (
	"context"

	"github.com/umalmyha/customer-records/internal/model"
)

const duplicateEmailMessage = "customer with such email already exists"

// CustomerRepository is a store of customers.
// Lookups return nil customer and nil error when no entry matches.
type CustomerRepository interface {
	FindByEmail(context.Context, string) (*model.Customer, error)
	FindAll(context.Context) ([]*model.Customer, error)
	Create(context.Context, *model.Customer) error
	UpdateByID(context.Context, string, *model.CustomerPatch) (*model.Customer, error)
	DeleteByID(context.Context, string) (*model.Customer, error)
}
