package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-records/internal/cache"
	apperrors "github.com/umalmyha/customer-records/internal/errors"
	"github.com/umalmyha/customer-records/internal/model"
	"github.com/umalmyha/customer-records/internal/repository"
	"github.com/umalmyha/customer-records/pkg/db/transactor"
)

// CustomerService implements business rules on top of customer store
type CustomerService interface {
	Create(context.Context, *model.Customer) (*model.Customer, error)
	FindAll(context.Context) ([]*model.Customer, error)
	UpdateByID(context.Context, string, *model.CustomerPatch) (*model.Customer, error)
	DeleteByID(context.Context, string) (*model.Customer, error)
}

type customerService struct {
	transactor        transactor.Transactor
	customerRepo      repository.CustomerRepository
	customerCacheRepo cache.CustomerCache
	logger            logrus.FieldLogger
}

// NewCustomerService builds CustomerService
func NewCustomerService(
	trx transactor.Transactor,
	customerRepo repository.CustomerRepository,
	customerCacheRepo cache.CustomerCache,
	logger logrus.FieldLogger,
) CustomerService {
	return &customerService{
		transactor:        trx,
		customerRepo:      customerRepo,
		customerCacheRepo: customerCacheRepo,
		logger:            logger,
	}
}

func (s *customerService) Create(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.customerRepo.FindByEmail(ctx, c.Email)
		if err != nil {
			return err
		}

		if existing != nil {
			return apperrors.NewConflictErr("email", fmt.Sprintf("customer with email %s already exists", c.Email))
		}

		return s.customerRepo.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.evictList(ctx)
	return c, nil
}

func (s *customerService) FindAll(ctx context.Context) ([]*model.Customer, error) {
	cached, generation, cacheErr := s.customerCacheRepo.FindAll(ctx)
	if cacheErr != nil {
		s.logger.Warnf("failed to read customers from cache - %v", cacheErr)
	}

	if cached != nil {
		return cached, nil
	}

	customers, err := s.customerRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	// generation is unknown when cache read failed
	if cacheErr == nil {
		if err := s.customerCacheRepo.CacheAll(ctx, generation, customers); err != nil {
			s.logger.Warnf("failed to cache customers - %v", err)
		}
	}
	return customers, nil
}

func (s *customerService) UpdateByID(ctx context.Context, id string, patch *model.CustomerPatch) (*model.Customer, error) {
	if patch.HasBlankField() {
		return nil, apperrors.NewInvalidEntryErr("customer", "name, email and age can't be blank")
	}

	c, err := s.customerRepo.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if c == nil {
		return nil, apperrors.NewEntryNotFoundErr(fmt.Sprintf("customer with id %s doesn't exist", id))
	}

	if !patch.IsEmpty() {
		s.evictList(ctx)
	}
	return c, nil
}

func (s *customerService) DeleteByID(ctx context.Context, id string) (*model.Customer, error) {
	c, err := s.customerRepo.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if c == nil {
		return nil, apperrors.NewEntryNotFoundErr(fmt.Sprintf("customer with id %s doesn't exist", id))
	}

	s.evictList(ctx)
	return c, nil
}

// evictList drops cached listing, stale entry expires on its own if eviction fails
func (s *customerService) evictList(ctx context.Context) {
	if err := s.customerCacheRepo.Evict(ctx); err != nil {
		s.logger.Warnf("failed to evict customers from cache - %v", err)
	}
}
