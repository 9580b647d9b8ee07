//go:generate mockery --name=CustomerCache --output=./mocks --case=underscore
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/umalmyha/customer-records/internal/model"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	customersGenerationKey = "customers:generation"
	customersListKeyPrefix = "customers:all:"
)

// CustomerCache keeps result of customers listing.
// FindAll returns nil slice on cache miss together with generation the listing must be cached under,
// Evict moves generation forward so listing read before eviction is never served afterwards
type CustomerCache interface {
	FindAll(context.Context) ([]*model.Customer, int64, error)
	CacheAll(context.Context, int64, []*model.Customer) error
	Evict(context.Context) error
}

func customersListKey(generation int64) string {
	return customersListKeyPrefix + strconv.FormatInt(generation, 10)
}

type redisCustomerCache struct {
	client     *redis.Client
	timeToLive time.Duration
}

// NewRedisCustomerCache builds redis backed CustomerCache
func NewRedisCustomerCache(client *redis.Client, ttl time.Duration) CustomerCache {
	return &redisCustomerCache{client: client, timeToLive: ttl}
}

func (r *redisCustomerCache) FindAll(ctx context.Context) ([]*model.Customer, int64, error) {
	generation, err := r.client.Get(ctx, customersGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, err
	}

	res, err := r.client.Get(ctx, customersListKey(generation)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, generation, nil
		}
		return nil, 0, err
	}

	customers := make([]*model.Customer, 0)
	if err := msgpack.Unmarshal(res, &customers); err != nil {
		return nil, 0, err
	}
	return customers, generation, nil
}

func (r *redisCustomerCache) CacheAll(ctx context.Context, generation int64, customers []*model.Customer) error {
	encoded, err := msgpack.Marshal(customers)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, customersListKey(generation), encoded, r.timeToLive).Err()
}

func (r *redisCustomerCache) Evict(ctx context.Context) error {
	return r.client.Incr(ctx, customersGenerationKey).Err()
}

type nopCustomerCache struct{}

// NewNopCustomerCache builds CustomerCache which never holds anything
func NewNopCustomerCache() CustomerCache {
	return nopCustomerCache{}
}

func (nopCustomerCache) FindAll(context.Context) ([]*model.Customer, int64, error) {
	return nil, 0, nil
}

func (nopCustomerCache) CacheAll(context.Context, int64, []*model.Customer) error {
	return nil
}

func (nopCustomerCache) Evict(context.Context) error {
	return nil
}
