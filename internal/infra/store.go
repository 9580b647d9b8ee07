package infra

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-records/internal/cache"
	"github.com/umalmyha/customer-records/internal/config"
	"github.com/umalmyha/customer-records/internal/repository"
	"github.com/umalmyha/customer-records/pkg/db/transactor"
)

// Store bundles customer repository with transactor suitable for its backend
type Store struct {
	Repository repository.CustomerRepository
	Transactor transactor.Transactor
	closeFn    func(context.Context) error
}

// Close releases store connections
func (s *Store) Close(ctx context.Context) error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn(ctx)
}

// CustomerStore connects to backend selected by cfg.StoreDriver
func CustomerStore(ctx context.Context, cfg config.Config, reg prometheus.Registerer, logger *logrus.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, err := Mongodb(ctx, cfg.MongoCfg, reg, logger)
		if err != nil {
			return nil, err
		}

		coll := client.Database(cfg.MongoCfg.Database).Collection(cfg.MongoCfg.Collection)
		if err := repository.EnsureMongoIndexes(ctx, coll); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}

		return &Store{
			Repository: repository.NewMongoCustomerRepository(coll),
			Transactor: transactor.NewNopTransactor(),
			closeFn:    client.Disconnect,
		}, nil
	case config.StoreDriverPostgres:
		pool, err := Postgresql(ctx, cfg.PostgresCfg, logger)
		if err != nil {
			return nil, err
		}

		return &Store{
			Repository: repository.NewPostgresCustomerRepository(transactor.NewPgxExecutor(pool)),
			Transactor: transactor.NewPgxTransactor(pool),
			closeFn: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil
	case config.StoreDriverDynamoDB:
		client, err := DynamoDB(ctx, cfg.DynamoDBCfg)
		if err != nil {
			return nil, err
		}

		return &Store{
			Repository: repository.NewDynamoCustomerRepository(client, cfg.DynamoDBCfg.Table),
			Transactor: transactor.NewNopTransactor(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// CustomerCache builds redis list cache, caching is disabled when no address is configured
func CustomerCache(ctx context.Context, cfg config.RedisCfg) (cache.CustomerCache, func() error, error) {
	if cfg.Addr == "" {
		return cache.NewNopCustomerCache(), func() error { return nil }, nil
	}

	client, err := Redis(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedisCustomerCache(client, cfg.TimeToLive), client.Close, nil
}
