package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/log/logrusadapter"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-records/internal/config"
)

// Postgresql builds pgx pool, queries are traced to logger at debug level
func Postgresql(ctx context.Context, cfg config.PostgresCfg, logger logrus.FieldLogger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config - %w", err)
	}

	poolCfg.ConnConfig.Logger = logrusadapter.NewLogger(logger)
	poolCfg.ConnConfig.LogLevel = pgx.LogLevelWarn
	if l, ok := logger.(*logrus.Logger); ok && l.IsLevelEnabled(logrus.DebugLevel) {
		poolCfg.ConnConfig.LogLevel = pgx.LogLevelDebug
	}

	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to establish connection to db - %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("didn't get response from database after sending ping request - %w", err)
	}
	return pool, nil
}
