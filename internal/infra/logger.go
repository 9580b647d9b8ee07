package infra

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-records/internal/config"
)

// Logger configures standard logrus logger according to cfg
func Logger(cfg config.LogCfg) (*logrus.Logger, error) {
	logger := logrus.StandardLogger()

	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level - %w", err)
	}
	logger.SetLevel(lvl)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	return logger, nil
}
