package infra

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-records/internal/config"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// mongoMonitor logs commands at debug level and observes their duration
type mongoMonitor struct {
	database string
	commands sync.Map
	duration *prometheus.HistogramVec
	logger   logrus.FieldLogger
}

func newMongoMonitor(database string, reg prometheus.Registerer, logger logrus.FieldLogger) (*mongoMonitor, error) {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "customers_mongo_command_seconds",
		Help:    "Histogram of MongoDB command durations in seconds",
		Buckets: []float64{.001, .003, .005, .01, .025, .05, .1, .2, .3, .4, .5, .75, 1, 2, 3, 5, 10, 30},
	}, []string{"command", "database", "status"})

	if err := reg.Register(duration); err != nil {
		return nil, fmt.Errorf("failed to register mongo metrics - %w", err)
	}

	return &mongoMonitor{database: database, duration: duration, logger: logger}, nil
}

func (m *mongoMonitor) commandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started:   m.started,
		Succeeded: m.succeeded,
		Failed:    m.failed,
	}
}

func (m *mongoMonitor) started(_ context.Context, evt *event.CommandStartedEvent) {
	m.commands.Store(evt.RequestID, evt.Command.String())
}

func (m *mongoMonitor) succeeded(_ context.Context, evt *event.CommandSucceededEvent) {
	m.observe(evt.RequestID, evt.CommandName, "ok", evt.DurationNanos)
}

func (m *mongoMonitor) failed(_ context.Context, evt *event.CommandFailedEvent) {
	m.observe(evt.RequestID, evt.CommandName, "failed", evt.DurationNanos)
}

func (m *mongoMonitor) observe(requestID int64, command, status string, durationNanos int64) {
	// entries are dropped after completion, otherwise map grows with every command
	query, _ := m.commands.LoadAndDelete(requestID)

	seconds := float64(durationNanos) / 1e9
	m.duration.WithLabelValues(command, m.database, status).Observe(seconds)

	m.logger.WithFields(logrus.Fields{
		"command":  command,
		"status":   status,
		"duration": seconds,
		"query":    query,
	}).Debug("mongo command completed")
}

// Mongodb connects to MongoDB and verifies primary is reachable
func Mongodb(ctx context.Context, cfg config.MongoCfg, reg prometheus.Registerer, logger logrus.FieldLogger) (*mongo.Client, error) {
	monitor, err := newMongoMonitor(cfg.Database, reg, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetMonitor(monitor.commandMonitor()))
	if err != nil {
		return nil, fmt.Errorf("failed to establish connection to mongodb - %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("didn't get response from mongodb after sending ping request - %w", err)
	}
	return client, nil
}
