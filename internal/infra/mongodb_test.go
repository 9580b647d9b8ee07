package infra

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
)

func TestMongoMonitor(t *testing.T) {
	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	reg := prometheus.NewRegistry()
	m, err := newMongoMonitor("customers", reg, logger)
	require.NoError(t, err, "failed to build monitor")

	cmd, err := bson.Marshal(bson.D{{Key: "find", Value: "customers"}})
	require.NoError(t, err)

	monitor := m.commandMonitor()

	t.Log("succeeded command is observed and logged")
	{
		monitor.Started(ctx, &event.CommandStartedEvent{Command: cmd, CommandName: "find", RequestID: 1})
		monitor.Succeeded(ctx, &event.CommandSucceededEvent{
			CommandFinishedEvent: event.CommandFinishedEvent{CommandName: "find", RequestID: 1, DurationNanos: 2e6},
		})

		require.Equal(t, 1, testutil.CollectAndCount(m.duration), "one series must be collected")
		require.Equal(t, "mongo command completed", hook.LastEntry().Message)
		require.Equal(t, "ok", hook.LastEntry().Data["status"])
		require.Contains(t, hook.LastEntry().Data["query"], "customers")
	}

	t.Log("failed command is observed separately")
	{
		monitor.Started(ctx, &event.CommandStartedEvent{Command: cmd, CommandName: "find", RequestID: 2})
		monitor.Failed(ctx, &event.CommandFailedEvent{
			CommandFinishedEvent: event.CommandFinishedEvent{CommandName: "find", RequestID: 2, DurationNanos: 1e6},
			Failure:              "boom",
		})

		require.Equal(t, 2, testutil.CollectAndCount(m.duration), "ok and failed series must be collected")
		require.Equal(t, "failed", hook.LastEntry().Data["status"])
	}

	t.Log("completed commands are not retained")
	{
		_, ok := m.commands.Load(int64(1))
		require.False(t, ok)
	}

	t.Log("monitor can't be registered twice in the same registry")
	{
		_, err := newMongoMonitor("customers", reg, logger)
		require.Error(t, err)
	}
}
