package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestProcessStatsWorker_Publishes_Gauges(t *testing.T) {
	req := require.New(t)
	worker := NewProcessStatsWorker(logs.GetLoggerFromLevel(slog.LevelDebug), 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// When the worker samples until the context expires
	err := worker.Run(ctx)

	// Then it stops cleanly with the memory gauge filled
	req.NoError(err)
	req.Greater(testutil.ToFloat64(observability.ProcessRSSBytes), float64(0))
}

func TestValueLogGCWorker_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.WARNING))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	// Given a few deleted keys
	for _, key := range []string{"a", "b", "c"} {
		req.NoError(db.Update(func(txn *badger.Txn) error { return txn.Set([]byte(key), []byte("v")) }))
		req.NoError(db.Update(func(txn *badger.Txn) error { return txn.Delete([]byte(key)) }))
	}

	worker := NewValueLogGCWorker(logs.GetLoggerFromLevel(slog.LevelDebug), db, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Then several collections run and the worker returns without error
	req.NoError(worker.Run(ctx))
}
