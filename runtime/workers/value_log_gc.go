package workers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	defaultGCInterval = 5 * time.Minute
	gcDiscardRatio    = 0.5
)

// ValueLogGCWorker reclaims badger value log space left by deleted refresh
// grants and trimmed messages.
type ValueLogGCWorker struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewValueLogGCWorker(log *slog.Logger, db *badger.DB, interval time.Duration) *ValueLogGCWorker {
	if interval <= 0 {
		interval = defaultGCInterval
	}
	return &ValueLogGCWorker{log: log, db: db, interval: interval}
}

func (w *ValueLogGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.collect(ctx)
		}
	}
}

// collect rewrites files until badger reports nothing left to reclaim.
func (w *ValueLogGCWorker) collect(ctx context.Context) {
	rewritten := 0
	for ctx.Err() == nil {
		err := w.db.RunValueLogGC(gcDiscardRatio)
		if err == nil {
			rewritten++
			continue
		}
		if !stderrors.Is(err, badger.ErrNoRewrite) && !stderrors.Is(err, badger.ErrRejected) {
			w.log.Warn("Value log GC failed", "error", err)
		}
		break
	}
	if rewritten > 0 {
		w.log.Info("Value log GC done", "files_rewritten", rewritten)
	}
}
