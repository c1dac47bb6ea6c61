package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/rexcoach/internal/errors"
)

const optimizeInterval = time.Hour

// startDatabaseOptimizer runs PRAGMA optimize at start-up and then hourly until ctx is done.
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) startDatabaseOptimizer(ctx context.Context) {
	// 0x10002 also analyzes tables that have never been analyzed, which is what a fresh connection wants.
	db.optimize(ctx, "PRAGMA optimize = 0x10002")
	ticker := time.NewTicker(optimizeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			db.optimize(ctx, "PRAGMA optimize")
		}
	}
}

func (db *Database) optimize(ctx context.Context, pragma string) {
	start := time.Now()
	_, err := db.ReadWrite.ExecContext(ctx, pragma)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "optimize database failed", errors.SlogError(err))
		return
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
}
