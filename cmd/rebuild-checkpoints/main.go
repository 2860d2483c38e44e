// Command rebuild-checkpoints re-derives card checkpoints from the review
// event log. Run it after changing the FSRS weight vector or the requested
// retention, which invalidate every cached checkpoint. It is intended to be
// invoked by an external cron job or a deploy hook, not as an in-process
// goroutine.
//
// Flags:
//
//	--card <id>  rebuild a single card's checkpoint
//	(default)    drop and rebuild all checkpoints
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartwood-labs/lexicard-backend/internal/adapter/postgres"
	"github.com/heartwood-labs/lexicard-backend/internal/adapter/postgres/checkpoint"
	"github.com/heartwood-labs/lexicard-backend/internal/adapter/postgres/reviewevent"
	"github.com/heartwood-labs/lexicard-backend/internal/app"
	"github.com/heartwood-labs/lexicard-backend/internal/config"
	"github.com/heartwood-labs/lexicard-backend/internal/service/study"
)

func main() {
	cardFlag := flag.String("card", "", "rebuild only this card's checkpoint")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	svc := study.NewService(
		logger,
		reviewevent.New(pool),
		checkpoint.New(pool),
		postgres.NewTxManager(pool),
		cfg.Scheduler.DeckSettings(),
	)

	if *cardFlag != "" {
		state, err := svc.RebuildCheckpoint(ctx, *cardFlag)
		if err != nil {
			logger.Error("rebuild checkpoint failed",
				slog.String("card_id", *cardFlag),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}

		logger.Info("checkpoint rebuilt",
			slog.String("card_id", *cardFlag),
			slog.String("queue", string(state.Queue)),
			slog.Int("reps", state.Reps),
		)
		return
	}

	count, err := svc.RebuildAllCheckpoints(ctx)
	if err != nil {
		logger.Error("rebuild all checkpoints failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("rebuild completed", slog.Int("cards", count))
}
