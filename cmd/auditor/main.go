package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/audit"
	"github.com/whisper/groupguard/internal/config"
	"github.com/whisper/groupguard/internal/events"
	"github.com/whisper/groupguard/internal/logger"
	"github.com/whisper/groupguard/internal/messaging"
)

// insertTimeout bounds a single event write.
const insertTimeout = 5 * time.Second

// inserter is the part of audit.Store the subscription needs.
type inserter interface {
	Insert(ctx context.Context, e events.Event) error
}

// recordEvents returns the NATS handler writing each event to the store.
// Writes are bounded by insertTimeout only: the connection drains on
// shutdown and events delivered during the drain must still be stored.
func recordEvents(store inserter, log *zap.Logger) func(events.Event) {
	return func(e events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		defer cancel()
		if err := store.Insert(ctx, e); err != nil {
			log.Error("record event failed",
				zap.String("id", e.ID),
				zap.String("kind", string(e.Kind)),
				zap.Int64("chat_id", e.ChatID),
				zap.Error(err))
			return
		}
		log.Debug("event recorded", zap.String("id", e.ID), zap.String("kind", string(e.Kind)))
	}
}

func main() {
	cfg, warnings := config.FromEnv(os.Getenv)

	log := logger.Must(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}).Named("auditor")
	defer log.Sync()

	for _, w := range warnings {
		log.Warn("config", zap.String("problem", w))
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.NATSURL == "" {
		log.Fatal("NATS_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := audit.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal("connect to postgres failed", zap.Error(err))
	}
	defer db.Close()

	if err := audit.MigrateUp(db); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}
	store := audit.NewStore(db, log)

	natsCfg := messaging.DefaultNATSConfig()
	natsCfg.URL = cfg.NATSURL
	natsCfg.Name = "guard-auditor"
	nc, err := messaging.NewNATSClient(natsCfg, log)
	if err != nil {
		log.Fatal("connect to nats failed", zap.Error(err))
	}
	defer nc.Close()

	if err := nc.SubscribeEvents(recordEvents(store, log)); err != nil {
		log.Fatal("subscribe failed", zap.Error(err))
	}

	log.Info("auditor ready, recording moderation events")
	<-ctx.Done()
	log.Info("shutting down auditor")
}
