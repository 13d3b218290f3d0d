package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/whisper/groupguard/internal/bot"
	"github.com/whisper/groupguard/internal/config"
	"github.com/whisper/groupguard/internal/dashboard"
	"github.com/whisper/groupguard/internal/enforcement"
	"github.com/whisper/groupguard/internal/events"
	"github.com/whisper/groupguard/internal/faq"
	"github.com/whisper/groupguard/internal/logger"
	"github.com/whisper/groupguard/internal/messaging"
	"github.com/whisper/groupguard/internal/moderation"
	"github.com/whisper/groupguard/internal/patterns"
	"github.com/whisper/groupguard/internal/platform"
	"github.com/whisper/groupguard/internal/policy"
	"github.com/whisper/groupguard/internal/ratelimit"
	"github.com/whisper/groupguard/internal/telegram"
)

func main() {
	cfg, warnings := config.FromEnv(os.Getenv)

	log := logger.Must(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer log.Sync()

	for _, w := range warnings {
		log.Warn("config", zap.String("problem", w))
	}
	if cfg.GroupsFile != "" {
		if err := cfg.LoadGroups(cfg.GroupsFile); err != nil {
			log.Fatal("load groups failed", zap.Error(err))
		}
	}
	if err := cfg.ValidateBot(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	if err := run(&cfg, log); err != nil {
		log.Fatal("guardbot stopped", zap.Error(err))
	}
	log.Info("guardbot shut down")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting guardbot",
		zap.String("store", cfg.Store),
		zap.Int("max_warnings", cfg.MaxWarnings),
		zap.Int("report_threshold", cfg.ReportThreshold),
		zap.Int("workers", cfg.Workers),
		zap.Int("groups", len(cfg.Groups)))

	lib, err := loadPatterns(cfg.PatternsFile)
	if err != nil {
		return err
	}
	classifier := moderation.NewClassifier(lib, moderation.VideoLimits{
		MaxBytes:    cfg.MaxVideoBytes,
		MaxDuration: cfg.MaxVideoDuration,
	})

	matcher, err := faq.Default()
	if err != nil {
		return err
	}

	store, limiter, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := dashboard.NewHub(dashboard.DefaultConfig().WriteTimeout, log)
	sinks := events.Fanout{hub}
	if cfg.NATSURL != "" {
		natsCfg := messaging.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.Name = "guardbot"
		nc, err := messaging.NewNATSClient(natsCfg, log)
		if err != nil {
			return err
		}
		defer nc.Close()
		sinks = append(sinks, messaging.NewEventPublisher(nc, log))
	}

	api, err := telegram.Connect(cfg.BotToken, log)
	if err != nil {
		return err
	}
	client := telegram.NewClient(api, cfg.APIRate, log)
	settings := config.NewOverrides(cfg)

	engine := policy.New(policy.Deps{
		Client:     client,
		Store:      store,
		Classifier: classifier,
		Groups:     settings,
		Limiter:    limiter,
		Events:     sinks,
		Log:        log,
	}, policy.OptionsFromConfig(cfg))

	b := bot.New(bot.Deps{
		Engine:   engine,
		FAQ:      matcher,
		Client:   client,
		Store:    store,
		Settings: settings,
		Log:      log,
	})
	dispatcher := bot.NewDispatcher(log)
	b.Register(dispatcher)

	dashCfg := dashboard.DefaultConfig()
	dashCfg.ListenAddr = fmt.Sprintf(":%d", cfg.Port)
	dashCfg.Password = cfg.AdminPassword
	if dashCfg.Password == "" {
		log.Warn("ADMIN_PASSWORD not set, dashboard stats and event stream are disabled")
	}
	server := dashboard.NewServer(dashCfg, store, hub, log)

	updates := make(chan platform.Update, cfg.Workers*4)
	poller := telegram.NewPoller(api, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(updates)
		return poller.Run(gctx, updates)
	})
	g.Go(func() error {
		return dispatcher.Run(gctx, updates, cfg.Workers)
	})
	g.Go(func() error {
		return server.Run(gctx)
	})
	return g.Wait()
}

func loadPatterns(path string) (*patterns.Library, error) {
	if path == "" {
		return patterns.Default()
	}
	return patterns.LoadFile(path)
}

// openStore selects the enforcement backend. The Redis backend also shares
// its client with the banned-notice limiter so replicas agree on windows.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (enforcement.Store, ratelimit.Allower, func(), error) {
	if cfg.Store != config.StoreRedis {
		log.Warn("using in-memory store, state is lost on restart")
		return enforcement.NewMemoryStore(), ratelimit.NewLocalLimiter(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, nil, fmt.Errorf("redis: ping %s: %w", cfg.RedisAddr, err)
	}
	log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			log.Warn("redis close", zap.Error(err))
		}
	}
	return enforcement.NewRedisStore(rdb, ""), ratelimit.NewLimiter(rdb, log), closeFn, nil
}
