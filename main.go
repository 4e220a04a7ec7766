package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apirest "github.com/kasuganosora/guildsync/api/rest"
	"github.com/kasuganosora/guildsync/audit"
	"github.com/kasuganosora/guildsync/cache"
	"github.com/kasuganosora/guildsync/chat"
	"github.com/kasuganosora/guildsync/config"
	dbadapter "github.com/kasuganosora/guildsync/db"
	"github.com/kasuganosora/guildsync/economy"
	"github.com/kasuganosora/guildsync/guild"
	"github.com/kasuganosora/guildsync/hook"
	"github.com/kasuganosora/guildsync/model"
	"github.com/kasuganosora/guildsync/presence"
	"github.com/kasuganosora/guildsync/scheduler"
	"github.com/kasuganosora/guildsync/store"
	"go.uber.org/zap"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		logger.Warn("security.jwt_secret is not set; every token will be rejected")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Cache / PubSub ----
	cacheConfig := cache.Config{
		RedisAddr:      cfg.Cache.RedisAddr,
		RedisPassword:  cfg.Cache.RedisPassword,
		RedisDB:        cfg.Cache.RedisDB,
		LocalPubSubBuf: cfg.Cache.LocalPubSubBuf,
	}
	kv, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	if cfg.Cache.RedisAddr == "" {
		logger.Warn("cache.redis_addr is not set; sync bus is process-local only")
	}
	logger.Info("Cache initialized")

	// ---- Durable store and registry ----
	st := store.New(db)
	reg := guild.NewRegistry(st, logger)
	if err := reg.LoadAll(); err != nil {
		log.Fatalf("guild registry: %v", err)
	}

	// ---- Supporting services ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop()

	queue := guild.NewQueue(cfg.Guild.QueueSize, logger)
	defer queue.Stop()

	hooks := hook.NewCenter()
	econ := economy.NewWalletEconomy(db)
	notifier := presence.NewBusNotifier(pubsub, logger)

	// ---- Guild mutation engine ----
	svc := guild.NewService(reg, st, queue, pubsub, kv, econ, notifier, sched, hooks, auditSvc,
		guild.Options{
			InviteTTL:          cfg.Guild.InviteTTL,
			AllianceRequestTTL: cfg.Guild.AllianceRequestTTL,
			NameReserveTTL:     cfg.Guild.NameReserveTTL,
		}, logger)

	// ---- Sync listener ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener := guild.NewListener(reg, sched, cfg.Guild.InviteTTL, cfg.Guild.AllianceRequestTTL, logger)
	go func() {
		if err := listener.Run(ctx, pubsub); err != nil {
			logger.Error("sync listener stopped", zap.Error(err))
		}
	}()

	// ---- Chat ----
	chatH := chat.NewHandler(pubsub, reg, logger)

	// ---- HTTP server ----
	r := apirest.NewRouter(cfg, svc, chatH, db, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	// Deferred stops drain the persist queue and the audit batcher before exit.
}
