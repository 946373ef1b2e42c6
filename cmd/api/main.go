package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/otpchat/chat-api/internal/api"
	"github.com/otpchat/chat-api/internal/api/handler"
	"github.com/otpchat/chat-api/internal/core/ports"
	"github.com/otpchat/chat-api/internal/core/service"
	"github.com/otpchat/chat-api/internal/infrastructure/db/memory"
	mongodb "github.com/otpchat/chat-api/internal/infrastructure/db/mongo"
	redisdb "github.com/otpchat/chat-api/internal/infrastructure/db/redis"
	"github.com/otpchat/chat-api/internal/infrastructure/queue"
	"github.com/otpchat/chat-api/internal/pkg/config"
	"github.com/otpchat/chat-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "chat-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		users    ports.UserRepository
		messages ports.MessageRepository
		checks   []handler.DependencyCheck
	)
	switch cfg.Store {
	case config.StoreMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Fatal().Err(err).Msg("connect mongo")
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("disconnect mongo")
			}
		}()
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("ensure mongo indexes")
		}
		users = mongodb.NewUserRepository(db)
		messages = mongodb.NewMessageRepository(db)
		checks = append(checks, handler.MongoCheck(db))
	default:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		users = memory.NewUserRepository()
		messages = memory.NewMessageRepository()
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("close redis")
			}
		}()
		checks = append(checks, handler.RedisCheck(rdb))
	}

	dispatcher := queue.NewDispatcher(cfg.Delivery.Workers, queue.NewLogSender(log), log)
	// Stop runs after e.Shutdown so codes from in-flight registrations
	// still reach the sender.
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	gen, err := service.NewCodeGenerator(cfg.OTP.Mode, cfg.OTP.StaticCode)
	if err != nil {
		log.Fatal().Err(err).Msg("otp generator")
	}
	auth := service.NewAuthService(
		users,
		service.NewOTPIssuer(gen, cfg.OTP.TTL),
		service.NewJWTIssuer(cfg.JWTSecret, cfg.JWTExpiry),
		dispatcher,
		log,
	)

	e := api.NewRouter(api.Deps{
		Auth:          auth,
		Authenticator: auth,
		Messages:      service.NewMessageService(messages, log),
		Checks:        checks,
		Log:           log,
		RequestLog:    true,
	})

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store).Str("otp_mode", cfg.OTP.Mode).Msg("server listening")
		srvErr <- e.Start(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
		return
	}
	log.Info().Msg("server exited cleanly")
}
