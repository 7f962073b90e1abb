package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/botrelay/internal/auth"
	"github.com/gosuda/botrelay/internal/commands"
	"github.com/gosuda/botrelay/internal/config"
	"github.com/gosuda/botrelay/internal/gateway/discord"
	"github.com/gosuda/botrelay/internal/relay"
	"github.com/gosuda/botrelay/internal/secrets"
	"github.com/gosuda/botrelay/internal/server"
	"github.com/gosuda/botrelay/internal/store/postgres"
	redisstore "github.com/gosuda/botrelay/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("BOTRELAY_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("BOTRELAY_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	// Connect to Redis (event log sink and live stream).
	eventLog, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, int64(cfg.Relay.LogRetention))
	if err != nil {
		return err
	}
	defer eventLog.Close()

	// Token vault: same secret signs operator sessions and encrypts bot
	// tokens at rest.
	vault, err := secrets.NewVaultFromSecret(cfg.Auth.Secret)
	if err != nil {
		return err
	}

	authSvc := auth.NewService(cfg.Auth.PasswordHash, cfg.Auth.Secret, cfg.Auth.TokenTTL)

	// Command registrar pushes slash commands to the platform REST API.
	registrar := commands.NewRegistrar(store.Bots(), store.Commands(), vault, commands.NewDiscordREST())

	// Connection manager owns one gateway session per started bot.
	manager := relay.NewManager(
		store.Bots(),
		vault,
		discord.NewDialer(),
		relay.NewForwarder(),
		eventLog,
		relay.WithRegistrar(registrar),
		relay.WithDedupSize(cfg.Relay.DedupSize),
	)

	if cfg.Relay.AutoStart {
		if initErr := manager.InitializeAll(ctx); initErr != nil {
			return initErr
		}
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(cfg, server.Deps{
		Store:     store,
		EventLog:  eventLog,
		Vault:     vault,
		Auth:      authSvc,
		Manager:   manager,
		Registrar: registrar,
		Tester:    discord.NewDMTester(),
	})

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	manager.StopAll()

	log.Info().Msg("stopped")
	return nil
}
