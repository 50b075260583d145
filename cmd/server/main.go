// Command server wires the pseudonymization service: three store connections,
// the key material chain, the encryption engine, the pseudonym directory and
// the cross-store orchestrator, plus the operational HTTP surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"veil/internal/crypto"
	"veil/internal/keyring"
	"veil/internal/platform/config"
	"veil/internal/platform/httpserver"
	"veil/internal/platform/logger"
	"veil/internal/platform/postgres"
	"veil/internal/platform/redis"
	"veil/internal/pseudonym"
	pseudostore "veil/internal/pseudonym/store"
	usermetrics "veil/internal/user/metrics"
	"veil/internal/user/service"
	authstore "veil/internal/user/store/auth"
	personalstore "veil/internal/user/store/personal"
	"veil/pkg/platform/audit"
	auditkafka "veil/pkg/platform/audit/kafka"
	"veil/pkg/platform/tx"
)

func main() {
	// Missing .env is fine; the environment may be fully set already.
	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fallbackExit(err)
	}
	log := logger.New(cfg.LogLevel, cfg.Pretty)

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One pool per store: the separation between the three databases is the
	// whole point, so they never share a connection.
	personalDB, err := postgres.Open(ctx, cfg.PersonalDB)
	if err != nil {
		return err
	}
	defer personalDB.Close()

	authDB, err := postgres.Open(ctx, cfg.AuthDB)
	if err != nil {
		return err
	}
	defer authDB.Close()

	pseudonymDB, err := postgres.Open(ctx, cfg.PseudonymDB)
	if err != nil {
		return err
	}
	defer pseudonymDB.Close()

	// Key material: Vault, cached, invalidated by the rotation signal.
	vault := keyring.NewVaultClient(cfg.Vault.Addr, cfg.Vault.Token, cfg.Vault.KeysPath)
	keys := keyring.NewCached(vault,
		keyring.WithTTL(cfg.Vault.CacheTTL),
		keyring.WithMetrics(keyring.NewMetrics()),
	)

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		go func() {
			if err := keyring.WatchRotation(ctx, rdb.Client, keys, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("rotation watcher stopped")
			}
		}()
	} else {
		log.Warn().Msg("no redis configured, key rotation relies on cache TTL alone")
	}

	engine := crypto.NewEngine(keys)
	directory := pseudonym.New(pseudostore.NewPostgres(pseudonymDB), engine)

	var publisher audit.Publisher = audit.NewLog(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub, err := auditkafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer kafkaPub.Close()
		publisher = audit.Tee{kafkaPub, audit.NewLog(log)}
	}

	svc := service.New(
		personalstore.NewPostgres(personalDB),
		authstore.NewPostgres(authDB),
		directory,
		engine,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(usermetrics.New()),
		service.WithTxRunner(tx.NewRunner(personalDB)),
	)
	// Startup self-check: one listing exercises the auth store, the directory
	// and the key material end to end before the process reports ready. No
	// business transport is exposed here; the orchestrator is consumed
	// in-process.
	if _, err := svc.GetUsers(ctx); err != nil {
		return fmt.Errorf("startup self-check: %w", err)
	}

	checks := []httpserver.ReadyCheck{
		{Name: "personal store", Check: personalDB.PingContext},
		{Name: "auth store", Check: authDB.PingContext},
		{Name: "pseudonym store", Check: pseudonymDB.PingContext},
		{Name: "key material", Check: func(ctx context.Context) error {
			_, err := keys.Material(ctx)
			return err
		}},
	}
	if rdb != nil {
		checks = append(checks, httpserver.ReadyCheck{Name: "redis", Check: rdb.Health})
	}

	srv := httpserver.New(cfg.Addr, httpserver.NewRouter(checks...))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// fallbackExit reports a failure from before the logger exists.
func fallbackExit(err error) {
	l := zerolog.New(os.Stderr)
	l.Fatal().Err(err).Msg("configuration failed")
}
