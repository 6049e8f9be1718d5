package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Skotchmaster/travel_social/internal/events"
	"github.com/Skotchmaster/travel_social/internal/httpserver"
	"github.com/Skotchmaster/travel_social/internal/metrics"
	"github.com/Skotchmaster/travel_social/internal/middleware"
	"github.com/Skotchmaster/travel_social/internal/repo"
	"github.com/Skotchmaster/travel_social/internal/revocation"
	"github.com/Skotchmaster/travel_social/internal/service"
	"github.com/Skotchmaster/travel_social/pkg/db"
	"github.com/Skotchmaster/travel_social/pkg/logging"
	"github.com/Skotchmaster/travel_social/pkg/tokens"
)

const sweepInterval = time.Minute

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, log := a.cfg, a.log

	if err := cfg.RequireSecrets(); err != nil {
		return err
	}
	codec, err := tokens.NewCodec(tokens.Keys{
		Access:  tokens.Key{Secret: cfg.JWTAccessSecret, TTL: cfg.AccessTTL},
		Refresh: tokens.Key{Secret: cfg.JWTRefreshSecret, TTL: cfg.RefreshTTL},
		Reset:   tokens.Key{Secret: cfg.JWTResetSecret, TTL: cfg.ResetTTL},
	})
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	r := repo.New(a.db)
	if err := r.Migrate(ctx); err != nil {
		return err
	}
	if cfg.SeedData {
		if err := r.Seed(logging.IntoContext(ctx, log), repo.DefaultSeedAccounts); err != nil {
			return err
		}
	}

	readiness := []func(context.Context) error{
		func(ctx context.Context) error { return db.Ping(ctx, a.db) },
	}

	var cache service.RevocationCache
	if cfg.RedisURL != "" {
		rdb, err := revocation.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = revocation.NewRedisCache(rdb)
		readiness = append(readiness, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		log.Info("revocation_cache", "backend", "redis")
	} else {
		mem := revocation.NewMemoryCache()
		go mem.RunSweeper(ctx, sweepInterval)
		cache = mem
		log.Warn("revocation_cache", "backend", "memory", "reason", "REDIS_URL is empty")
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		if err := events.EnsureTopic(cfg.KafkaBrokers[0], cfg.KafkaTopic); err != nil {
			log.Warn("kafka_topic_unavailable", "topic", cfg.KafkaTopic, "error", err)
		}
		prod, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer func() {
			if err := prod.Close(); err != nil {
				log.Error("kafka_close_failed", "error", err)
			}
		}()
		publisher = prod
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	e := httpserver.New(&httpserver.Deps{
		Logger: log,
		AuthHandler: &httpserver.AuthHTTP{
			Sessions: &service.SessionService{
				Users:        r,
				Ledger:       r,
				Cache:        cache,
				Codec:        codec,
				Events:       publisher,
				Metrics:      m,
				StoreTimeout: cfg.StoreTimeout,
			},
			Accounts: &service.AccountService{
				Store:        r,
				Events:       publisher,
				StoreTimeout: cfg.StoreTimeout,
			},
		},
		Authenticator: &middleware.Authenticator{
			Users:        r,
			Cache:        cache,
			Codec:        codec,
			Metrics:      m,
			StoreTimeout: cfg.StoreTimeout,
		},
		Metrics:        m,
		MetricsHandler: metrics.Handler(),
		Ready: func(ctx context.Context) error {
			for _, check := range readiness {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	errc := make(chan error, 1)
	go func() {
		addr := ":" + strconv.Itoa(cfg.ServerPort)
		log.Info("http_listen", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http_shutdown_failed", "error", err)
	}
	log.Info("shutdown_complete")
	return nil
}
