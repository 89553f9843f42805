package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	server "ancile/internal/adapters/http_server"
	"ancile/internal/adapters/observability"
	"ancile/internal/adapters/payments"
	redisad "ancile/internal/adapters/redis"
	"ancile/internal/app"
	"ancile/internal/shared"
	mysqlrepo "ancile/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if cfg.WebhookSecret == "" {
		log.Error().Msg("WEBHOOK_SECRET is empty; checkout webhooks will be refused with 503")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	rc := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer rc.Close()
	locks := redisad.NewLocker(rc)
	groups := app.NewGroupService(repo, locks, redisad.New(rc), cfg.CacheTTL)
	bookings := app.NewBookingService(app.BookingDeps{
		Groups:   repo,
		Bookings: repo,
		Locks:    locks,
		Risk:     app.StaticScorer{Value: app.DefaultRiskScore},
		Payments: payments.NewCheckout(cfg.CheckoutBase, cfg.WebhookSecret),
		GroupSvc: groups,
	}, cfg.LockTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Groups:    groups,
		Bookings:  bookings,
		Identity:  app.NewIdentityService(),
		Referrals: app.NewReferralService(repo, cfg.ReferralBase),
	})

	servers := []*http.Server{{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}}
	if ms := observability.NewServer(cfg.MetricsAddr, reg); ms != nil {
		servers = append(servers, ms)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		s := s
		g.Go(func() error {
			log.Info().Str("addr", s.Addr).Msg("listening")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Str("addr", s.Addr).Msg("shutdown failed")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("gateway stopped")
}
