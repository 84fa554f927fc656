package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"walletledger/internal/config"
	"walletledger/internal/events"
	"walletledger/internal/gateway"
	handler "walletledger/internal/handler/http"
	"walletledger/internal/logger"
	"walletledger/internal/metrics"
	"walletledger/internal/port"
	"walletledger/internal/repository/memory"
	"walletledger/internal/repository/migration"
	"walletledger/internal/repository/postgresql"
	"walletledger/internal/service"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger.LoggerLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("wallet ledger stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher, err := openPublisher(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	m := metrics.New(prometheus.DefaultRegisterer)
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithPublisher(publisher),
	}

	walletSvc := service.NewWalletService(store, store.Wallets(), store.Transactions(), store.Withdrawals(), cfg.Gateway.Name, opts...)
	reconciler := service.NewReconciler(store, store.Transactions(), walletSvc, opts...)
	withdrawalSvc := service.NewWithdrawalService(store, store.Wallets(), store.Transactions(), store.Withdrawals(), opts...)
	checkoutSvc := service.NewCheckoutService(walletSvc, newGateway(cfg.Gateway, log), log)

	h := handler.NewHandler(walletSvc, checkoutSvc, reconciler, withdrawalSvc, handler.Tokens{
		Auth:    cfg.Token.AuthToken,
		Admin:   cfg.Token.AdminToken,
		Webhook: cfg.Token.WebhookToken,
	}, log, prometheus.DefaultGatherer)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (port.Store, func(), error) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn("using in-memory storage, balances are lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DB.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConnection)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConnection)
	db.SetConnMaxLifetime(cfg.DB.ConnectionLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.DB.RunMigrations {
		if err := migration.RunMigrations(ctx, db, log); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	return postgresql.NewStore(db), func() { _ = db.Close() }, nil
}

func openPublisher(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (port.EventPublisher, func(), error) {
	if cfg.Addr == "" {
		return events.NopPublisher{}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info("publishing ledger events", zap.String("redis", cfg.Addr), zap.String("channel", cfg.Channel))
	return events.NewRedisPublisher(client, cfg.Channel), func() { _ = client.Close() }, nil
}

func newGateway(cfg config.GatewayConfig, log *zap.Logger) port.PaymentGateway {
	gc := gateway.Config{
		Name:        cfg.Name,
		BaseURL:     cfg.BaseURL,
		MerchantID:  cfg.MerchantID,
		APIKey:      cfg.APIKey,
		CallbackURL: cfg.CallbackURL,
		RedirectURL: cfg.RedirectURL,
		Timeout:     cfg.Timeout,
	}
	if cfg.Driver == config.GatewayHTTP {
		return gateway.NewHTTPGateway(gc, log)
	}
	return gateway.NewSandboxGateway(gc)
}
