package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-playground/validator/v10"

	"github.com/mostrador/mostrador/internal/app"
	"github.com/mostrador/mostrador/internal/catalog"
	"github.com/mostrador/mostrador/internal/credit"
	"github.com/mostrador/mostrador/internal/platform/cache"
	"github.com/mostrador/mostrador/internal/platform/db"
	"github.com/mostrador/mostrador/internal/purchases"
	"github.com/mostrador/mostrador/internal/reservations"
	"github.com/mostrador/mostrador/internal/returns"
	"github.com/mostrador/mostrador/internal/sales"
	"github.com/mostrador/mostrador/internal/sequence"
	"github.com/mostrador/mostrador/internal/shared"
	"github.com/mostrador/mostrador/internal/stock"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cache.Config{
		Addr:        cfg.RedisAddr,
		PoolSize:    cfg.RedisPoolSize,
		DialTimeout: cfg.RedisDialTimeout,
	})
	if err != nil {
		logger.Warn("redis unavailable, price cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	validate := validator.New()
	auditLogger := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)

	catalogService := catalog.NewService(catalog.NewRepository(pool), catalog.NewPriceCache(redisClient, cfg.PriceCacheTTL))
	sequenceService := sequence.NewService(sequence.NewRepository(pool))
	stockLedger := stock.NewLedger(stock.NewRepository(pool), auditLogger, idempotency)
	salesService := sales.NewService(sales.NewRepository(pool), auditLogger)
	reservationWorkflow := reservations.NewWorkflow(reservations.NewRepository(pool), catalogService, salesService, auditLogger)
	returnCoordinator := returns.NewCoordinator(returns.NewRepository(pool), auditLogger)
	purchaseService := purchases.NewService(purchases.NewRepository(pool), auditLogger)
	creditService := credit.NewService(credit.NewRepository(pool), auditLogger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Pool:                pool,
		CatalogHandler:      catalog.NewHandler(logger, catalogService, validate),
		SequenceHandler:     sequence.NewHandler(logger, sequenceService, validate, cfg.DefaultScope),
		StockHandler:        stock.NewHandler(logger, stockLedger, validate),
		SalesHandler:        sales.NewHandler(logger, salesService, validate),
		ReservationsHandler: reservations.NewHandler(logger, reservationWorkflow, validate),
		ReturnsHandler:      returns.NewHandler(logger, returnCoordinator, validate),
		PurchasesHandler:    purchases.NewHandler(logger, purchaseService, validate),
		CreditHandler:       credit.NewHandler(logger, creditService, validate),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
