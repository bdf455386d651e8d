package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/config"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/storefront/pkg/redisx"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.Load()
	cfg.MustRequired()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := pkgdb.Migrate(db, models.All()...); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	var publisher events.Publisher = events.Nop{}
	var kafkaPub *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = events.NewKafkaPublisher(events.NewWriter(cfg.KafkaBrokers), cfg.ServiceName, 1024, logger)
		publisher = kafkaPub
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	}

	r := &repo.GormRepo{DB: db}
	authSvc := &service.AuthService{
		Repo:          r,
		Events:        publisher,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
	}
	catalogSvc := &service.CatalogService{Repo: r, Events: publisher}
	orderSvc := &service.OrderService{Repo: r, Events: publisher}

	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(context.Background(), 10*time.Second)
		idx, err := search.New(esCtx, search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword, Index: cfg.ESIndex})
		esCancel()
		if err != nil {
			logger.Warn("search_disabled", "reason", "elasticsearch unavailable", "error", err)
		} else {
			catalogSvc.Search = idx
			logger.Info("search_enabled", "index", cfg.ESIndex)
		}
	}

	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisx.Ping(pingCtx, rdb)
		pingCancel()
		if err != nil {
			logger.Warn("idempotency_cache_disabled", "reason", "redis unavailable", "error", err)
			_ = rdb.Close()
		} else {
			orderSvc.Idem = redisx.NewIdempotencyStore(rdb)
			defer rdb.Close()
		}
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := authSvc.BootstrapAdmin(logging.IntoContext(bootCtx, logger), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
		bootCancel()
		if err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: authSvc},
		CatalogHandler: &httpserver.CatalogHTTP{Svc: catalogSvc},
		CartHandler:    &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Events: publisher}},
		OrderHandler:   &httpserver.OrderHTTP{Svc: orderSvc},
		JWTSecret:      cfg.JWTAccessSecret,
		Refresher:      authSvc,
		DB:             db,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if kafkaPub != nil {
		kafkaPub.Close()
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db close", "error", err)
	}

	logger.Info("stopped")
}
