package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mkravets/digital-store/internal/cache"
	"github.com/mkravets/digital-store/internal/config"
	"github.com/mkravets/digital-store/internal/es"
	"github.com/mkravets/digital-store/internal/events"
	"github.com/mkravets/digital-store/internal/handlers"
	authhdl "github.com/mkravets/digital-store/internal/handlers/auth"
	"github.com/mkravets/digital-store/internal/logging"
	authmw "github.com/mkravets/digital-store/internal/middleware/auth"
	"github.com/mkravets/digital-store/internal/payments"
	"github.com/mkravets/digital-store/internal/storage"
	httpserver "github.com/mkravets/digital-store/internal/transport/http"
	loggingmw "github.com/mkravets/digital-store/pkg/middleware/logging"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	configuration.MustValidate()

	logger := logging.New(os.Getenv("LOG_LEVEL"))

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	var store *cache.Cache
	if configuration.REDIS_ADDR != "" {
		store, err = cache.New(configuration.REDIS_ADDR, configuration.REDIS_PASSWORD)
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", "error", err)
			store = nil
		}
	}

	var producer *events.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = events.NewProducer([]string{configuration.KAFKA_ADDRESS})
	}

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		esClient, err = es.NewClient(configuration)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search disabled", "error", err)
			esClient = nil
		}
	}

	signer, err := storage.NewS3(context.Background(), configuration)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	tokens := &authmw.TokenService{
		DB:            db,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		RefreshSecret: []byte(configuration.REFRESH_SECRET),
	}

	deps := httpserver.Deps{
		DB:             db,
		Tokens:         tokens,
		AuthHandler:    &authhdl.AuthHandler{DB: db, Tokens: tokens, Producer: producer},
		ProductHandler: &handlers.ProductHandler{DB: db, Cache: store},
		SearchHandler:  &handlers.SearchHandler{ES: esClient, Index: es.ProductIndex},
		CheckoutHandler: &handlers.CheckoutHandler{
			DB:       db,
			Sessions: payments.NewClient(configuration.STRIPE_SECRET_KEY),
			AppURL:   configuration.APP_URL,
		},
		WebhookHandler: &handlers.WebhookHandler{
			DB:            db,
			Cache:         store,
			Producer:      producer,
			WebhookSecret: configuration.STRIPE_WEBHOOK_SECRET,
		},
		DownloadHandler: &handlers.DownloadHandler{DB: db, Signer: signer},
		OrdersHandler:   &handlers.OrdersHandler{DB: db, Cache: store},
		AdminHandler: &handlers.AdminHandler{
			DB:       db,
			Cache:    store,
			Producer: producer,
			Signer:   signer,
			ES:       esClient,
		},
		AdminReports: &handlers.AdminReportsHandler{DB: db, Cache: store},
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.SERVER_PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := store.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}
	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
