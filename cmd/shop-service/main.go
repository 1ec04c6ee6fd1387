package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/category"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/config"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/db"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/events"
	shopHttp "github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/order"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/product"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/review"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/transport"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/user"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/wishlist"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	setupLogger(cfg)
	log.Info().Str("env", cfg.App.Env).Msg("Shop service starting...")

	ctx := context.Background()

	dbConn, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	publisher := newPublisher(cfg.RabbitMQ)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}()

	policy := authz.NewPolicy()
	pages := shopHttp.PageSettings{
		DefaultPerPage: cfg.Catalog.DefaultPageSize,
		MaxPerPage:     cfg.Catalog.MaxPageSize,
	}

	// Репозитории и сервисы
	userSvc := user.NewService(user.NewRepository(dbConn.Pool))
	authSvc := auth.NewService(
		userSvc,
		auth.NewTokenRepository(dbConn.Pool),
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer),
	)
	categorySvc := category.NewService(category.NewRepository(dbConn.Pool))
	productSvc := product.NewService(product.NewRepository(dbConn.Pool), cfg.Catalog.RelatedLimit)
	cartSvc := cart.NewService(cart.NewRepository(dbConn.Pool), productSvc)
	wishlistSvc := wishlist.NewService(wishlist.NewRepository(dbConn.Pool), productSvc, cartSvc)
	orderSvc := order.NewService(order.NewRepository(dbConn.Pool), policy, publisher)
	reviewSvc := review.NewService(review.NewRepository(dbConn.Pool), productSvc, policy)

	debug := cfg.App.Debug
	router := transport.NewRouter(
		shopHttp.NewGuards(authSvc, policy),
		shopHttp.NewAuthHandler(authSvc, userSvc, debug),
		shopHttp.NewUserHandler(userSvc, pages, debug),
		shopHttp.NewCategoryHandler(categorySvc, debug),
		shopHttp.NewProductHandler(productSvc, pages, cfg.Catalog.TrendingDays, debug),
		shopHttp.NewCartHandler(cartSvc, debug),
		shopHttp.NewWishlistHandler(wishlistSvc, debug),
		shopHttp.NewOrderHandler(orderSvc, pages, debug),
		shopHttp.NewReviewHandler(reviewSvc, pages, debug),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Ждем сигнал завершения
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shop service stopped gracefully")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", cfg.App.Name).Logger()
}

// newPublisher falls back to a no-op publisher when RabbitMQ is not configured or unreachable.
func newPublisher(cfg config.RabbitMQConfig) events.Publisher {
	if cfg.URL == "" {
		log.Info().Msg("RABBITMQ_URL not set, order events disabled")
		return events.NopPublisher{}
	}

	p, err := events.NewRabbitMQPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		log.Warn().Err(err).Msg("RabbitMQ unavailable, order events disabled")
		return events.NopPublisher{}
	}
	return p
}
