package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plagued/storefront/internal/api"
	"github.com/plagued/storefront/internal/cart"
	"github.com/plagued/storefront/internal/checkout"
	"github.com/plagued/storefront/internal/discount"
	"github.com/plagued/storefront/internal/journal"
	"github.com/plagued/storefront/internal/payment"
	"github.com/plagued/storefront/internal/stock"
	"github.com/plagued/storefront/internal/web"
)

type Config struct {
	HTTPPort        string
	BackendAPIURL   string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	CartStorage   string // "redis" or "mongo"
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDBName   string

	StripeSecretKey string
	ReturnURL       string

	PostgresHost      string
	PostgresPort      int
	PostgresUser      string
	PostgresPassword  string
	PostgresDB        string
	MigrationsDirPath string
	KafkaBrokers      []string
}

func loadConfig() *Config {
	pgPort, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		log.Fatalf("invalid POSTGRES_PORT: %v", err)
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		BackendAPIURL:   getEnv("BACKEND_API_URL", "http://localhost:8000"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		CartStorage:   getEnv("CART_STORAGE", "redis"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "storefront"),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		ReturnURL:       getEnv("RETURN_URL", "http://localhost:8080/checkout/success"),

		PostgresHost:      getEnv("POSTGRES_HOST", ""),
		PostgresPort:      pgPort,
		PostgresUser:      getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:  getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:        getEnv("POSTGRES_DB", "storefront"),
		MigrationsDirPath: getEnv("MIGRATIONS_DIR", "internal/journal/migrations"),
		KafkaBrokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// logNavigator stands in for client-side routing; the HTTP layer reports
// redirects in response bodies instead.
type logNavigator struct{}

func (logNavigator) Go(route string) {
	log.Printf("navigate to %s", route)
}

func buildStorage(ctx context.Context, cfg *Config) (cart.Storage, func(), error) {
	switch cfg.CartStorage {
	case "mongo":
		db, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		return cart.NewMongoStorage(db), func() {
			if e2 := db.Client().Disconnect(context.Background()); e2 != nil {
				log.Printf("failed to disconnect mongo: %v", e2)
			}
		}, nil
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		return cart.NewRedisStorage(client), func() {
			if e2 := client.Close(); e2 != nil {
				log.Printf("failed to close redis client: %v", e2)
			}
		}, nil
	}
}

func main() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := buildStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect cart storage: %v", err)
	}
	defer closeStorage()

	store := cart.NewStore(storage, nil)
	store.Hydrate(ctx)

	backend := api.NewClient(cfg.BackendAPIURL, cfg.RequestTimeout)
	revalidator := stock.NewRevalidator(backend)
	intents := payment.NewIntentManager(backend)
	applier := discount.NewApplier(backend, intents)
	confirmer := payment.NewStripeConfirmer(cfg.StripeSecretKey, cfg.ReturnURL)

	// order journal is optional; without postgres the storefront still sells
	var recorder checkout.OrderRecorder
	if cfg.PostgresHost != "" {
		creds := &journal.Credentials{
			Host:              cfg.PostgresHost,
			Port:              cfg.PostgresPort,
			User:              cfg.PostgresUser,
			Password:          cfg.PostgresPassword,
			DBName:            cfg.PostgresDB,
			MigrationsDirPath: cfg.MigrationsDirPath,
		}
		repo, err := journal.NewRepository(creds)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer repo.Close()

		if e2 := repo.RunMigrations(creds); e2 != nil {
			log.Fatalf("failed to run migrations: %v", e2)
		}
		recorder = repo

		poller := journal.NewOutboxPoller(repo, cfg.KafkaBrokers...)
		go poller.Run(ctx)
	}

	ctrl := checkout.NewController(store, revalidator, applier, intents, confirmer, recorder, logNavigator{})

	cartHandler := web.NewCartHandler(store, cfg.RequestTimeout)
	checkoutHandler := web.NewCheckoutHandler(ctrl, applier, store, backend, cfg.RequestTimeout)
	router := web.NewRouter(cartHandler, checkoutHandler, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
