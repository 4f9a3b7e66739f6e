package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/travel-bookings/internal/adapters/crdb"
	"github.com/robertarktes/travel-bookings/internal/adapters/filestore"
	"github.com/robertarktes/travel-bookings/internal/adapters/mailersend"
	mongoadapter "github.com/robertarktes/travel-bookings/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/travel-bookings/internal/adapters/redis"
	"github.com/robertarktes/travel-bookings/internal/adapters/s3store"
	"github.com/robertarktes/travel-bookings/internal/booking"
	"github.com/robertarktes/travel-bookings/internal/config"
	"github.com/robertarktes/travel-bookings/internal/delivery"
	httphandler "github.com/robertarktes/travel-bookings/internal/http"
	"github.com/robertarktes/travel-bookings/internal/idempotency"
	"github.com/robertarktes/travel-bookings/internal/observability"
	"github.com/robertarktes/travel-bookings/internal/rateLimit"
	"github.com/robertarktes/travel-bookings/internal/ticket"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type artifactStore interface {
	Store(ctx context.Context, name string, data []byte) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg, "bookings-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger(cfg.LogLevel)

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	ledger := crdb.NewRepository(pool)
	if err := ledger.Migrate(context.Background()); err != nil {
		log.Fatalf("failed to migrate crdb: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	users := mongoadapter.NewUserDirectory(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	redisCache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisCache, cfg.RateLimitPerMinute, time.Minute)

	var artifacts artifactStore
	switch cfg.TicketStorage {
	case config.TicketStorageS3:
		artifacts, err = s3store.New(context.Background(), cfg.S3)
		if err != nil {
			log.Fatalf("failed to setup s3 storage: %v", err)
		}
	default:
		artifacts = filestore.New(cfg.TicketsDir)
	}

	var transport delivery.Transport = delivery.NewLogTransport(logger)
	if cfg.Mail.MailerSendAPIKey != "" {
		transport = mailersend.NewTransport(cfg.Mail, logger)
	}

	svc := booking.NewService(
		ledger,
		catalog,
		users,
		ticket.NewRenderer(ticket.DefaultOptions()),
		artifacts,
		delivery.NewDispatcher(transport),
		booking.Options{PublicBaseURL: cfg.PublicBaseURL, DeliveryTimeout: cfg.DeliveryTimeout},
		logger,
	)

	checks := map[string]httphandler.Pinger{
		"crdb":      ledger,
		"redis":     redisCache,
		"artifacts": artifacts,
		"mongo":     mongoPinger{mongoClient},
	}
	handlers := httphandler.NewHandlers(svc, catalog, artifacts, checks, logger)

	r := httphandler.SetupRouter(handlers, logger, rl, idemp, []byte(cfg.JWTSecret))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}

type mongoPinger struct {
	client *mongo.Client
}

func (p mongoPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, nil)
}
