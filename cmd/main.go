/**
 * @description
 * This is the main entry point for the ComfortCan API. It is responsible for
 * initializing all components of the service: configuration, the PostgREST
 * store client, identity and object storage clients, the RabbitMQ event
 * producer, the optional Redis login rate limiter, the repository, the core
 * application service, and the HTTP server.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/redis/go-redis/v9: Redis client for distributed rate limiting.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/authclient, pkg/postgrest, pkg/rabbitmq, pkg/storageclient: External service clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dvegaa1/comfortcan-erp/internal/api"
	"github.com/dvegaa1/comfortcan-erp/internal/app"
	"github.com/dvegaa1/comfortcan-erp/internal/config"
	"github.com/dvegaa1/comfortcan-erp/internal/store"
	"github.com/dvegaa1/comfortcan-erp/pkg/authclient"
	"github.com/dvegaa1/comfortcan-erp/pkg/postgrest"
	"github.com/dvegaa1/comfortcan-erp/pkg/rabbitmq"
	"github.com/dvegaa1/comfortcan-erp/pkg/storageclient"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.SupabaseURL) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"supabase url must be configured\" env=SUPABASE_URL")
	}
	if strings.TrimSpace(cfg.SupabaseServiceKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"supabase service key must be configured\" env=SUPABASE_SERVICE_KEY")
	}
	anonKey := cfg.SupabaseAnonKey
	if strings.TrimSpace(anonKey) == "" {
		log.Println("level=warn component=bootstrap msg=\"anon key missing; using service key for auth calls\" env=SUPABASE_ANON_KEY")
		anonKey = cfg.SupabaseServiceKey
	}

	log.Printf("level=info component=bootstrap msg=\"starting comfortcan-erp\" port=%s", cfg.ServerPort)

	// Initialize the PostgREST table API client and verify the store is reachable.
	storeClient := postgrest.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := storeClient.Count(pingCtx, "propietarios", nil); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"store unreachable at startup; continuing\" err=%v", err)
	} else {
		log.Println("level=info component=bootstrap msg=\"store reachable\"")
	}
	cancelPing()

	// Initialize the identity and object storage clients.
	authClient := authclient.NewClient(cfg.SupabaseURL, anonKey)
	storageClient := storageclient.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket)

	// Initialize the RabbitMQ producer to publish charge lifecycle events.
	// This service only needs to publish, so we use a producer.
	var eventProducer rabbitmq.Publisher
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		eventProducer = &rabbitmq.EventProducerFallback{}
	} else {
		defer producer.Close()
		eventProducer = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	var redisClient *redis.Client
	if cfg.LoginRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; login rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; login rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; login rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewSupabaseRepository(storeClient)

	// Initialize the core application service with its dependencies.
	service := app.NewService(
		repository,
		authClient,
		storageClient,
		eventProducer,
		cfg.ChargeEventExchange,
	)
	if redisClient != nil {
		service.SetLoginRateLimiter(
			app.NewRedisLoginRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.LoginRateLimitPerMinute,
		)
	}

	// Initialize the API handlers and router.
	handlers := api.NewHandlers(service, repository)
	router := api.Routes(handlers, authClient, cfg.AllowedOrigins())

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
