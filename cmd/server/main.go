package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/courier/internal/api"
	"github.com/ignite/courier/internal/automation"
	"github.com/ignite/courier/internal/cache"
	"github.com/ignite/courier/internal/compose"
	"github.com/ignite/courier/internal/config"
	"github.com/ignite/courier/internal/identity"
	"github.com/ignite/courier/internal/provider"
	"github.com/ignite/courier/internal/provider/mailgun"
	"github.com/ignite/courier/internal/provider/mock"
	"github.com/ignite/courier/internal/provider/ses"
	"github.com/ignite/courier/internal/store"
	"github.com/ignite/courier/internal/webhook"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()
	log.Println("Connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	projectCache := cache.New(redisClient)
	if err := projectCache.Ping(ctx); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	log.Println("Connected to redis")

	prov, err := buildProvider(ctx, cfg.Provider)
	if err != nil {
		log.Fatalf("Failed to initialize provider: %v", err)
	}
	log.Printf("Email provider: %s", cfg.Provider.Driver)

	sender := compose.NewSender(prov)
	engine := automation.NewEngine(st, sender)
	identitySvc := identity.NewService(st, prov, projectCache,
		identity.WithPageSize(cfg.Reconcile.PageSize),
		identity.WithBackoff(cfg.Reconcile.Backoff()),
	)
	webhookSvc := webhook.NewService(st, engine)

	handlers := api.NewHandlers(identitySvc, webhookSvc, st, projectCache, sender)
	server := api.NewServer(cfg.Server, handlers, cfg.Auth.JWTSecret)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	go func() {
		log.Printf("API server listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Goodbye")
}

func buildProvider(ctx context.Context, cfg config.ProviderConfig) (provider.Provider, error) {
	switch cfg.Driver {
	case "mailgun":
		return mailgun.New(cfg.Mailgun)
	case "ses":
		return ses.New(ctx, cfg.SES)
	case "mock":
		log.Println("WARNING: mock email provider configured, no real mail will be sent")
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider driver %q", cfg.Driver)
	}
}
