// The worker runs the identity reconcile batch on a fixed interval. It is
// the always-on alternative to hitting POST /identities/update from cron.
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

	"github.com/ignite/courier/internal/cache"
	"github.com/ignite/courier/internal/config"
	"github.com/ignite/courier/internal/identity"
	"github.com/ignite/courier/internal/provider"
	"github.com/ignite/courier/internal/provider/mailgun"
	"github.com/ignite/courier/internal/provider/mock"
	"github.com/ignite/courier/internal/provider/ses"
	"github.com/ignite/courier/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single reconcile batch and exit")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	prov, err := buildProvider(ctx, cfg.Provider)
	if err != nil {
		log.Fatalf("Failed to initialize provider: %v", err)
	}

	svc := identity.NewService(st, prov, cache.New(redisClient),
		identity.WithPageSize(cfg.Reconcile.PageSize),
		identity.WithBackoff(cfg.Reconcile.Backoff()),
	)

	if *once {
		if err := svc.ReconcileAll(ctx); err != nil {
			log.Fatalf("Reconcile failed: %v", err)
		}
		log.Println("Reconcile complete")
		return
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("Shutting down...")
		cancel()
	}()

	log.Printf("Reconcile worker running every %s", cfg.Reconcile.Interval())
	runLoop(ctx, svc, cfg.Reconcile.Interval())
	log.Println("Goodbye")
}

// runLoop runs one batch immediately, then on every tick until ctx ends.
func runLoop(ctx context.Context, svc *identity.Service, interval time.Duration) {
	run := func() {
		start := time.Now()
		if err := svc.ReconcileAll(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Reconcile failed: %v", err)
			return
		}
		log.Printf("Reconcile batch finished in %s", time.Since(start).Round(time.Millisecond))
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
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
