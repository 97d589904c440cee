package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/backend"
	"github.com/matst80/securityapp/pkg/common"
	"github.com/matst80/securityapp/pkg/config"
	"github.com/matst80/securityapp/pkg/messaging"
	"github.com/matst80/securityapp/pkg/types"
)

const (
	batchSize = 50
	prefetch  = 2 * batchSize
)

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func main() {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Rabbit.Enabled() {
		log.Fatal("RABBIT_URL environment variable is not set")
	}
	ctx := context.Background()
	b, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}

	conn, err := amqp.DialConfig(cfg.Rabbit.Url, amqp.Config{
		Properties: amqp.NewConnectionProperties(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("Failed to open channel: %v", err)
	}

	ingester := NewIngester(b.Aggregator(cfg.Schema), b.Notifier)
	queue := common.NewQueueHandler(ingester.Process, batchSize, 0)

	err = messaging.ListenToTopic(ch, cfg.Rabbit.Prefix, messaging.LoginEventTopic, prefetch, func(event types.LoginEvent, done func(error)) {
		if event.UserID == "" {
			log.Printf("Dropping login event without user")
			done(nil)
			return
		}
		queue.Add(PendingEvent{Event: event, Done: done})
	})
	if err != nil {
		log.Fatalf("Failed to listen to %s: %v", messaging.LoginEventTopic, err)
	}
	log.Printf("listening for login events on %s", cfg.Rabbit.Prefix)

	httpServer := common.NewServerWithTimeouts(&http.Server{
		Addr:    cfg.ListenAddress,
		Handler: metricsHandler(),
	}, cfg.Timeouts)

	hooks := []common.ShutdownHook{
		func(ctx context.Context) error {
			// queued events are stored and acked before the channel goes away
			queue.Close()
			return ch.Close()
		},
	}
	hooks = append(hooks, b.Hooks()...)
	common.RunServerWithShutdown(httpServer, "login ingest", cfg.Timeouts.Shutdown, cfg.Timeouts.Hook, hooks...)
}
