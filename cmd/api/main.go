package main

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/account"
	"github.com/matst80/securityapp/pkg/auth"
	"github.com/matst80/securityapp/pkg/backend"
	"github.com/matst80/securityapp/pkg/common"
	"github.com/matst80/securityapp/pkg/config"
	"github.com/matst80/securityapp/pkg/server"
	"github.com/matst80/securityapp/pkg/view"
)

func main() {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	ctx := context.Background()
	b, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}

	aggregator := b.Aggregator(cfg.Schema)
	views := view.NewRegistry(aggregator)
	sessions := auth.NewMiddleware(auth.NewIssuer([]byte(cfg.Session.Key), cfg.Session.TTL), b.Auth, cfg.Session.SecureCookies)
	srv := server.New(aggregator, account.NewService(b.Auth, b.Store, b.Blobs, aggregator), views, sessions)
	srv.Notifier = b.Notifier
	srv.BlobFolder = b.BlobFolder

	stopSweep := sweepViews(views, cfg.ViewIdleTimeout)

	httpServer := common.NewServerWithTimeouts(&http.Server{
		Addr:    cfg.ListenAddress,
		Handler: srv.Handler(),
	}, cfg.Timeouts)

	hooks := []common.ShutdownHook{
		func(ctx context.Context) error {
			stopSweep()
			return srv.Shutdown(ctx)
		},
	}
	hooks = append(hooks, b.Hooks()...)
	common.RunServerWithShutdown(httpServer, "security api", cfg.Timeouts.Shutdown, cfg.Timeouts.Hook, hooks...)
}

// sweepViews closes idle screen-sessions until the returned stop func is called.
func sweepViews(views *view.Registry, maxIdle time.Duration) func() {
	ticker := time.NewTicker(max(maxIdle/4, time.Second))
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if n := views.Sweep(maxIdle); n > 0 {
					log.Printf("closed %d idle views", n)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
