package common

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"
)

// ShutdownHook is a function executed after a termination signal is received
// but before the HTTP server begins its graceful shutdown. If a hook returns
// an error it will be logged; shutdown continues regardless.
type ShutdownHook func(ctx context.Context) error

// RunServerWithShutdown starts the provided *http.Server and blocks until a termination
// signal (SIGINT or SIGTERM) is received. It then runs the hooks in order, each
// with its own timeout inside the overall shutdown deadline, and finally shuts
// the server down.
//
//	server := common.NewServerWithTimeouts(&http.Server{Addr: ":8080", Handler: mux}, timeouts)
//	common.RunServerWithShutdown(server, "api", timeouts.Shutdown, timeouts.Hook, closeViews)
func RunServerWithShutdown(server *http.Server, startupLog string, shutdownTimeout, hookTimeout time.Duration, hooks ...ShutdownHook) {
	go func() {
		log.Printf("starting %s on %s", startupLog, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("%s listen error: %v", startupLog, err)
		}
	}()

	WaitForSignal()
	log.Printf("shutdown signal received for %s", startupLog)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	RunHooks(ctx, hookTimeout, hooks...)

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	} else {
		log.Printf("%s shutdown complete", startupLog)
	}
}

// WaitForSignal blocks until SIGINT or SIGTERM.
func WaitForSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	signal.Stop(stop)
}

// RunHooks runs the hooks sequentially with individual timeouts. A hook
// timeout <= 0 defaults to 5s. Failures are logged and do not stop the chain.
func RunHooks(ctx context.Context, hookTimeout time.Duration, hooks ...ShutdownHook) {
	if hookTimeout <= 0 {
		hookTimeout = 5 * time.Second
	}
	for i, h := range hooks {
		if h == nil {
			continue
		}
		hCtx, hCancel := context.WithTimeout(ctx, hookTimeout)
		if err := h(hCtx); err != nil {
			log.Printf("shutdown hook %d failed: %v", i, err)
		}
		if errors.Is(hCtx.Err(), context.DeadlineExceeded) {
			log.Printf("shutdown hook %d timed out", i)
		}
		hCancel()
	}
}

// TimeoutConfig holds server and shutdown related timeouts. The env tags are
// read by the config package, values are parsed as durations ("15s").
type TimeoutConfig struct {
	ReadHeader time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	Read       time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	Write      time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	Idle       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	Shutdown   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	Hook       time.Duration `env:"HOOK_TIMEOUT" envDefault:"5s"`
}

// NewServerWithTimeouts attaches timeout settings to an existing *http.Server or creates a new one if nil.
func NewServerWithTimeouts(base *http.Server, cfg TimeoutConfig) *http.Server {
	if base == nil {
		base = &http.Server{}
	}
	base.ReadHeaderTimeout = cfg.ReadHeader
	base.ReadTimeout = cfg.Read
	base.WriteTimeout = cfg.Write
	base.IdleTimeout = cfg.Idle
	return base
}
