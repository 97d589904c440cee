package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/account"
	"github.com/matst80/securityapp/pkg/auth"
	"github.com/matst80/securityapp/pkg/common"
	"github.com/matst80/securityapp/pkg/records"
	"github.com/matst80/securityapp/pkg/types"
	"github.com/matst80/securityapp/pkg/view"
)

var requests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "securityapp_http_requests_total",
	Help: "The total number of api requests by route and status",
}, []string{"route", "status"})

type Server struct {
	Records  *records.Aggregator
	Accounts *account.Service
	Views    *view.Registry
	Sessions *auth.Middleware
	// Notifier is told about records added through the api, optional.
	Notifier types.LoginNotifier
	// BlobFolder serves locally stored blobs under /blobs/ when set.
	BlobFolder string
	validate   *validator.Validate
	now        func() time.Time
}

func New(aggregator *records.Aggregator, accounts *account.Service, views *view.Registry, sessions *auth.Middleware) *Server {
	return &Server{
		Records:  aggregator,
		Accounts: accounts,
		Views:    views,
		Sessions: sessions,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// route wraps a handler with session resolution, cors headers and request metrics.
func (s *Server) route(name string, fn func(w http.ResponseWriter, r *http.Request, session types.Session) error) http.Handler {
	handler := common.JsonHandler(func(w http.ResponseWriter, r *http.Request) error {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		err := fn(rec, r, auth.SessionFromContext(r.Context()))
		requests.WithLabelValues(name, http.StatusText(rec.status)).Inc()
		return err
	})
	return s.Sessions.Handler(handler)
}

func (s *Server) Handler() http.Handler {
	srv := http.NewServeMux()
	srv.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Printf("Failed to write health response: %v", err)
		}
	})
	srv.Handle("/metrics", promhttp.Handler())

	srv.Handle("POST /api/signup", s.route("signup", s.SignUp))
	srv.Handle("POST /api/signin", s.route("signin", s.SignIn))
	srv.Handle("POST /api/signout", s.route("signout", s.SignOut))

	srv.Handle("GET /api/account", s.route("account", s.GetAccount))
	srv.Handle("PUT /api/account/picture", s.route("picture", s.SetPicture))
	srv.Handle("PUT /api/account/location", s.route("location", s.SetLocation))
	srv.Handle("POST /api/account/devices", s.route("devices", s.RegisterDevice))

	srv.Handle("GET /api/records", s.route("records", s.GetRecords))
	srv.Handle("POST /api/records", s.route("add-record", s.AddRecord))

	srv.Handle("POST /api/views", s.route("open-view", s.OpenView))
	srv.Handle("GET /api/views/{id}", s.route("view", s.GetView))
	srv.Handle("PUT /api/views/{id}/base", s.route("view-base", s.SelectBase))
	srv.Handle("PUT /api/views/{id}/filter", s.route("view-filter", s.SetFilter))
	srv.Handle("DELETE /api/views/{id}", s.route("close-view", s.CloseView))
	srv.Handle("OPTIONS /api/", common.JsonHandler(func(w http.ResponseWriter, r *http.Request) error { return nil }))

	if s.BlobFolder != "" {
		srv.Handle("GET /blobs/", http.StripPrefix("/blobs/", http.FileServer(http.Dir(s.BlobFolder))))
	}
	return srv
}

// Shutdown closes the open screen-sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Views.CloseAll()
	return nil
}
