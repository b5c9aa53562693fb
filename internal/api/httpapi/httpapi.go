package httpapi

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/BearBump/BoaTracking/internal/metrics"
	"github.com/BearBump/BoaTracking/internal/services/alerts"
	"github.com/BearBump/BoaTracking/internal/services/claims"
	"github.com/BearBump/BoaTracking/internal/services/packages"
	"github.com/BearBump/BoaTracking/internal/services/preregistrations"
	"github.com/BearBump/BoaTracking/internal/services/returns"
	"github.com/BearBump/BoaTracking/internal/services/users"
)

type Services struct {
	Packages         *packages.Service
	Alerts           *alerts.Service
	Preregistrations *preregistrations.Service
	Returns          *returns.Service
	Claims           *claims.Service
	Users            *users.Service
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type API struct {
	svc      Services
	db       Pinger
	validate *validator.Validate
}

func New(svc Services, db Pinger) *API {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &API{svc: svc, db: db, validate: v}
}

// Router serves the REST API under /api plus health, metrics and docs.
// An empty swaggerPath leaves the docs out.
func (a *API) Router(swaggerPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", a.readyz)
	r.Handle("/metrics", promhttp.Handler())

	if swaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, swaggerPath)
		})
		r.Get("/docs/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger.json"),
		))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/packages", a.packageRoutes)
		r.Route("/alerts", a.alertRoutes)
		r.Route("/preregistrations", a.preregistrationRoutes)
		r.Route("/returns", a.returnRoutes)
		r.Route("/claims", a.claimRoutes)
		r.Route("/users", a.userRoutes)
	})
	return r
}

func (a *API) readyz(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// cors lets the browser frontend call the API from another origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
