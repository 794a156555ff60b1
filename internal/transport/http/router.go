package http

import (
	"log/slog"
	"net/http"
	"time"

	"identity/internal/dto"
	"identity/internal/netutil"
	"identity/internal/observability/middleware"
	"identity/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const MountPath = "/api/auth"

type Options struct {
	CookieSecure       bool
	TrustProxy         bool
	RateLimitPerMinute int // <= 0 disables the limiter
	CORSOrigins        []string
	RequestTimeout     time.Duration
	Logger             *slog.Logger
}

type handler struct {
	auth service.AuthService
	opts Options
	log  *slog.Logger
}

func NewRouter(auth service.AuthService, opts Options) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	h := &handler{auth: auth, opts: opts, log: opts.Logger}

	r := chi.NewRouter()

	// --- Middlewares ---
	r.Use(middleware.WithRequestAndTrace)
	r.Use(middleware.WithMetrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(opts.RequestTimeout))

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
			ExposedHeaders:   []string{middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route(MountPath, func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(httprate.Limit(opts.RateLimitPerMinute, time.Minute,
				httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
					return netutil.ClientIP(r, opts.TrustProxy), nil
				}),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, http.StatusTooManyRequests, dto.ErrorResponse{Error: "too many requests, please try again later"})
				}),
			))
		}

		r.Post("/register", h.register)
		r.Get("/verify-email/{token}", h.verifyEmail)
		r.Post("/login", h.login)
		r.Get("/refresh", h.refresh)
		r.Post("/logout", h.logout)
		r.Post("/forget-password", h.forgetPassword)
		r.Post("/reset-password/{token}", h.resetPassword)
		r.Get("/me", h.me)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, dto.ErrorResponse{Error: "method not allowed"})
	})

	return r
}
