package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	obsmw "atelier/internal/observability/middleware"
	"atelier/internal/ratelimit"
	"atelier/internal/service"
)

type Deps struct {
	Auth      service.AuthService
	TwoFactor service.TwoFactorService
	Tokens    service.TokenService
	Access    service.AccessService
	Limiter   ratelimit.Limiter

	CORSOrigins []string
	ArchiveDir  string
}

func NewRouter(d Deps) http.Handler {
	h := &handlers{deps: d}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(obsmw.WithRequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(ratelimit.Middleware(d.Limiter, ratelimit.ClassGeneral))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(ratelimit.Middleware(d.Limiter, ratelimit.ClassAuth))
				r.Post("/login", h.login)
				r.Post("/2fa/verify", h.verifyTwoFactor)
			})
			r.Post("/validate-token", h.validateToken)
			r.Group(func(r chi.Router) {
				r.Use(h.requireAuth)
				r.Post("/2fa/enable", h.enableTwoFactor)
				r.Post("/2fa/disable", h.disableTwoFactor)
				r.Post("/logout", h.logout)
				r.Get("/login-history", h.loginHistory)
			})
		})

		r.Get("/projects/download-zip", h.downloadProject)
	})

	return r
}
