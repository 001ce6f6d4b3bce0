package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"access-code-service/internal/usecase"
)

// Limiter throttles redemption attempts per identity.
type Limiter interface {
	Allow(ctx context.Context, userID string) bool
}

// Server wires the code issuance/redemption use cases to HTTP.
type Server struct {
	issuance     *usecase.IssuanceUseCase
	redemption   *usecase.RedemptionUseCase
	entitlements *usecase.EntitlementUseCase
	limiter      Limiter

	jwtSecret string
	adminKey  string
	log       *zerolog.Logger
}

func NewServer(
	issuance *usecase.IssuanceUseCase,
	redemption *usecase.RedemptionUseCase,
	entitlements *usecase.EntitlementUseCase,
	limiter Limiter,
	jwtSecret, adminKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "api").Logger()
	return &Server{
		issuance:     issuance,
		redemption:   redemption,
		entitlements: entitlements,
		limiter:      limiter,
		jwtSecret:    jwtSecret,
		adminKey:     adminKey,
		log:          &l,
	}
}

// Router builds the chi mux with middleware and all routes attached.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(func(h http.Handler) http.Handler { return Chain(h, TraceID(), RequestLog(s.log), Recover(s.log)) })

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/codes/validate", s.handleValidate)

		r.Group(func(r chi.Router) {
			r.Use(func(h http.Handler) http.Handler { return RequireIdentity(s.jwtSecret)(h) })
			r.Post("/codes/redeem", s.handleRedeem)
			r.Get("/entitlements", s.handleListEntitlements)
		})

		r.Route("/admin/codes", func(r chi.Router) {
			r.Use(func(h http.Handler) http.Handler { return RequireAdminKey(s.adminKey)(h) })
			r.Post("/", s.handleIssue)
			r.Get("/", s.handleList)
			r.Patch("/{id}", s.handleSetActive)
		})
	})
	return r
}
