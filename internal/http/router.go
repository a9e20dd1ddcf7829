package httpapi

import (
	"net/http"

	"marketfin-finance-services/internal/config"
	"marketfin-finance-services/internal/http/handlers"
	"marketfin-finance-services/internal/middleware"
	"marketfin-finance-services/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func NewRouter(h *handlers.Handler, wsServer *ws.Server, logger *zap.Logger, cfg config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"Cache-Control",
				"Pragma",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.OperatorAuth(cfg.JWTSecret))

		r.Get("/analytics", h.Analytics)

		r.Route("/restaurants/{id}", func(r chi.Router) {
			r.Get("/ledger", h.RestaurantLedger)
			r.Post("/settlements", h.RecordRestaurantSettlement)
		})

		r.Route("/partners/{id}", func(r chi.Router) {
			r.Get("/ledger", h.PartnerLedger)
			r.Post("/settlements", h.RecordPartnerSettlement)
		})

		r.Get("/settlements/{id}/receipt", h.SettlementReceipt)
	})

	// Token auth happens inside the handler; websocket dials cannot carry
	// Authorization headers from browsers.
	r.Get("/ws/admin/analytics", wsServer.HandleAnalytics)

	return r
}
