package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter registers every endpoint on a chi router. metrics serves
// /metrics and may be nil.
func NewRouter(h *HandlerProvider, metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/priests/{priestId}/wallet", func(r chi.Router) {
		r.Get("/", h.GetWalletHandler)
		r.Post("/withdrawals", h.RequestWithdrawalHandler)
	})

	r.Route("/bookings/{bookingId}", func(r chi.Router) {
		r.Post("/complete", h.CompleteBookingHandler)
		r.Post("/settle", h.SettleBookingHandler)
	})

	// Authentication and role checks happen in front of this service.
	r.Route("/admin", func(r chi.Router) {
		r.Put("/priests/{priestId}/wallet/status", h.SetWalletStatusHandler)
		r.Get("/priests/{priestId}/wallet/audit", h.AuditWalletHandler)
		r.Get("/revenue", h.RevenueHandler)
	})

	return r
}
