package rest

import (
	"net/http"
	"time"

	"github.com/baechuer/studio-booking/internal/booking/rest/response"
	"github.com/baechuer/studio-booking/internal/pkg/metrics"
	mw "github.com/baechuer/studio-booking/internal/transport/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	Handler *Handler

	// Rate limiting is optional; nil Cache disables it.
	Cache    mw.RateLimitCache
	RLLimit  int
	RLWindow time.Duration
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Handler == nil {
		panic("rest.NewRouter: nil handler")
	}

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.HTTPLogger)
	r.Use(chimw.Recoverer)
	if d.Cache != nil {
		r.Use(mw.RateLimit(d.Cache, d.RLLimit, d.RLWindow))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/bookings", d.Handler.CreateBooking)
		r.Get("/bookings", d.Handler.ListBookings)
		r.Get("/bookings/{bookingID}", d.Handler.GetBooking)
		r.Post("/bookings/{bookingID}/checkin", d.Handler.CheckIn)
		r.Post("/bookings/{bookingID}/checkout", d.Handler.CheckOut)
	})

	return r
}
