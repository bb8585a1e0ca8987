package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/baechuer/studio-booking/internal/booking/rest/response"
	"github.com/baechuer/studio-booking/internal/pkg/metrics"
	mw "github.com/baechuer/studio-booking/internal/transport/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Repository interface {
	Commit(ctx context.Context, reservationID int64) (bool, error)
	Release(ctx context.Context, reservationID int64) (bool, error)
}

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Commit and Release take the reservation id as a query parameter; an
// unknown or malformed id is reported as ok=false rather than an error so
// retries stay harmless.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.repo.Commit)
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.repo.Release)
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (bool, error)) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("reservationId")), 10, 64)
	if err != nil {
		response.JSON(w, http.StatusOK, map[string]bool{"ok": false})
		return
	}

	ok, err := fn(r.Context(), id)
	if err != nil {
		response.Fail(w, http.StatusInternalServerError, "internal", "internal error", "")
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.HTTPLogger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1/quotas", func(r chi.Router) {
		r.Post("/commit", h.Commit)
		r.Post("/release", h.Release)
	})

	return r
}
