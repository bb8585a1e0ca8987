package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/studio-booking/internal/access/domain"
	"github.com/baechuer/studio-booking/internal/booking/rest/response"
	"github.com/baechuer/studio-booking/internal/pkg/metrics"
	mw "github.com/baechuer/studio-booking/internal/transport/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Repository interface {
	Get(ctx context.Context, bookingID int64) (domain.AccessCode, error)
	Revoke(ctx context.Context, bookingID int64) (bool, error)
}

type Handler struct {
	repo Repository
	now  func() time.Time
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Validate is read-only and idempotent: valid iff the row exists, the code
// matches exactly, and now falls inside the validity window.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("bookingId")), 10, 64)
	if err != nil {
		response.JSON(w, http.StatusOK, map[string]bool{"valid": false})
		return
	}
	code := strings.TrimSpace(r.URL.Query().Get("code"))

	ac, err := h.repo.Get(r.Context(), bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		response.JSON(w, http.StatusOK, map[string]bool{"valid": false})
		return
	}
	if err != nil {
		response.Fail(w, http.StatusInternalServerError, "internal", "internal error", "")
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"valid": ac.Accepts(code, h.now())})
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("bookingId")), 10, 64)
	if err != nil {
		response.JSON(w, http.StatusOK, map[string]bool{"ok": false})
		return
	}

	ok, err := h.repo.Revoke(r.Context(), bookingID)
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

	r.Route("/v1/access", func(r chi.Router) {
		r.Post("/validate", h.Validate)
		r.Post("/revoke", h.Revoke)
	})

	return r
}
