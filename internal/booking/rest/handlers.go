package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/studio-booking/internal/booking/domain"
	"github.com/baechuer/studio-booking/internal/booking/rest/response"
	"github.com/baechuer/studio-booking/internal/booking/service"
	"github.com/baechuer/studio-booking/internal/pkg/reqid"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	svc      *service.BookingService
	loc      *time.Location
	validate *validator.Validate
}

func NewHandler(svc *service.BookingService, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		svc:      svc,
		loc:      loc,
		validate: validator.New(),
	}
}

type createBookingRequest struct {
	UserID   int64  `json:"user_id" validate:"required,gt=0"`
	StudioID int64  `json:"studio_id" validate:"required,gt=0"`
	Start    string `json:"start" validate:"required"`
	End      string `json:"end" validate:"required"`
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", err.Error())
		return
	}

	start, err := parseTimestamp(req.Start, h.loc)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid start")
		return
	}
	end, err := parseTimestamp(req.End, h.loc)
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid end")
		return
	}

	b, err := h.svc.Create(r.Context(), req.UserID, req.StudioID, start, end)
	if err != nil {
		h.handleErr(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, h.view(b))
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := bookingID(r)
	if err != nil {
		fail(w, r, http.StatusNotFound, "booking.not_found", "not found")
		return
	}

	b, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.handleErr(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, h.view(b))
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListRecent(r.Context())
	if err != nil {
		h.handleErr(w, r, err)
		return
	}
	views := make([]map[string]any, 0, len(items))
	for _, b := range items {
		views = append(views, h.view(b))
	}
	response.JSON(w, http.StatusOK, views)
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := bookingID(r)
	if err != nil {
		fail(w, r, http.StatusNotFound, "booking.not_found", "not found")
		return
	}

	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if err := h.svc.CheckIn(r.Context(), id, code); err != nil {
		h.handleErr(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusInUse)})
}

func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	id, err := bookingID(r)
	if err != nil {
		fail(w, r, http.StatusNotFound, "booking.not_found", "not found")
		return
	}

	if err := h.svc.CheckOut(r.Context(), id); err != nil {
		h.handleErr(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusFinished)})
}

// view renders a booking for reads: instants in the configured local zone.
func (h *Handler) view(b domain.Booking) map[string]any {
	return map[string]any{
		"id":                   b.ID,
		"user_id":              b.UserID,
		"studio_id":            b.StudioID,
		"status":               string(b.Status),
		"code":                 b.Code,
		"quota_reservation_id": b.QuotaReservationID,
		"start":                b.Start.In(h.loc).Format(time.RFC3339),
		"end":                  b.End.In(h.loc).Format(time.RFC3339),
		"created_at":           b.CreatedAt.In(h.loc).Format(time.RFC3339),
	}
}

func (h *Handler) handleErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInterval):
		fail(w, r, http.StatusBadRequest, "booking.invalid_interval", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		fail(w, r, http.StatusNotFound, "booking.not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidCode):
		fail(w, r, http.StatusUnauthorized, "booking.invalid_code", err.Error())
	case errors.Is(err, domain.ErrNotReady),
		errors.Is(err, domain.ErrNotInUse),
		errors.Is(err, domain.ErrStatusConflict):
		fail(w, r, http.StatusConflict, "booking.wrong_status", err.Error())
	default:
		fail(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}

func fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	response.Fail(w, status, code, message, reqid.From(r.Context()))
}

func bookingID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
}

// parseTimestamp accepts RFC 3339 instants as-is and interprets naive
// timestamps (no zone suffix) in the configured local zone.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
