package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/baechuer/studio-booking/internal/booking/domain"
	"github.com/baechuer/studio-booking/internal/booking/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	nextID   int64
	bookings map[int64]*domain.Booking
}

func newFakeRepo(bs ...domain.Booking) *fakeRepo {
	r := &fakeRepo{nextID: 100, bookings: map[int64]*domain.Booking{}}
	for i := range bs {
		b := bs[i]
		r.bookings[b.ID] = &b
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, b domain.Booking) (domain.Booking, error) {
	r.nextID++
	b.ID = r.nextID
	b.CreatedAt = time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)
	r.bookings[b.ID] = &b
	return b, nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (domain.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return *b, nil
}

func (r *fakeRepo) ListRecent(_ context.Context, limit int) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		out = append(out, *b)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id int64, from, to domain.Status) error {
	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Status != from {
		return domain.ErrStatusConflict
	}
	b.Status = to
	return nil
}

type fakeAccess struct{ valid bool }

func (f *fakeAccess) Validate(context.Context, int64, string) (bool, error) { return f.valid, nil }

type fakeQuota struct{}

func (fakeQuota) Commit(context.Context, string) (bool, error)  { return true, nil }
func (fakeQuota) Release(context.Context, string) (bool, error) { return true, nil }

type fakePub struct{}

func (fakePub) Publish(context.Context, string, any) error { return nil }

func newTestRouter(t *testing.T, repo *fakeRepo, access *fakeAccess) http.Handler {
	t.Helper()
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)

	svc := service.New(repo, access, fakeQuota{}, fakePub{})
	return NewRouter(RouterDeps{Handler: NewHandler(svc, loc)})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateBookingNaiveTimestampsUseLocalZone(t *testing.T) {
	repo := newFakeRepo()
	h := newTestRouter(t, repo, &fakeAccess{})

	rec := do(t, h, http.MethodPost, "/v1/bookings",
		`{"user_id":1,"studio_id":2,"start":"2025-03-10T14:00:00","end":"2025-03-10T15:00:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "PENDING", got["status"])
	assert.Equal(t, "2025-03-10T14:00:00-04:00", got["start"], "reads render in the local zone")

	stored := repo.bookings[101]
	require.NotNil(t, stored)
	assert.True(t, stored.Start.Equal(time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)),
		"naive Toronto 14:00 persists as 18:00 UTC")
}

func TestCreateBookingAcceptsExplicitOffset(t *testing.T) {
	repo := newFakeRepo()
	h := newTestRouter(t, repo, &fakeAccess{})

	rec := do(t, h, http.MethodPost, "/v1/bookings",
		`{"user_id":1,"studio_id":2,"start":"2025-03-10T14:00:00-04:00","end":"2025-03-10T15:00:00-04:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	stored := repo.bookings[101]
	assert.True(t, stored.Start.Equal(time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)))
}

func TestCreateBookingRejectsBadInput(t *testing.T) {
	h := newTestRouter(t, newFakeRepo(), &fakeAccess{})

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{broken`},
		{"missing user", `{"studio_id":2,"start":"2025-03-10T14:00:00","end":"2025-03-10T15:00:00"}`},
		{"unparseable start", `{"user_id":1,"studio_id":2,"start":"tomorrow","end":"2025-03-10T15:00:00"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/bookings", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestCreateBookingRejectsInvertedInterval(t *testing.T) {
	h := newTestRouter(t, newFakeRepo(), &fakeAccess{})

	rec := do(t, h, http.MethodPost, "/v1/bookings",
		`{"user_id":1,"studio_id":2,"start":"2025-03-10T15:00:00","end":"2025-03-10T14:00:00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking.invalid_interval")
}

func TestGetBooking(t *testing.T) {
	code := "123456"
	repo := newFakeRepo(domain.Booking{
		ID: 7, UserID: 1, StudioID: 2, Status: domain.StatusReady, Code: &code,
		Start: time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC),
	})
	h := newTestRouter(t, repo, &fakeAccess{})

	rec := do(t, h, http.MethodGet, "/v1/bookings/7", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "READY", got["status"])
	assert.Equal(t, "123456", got["code"])
}

func TestGetBookingNotFound(t *testing.T) {
	h := newTestRouter(t, newFakeRepo(), &fakeAccess{})

	rec := do(t, h, http.MethodGet, "/v1/bookings/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/bookings/not-a-number", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBookings(t *testing.T) {
	repo := newFakeRepo(
		domain.Booking{ID: 1, Status: domain.StatusPending},
		domain.Booking{ID: 2, Status: domain.StatusReady},
	)
	h := newTestRouter(t, repo, &fakeAccess{})

	rec := do(t, h, http.MethodGet, "/v1/bookings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestCheckIn(t *testing.T) {
	code := "123456"
	resID := "42"
	repo := newFakeRepo(domain.Booking{ID: 7, Status: domain.StatusReady, Code: &code, QuotaReservationID: &resID})
	h := newTestRouter(t, repo, &fakeAccess{valid: true})

	rec := do(t, h, http.MethodPost, "/v1/bookings/7/checkin?code=123456", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"IN_USE"}`, rec.Body.String())
	assert.Equal(t, domain.StatusInUse, repo.bookings[7].Status)
}

func TestCheckInWrongCode(t *testing.T) {
	code := "123456"
	repo := newFakeRepo(domain.Booking{ID: 7, Status: domain.StatusReady, Code: &code})
	h := newTestRouter(t, repo, &fakeAccess{valid: false})

	rec := do(t, h, http.MethodPost, "/v1/bookings/7/checkin?code=000000", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking.invalid_code")
}

func TestCheckInBeforeReady(t *testing.T) {
	repo := newFakeRepo(domain.Booking{ID: 7, Status: domain.StatusPending})
	h := newTestRouter(t, repo, &fakeAccess{valid: true})

	rec := do(t, h, http.MethodPost, "/v1/bookings/7/checkin?code=123456", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking.wrong_status")
}

func TestCheckOut(t *testing.T) {
	resID := "42"
	repo := newFakeRepo(domain.Booking{ID: 7, Status: domain.StatusInUse, QuotaReservationID: &resID})
	h := newTestRouter(t, repo, &fakeAccess{})

	rec := do(t, h, http.MethodPost, "/v1/bookings/7/checkout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"FINISHED"}`, rec.Body.String())
}

func TestCheckOutWrongState(t *testing.T) {
	repo := newFakeRepo(domain.Booking{ID: 7, Status: domain.StatusFinished})
	h := newTestRouter(t, repo, &fakeAccess{})

	rec := do(t, h, http.MethodPost, "/v1/bookings/7/checkout", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthAndRequestID(t *testing.T) {
	h := newTestRouter(t, newFakeRepo(), &fakeAccess{})

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
