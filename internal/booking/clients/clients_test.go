package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessClientValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/access/validate", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("bookingId"))
		assert.Equal(t, "123456", r.URL.Query().Get("code"))
		_, _ = w.Write([]byte(`{"valid":true}`))
	}))
	defer srv.Close()

	c := NewAccessClient(srv.URL)
	ok, err := c.Validate(context.Background(), 7, "123456")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccessClientRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewAccessClient(srv.URL)
	_, err := c.Validate(context.Background(), 7, "123456")
	assert.Error(t, err)
}

func TestQuotaClientCommitAndRelease(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("reservationId"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewQuotaClient(srv.URL)

	ok, err := c.Commit(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Release(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"/v1/quotas/commit", "/v1/quotas/release"}, paths)
}

func TestQuotaClientUnknownReservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	c := NewQuotaClient(srv.URL)
	ok, err := c.Commit(context.Background(), "99")
	require.NoError(t, err)
	assert.False(t, ok)
}
