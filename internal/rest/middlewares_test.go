package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meetsync/MeetSync/pkg/logger"
	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(logger.NewLogger(), nil, ":0", "test", nil)
}

func TestRequestIDMinted(t *testing.T) {
	s := newTestServer(t)
	handler := s.requestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDEchoed(t *testing.T) {
	s := newTestServer(t)
	handler := s.requestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestHeaderAuth(t *testing.T) {
	s := newTestServer(t)
	var got models.Actor
	handler := s.auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.getActor(r.Context())
		require.True(t, ok)
		got = actor
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/meetings", nil)
	req.Header.Set("X-User-ID", "7")
	req.Header.Set("X-User-Role", "Manager")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.Actor{ID: 7, Role: models.RoleManager}, got)
}

func TestHeaderAuthRejectsGarbage(t *testing.T) {
	s := newTestServer(t)
	handler := s.auth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, h := range []map[string]string{
		{},
		{"X-User-ID": "7"},
		{"X-User-ID": "7", "X-User-Role": "root"},
		{"X-User-ID": "seven", "X-User-Role": "manager"},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/meetings", nil)
		for k, v := range h {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}
