package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpctx "github.com/clipstream/accounts/internal/api/http/context"
	"github.com/clipstream/accounts/internal/service"
	"github.com/clipstream/accounts/internal/testutil"
)

func newTestRouter() http.Handler {
	// Requests that never pass the session gate touch no dependencies, so
	// nil stores are fine here.
	authService := service.NewAuth(nil, nil, nil, testutil.MakeNoopLogger())
	return New(authService, httpctx.NewManager(), testutil.MakeNoopLogger()).Register()
}

func TestRouter_GuardedRoutesRejectAnonymous(t *testing.T) {
	h := newTestRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/users/logout"},
		{http.MethodPost, "/api/v1/users/change-password"},
		{http.MethodGet, "/api/v1/users/current-user"},
		{http.MethodPatch, "/api/v1/users/update-account"},
		{http.MethodPatch, "/api/v1/users/avatar"},
		{http.MethodPatch, "/api/v1/users/cover-image"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t,
				`{"statusCode":401,"data":null,"message":"unauthorized request","success":false}`,
				rec.Body.String())
		})
	}
}

func TestRouter_PublicRoutesSkipTheGate(t *testing.T) {
	h := newTestRouter()

	// A malformed register body fails validation inside the handler, not
	// with a 401 from the gate.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	h := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
