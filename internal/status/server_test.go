package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhada/appraisal-extractor/internal/entity"
)

type staticSource entity.ProgressSnapshot

func (s staticSource) Current() entity.ProgressSnapshot { return entity.ProgressSnapshot(s) }

func TestProgressEndpoint(t *testing.T) {
	src := staticSource{
		Discovered:  5,
		Dispatched:  3,
		Succeeded:   2,
		Partial:     1,
		SuccessRate: 1.0,
		StartedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	srv := NewServer(":0", src, nil)

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap entity.ProgressSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 5, snap.Discovered)
	assert.Equal(t, 3, snap.Dispatched)
	assert.Equal(t, 2, snap.Succeeded)
	assert.Equal(t, 1, snap.Partial)
	assert.Equal(t, 3, snap.Finished())
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(":0", staticSource{}, nil)

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := NewServer(":0", staticSource{}, nil)

	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
