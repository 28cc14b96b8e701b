package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/listings-api/internal/redisx"
	"github.com/yourorg/listings-api/internal/store"
)

type fakeProjectReader struct {
	byPIN map[string]store.Project
	calls int
}

func (f *fakeProjectReader) GetProjectByPIN(_ context.Context, pin string) (store.Project, error) {
	f.calls++
	p, ok := f.byPIN[pin]
	if !ok {
		return store.Project{}, store.ErrNotFound
	}
	return p, nil
}

func trackerRouter(reader ProjectReader) http.Handler {
	r := chi.NewRouter()
	RegisterTracker(r, TrackerDeps{Store: reader})
	return r
}

func TestTrackerRejectsMalformedPIN(t *testing.T) {
	reader := &fakeProjectReader{}
	r := trackerRouter(reader)

	for _, pin := range []string{"", "12", "12345", "abcd", "12a4"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tracker?pin="+pin, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "pin %q", pin)
	}
	assert.Zero(t, reader.calls, "malformed pins never reach the store")
}

func TestTrackerUnknownPIN(t *testing.T) {
	rec := httptest.NewRecorder()
	trackerRouter(&fakeProjectReader{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tracker?pin=9999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrackerKnownPIN(t *testing.T) {
	reader := &fakeProjectReader{byPIN: map[string]store.Project{
		"4821": {ID: "p-1", Name: "Villa Roc", Phase: 6, PIN: "4821", Updates: []store.ProjectUpdate{}},
	}}
	rec := httptest.NewRecorder()
	trackerRouter(reader).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tracker?pin=4821", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		OK      bool          `json:"ok"`
		Source  string        `json:"source"`
		Project store.Project `json:"project"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "fresh", resp.Source)
	assert.Equal(t, "Villa Roc", resp.Project.Name)
	assert.Equal(t, 6, resp.Project.Phase)
}

func testRedis(t *testing.T) *redisx.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redisx.New(mr.Addr(), "", 0)
}

type failingProjectReader struct{ calls int }

func (f *failingProjectReader) GetProjectByPIN(context.Context, string) (store.Project, error) {
	f.calls++
	return store.Project{}, errors.New("connection reset")
}

func TestTrackerCachesKnownPIN(t *testing.T) {
	reader := &fakeProjectReader{byPIN: map[string]store.Project{
		"4821": {ID: "p-1", Name: "Villa Roc", Phase: 6, PIN: "4821", Updates: []store.ProjectUpdate{}},
	}}
	r := chi.NewRouter()
	RegisterTracker(r, TrackerDeps{Redis: testRedis(t), Store: reader})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tracker?pin=4821", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tracker?pin=4821", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cache", resp.Source)
	assert.Equal(t, 1, reader.calls, "second poll must come from the cache")
}

func TestTrackerNegativeCacheCoolsDownUnknownPIN(t *testing.T) {
	reader := &fakeProjectReader{}
	r := chi.NewRouter()
	RegisterTracker(r, TrackerDeps{Redis: testRedis(t), Store: reader})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tracker?pin=9999", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Equal(t, 1, reader.calls, "cooldown must absorb repeat misses")
}

func TestTrackerLockReleasedAfterLookup(t *testing.T) {
	reader := &failingProjectReader{}
	r := chi.NewRouter()
	RegisterTracker(r, TrackerDeps{Redis: testRedis(t), Store: reader})

	// a failed lookup must not leave the next poll stuck on 202 until the
	// lock TTL runs out
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tracker?pin=1234", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code, "request %d", i+1)
	}
	assert.Equal(t, 2, reader.calls)
}
