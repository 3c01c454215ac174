package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mchmarny/creatorpulse/pkg/data"
	"github.com/mchmarny/creatorpulse/pkg/net"
	"github.com/mchmarny/creatorpulse/pkg/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthHandler(t *testing.T) {
	cfg := newTestAppConfig(t, "http://localhost:1")
	w := serve(t, makeRouter(cfg), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsHandler(t *testing.T) {
	cfg := newTestAppConfig(t, "http://localhost:1")
	w := serve(t, makeRouter(cfg), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestCreatorAPIHandler(t *testing.T) {
	srv := newFakeUpstream(t)
	cfg := newTestAppConfig(t, srv.URL)
	h := makeRouter(cfg)

	w := serve(t, h, "/api/creators/"+testCreatorID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var r struct {
		CreatorID  string `json:"creator_id"`
		Period     string `json:"period"`
		Cached     bool   `json:"cached"`
		Characters []struct {
			ID string `json:"id"`
		} `json:"characters"`
	}
	decodeBody(t, w, &r)
	assert.Equal(t, testCreatorID, r.CreatorID)
	assert.Equal(t, "total", r.Period)
	assert.False(t, r.Cached)
	require.Len(t, r.Characters, 3)
	assert.Equal(t, "p1", r.Characters[0].ID)

	w = serve(t, h, "/api/creators/"+testCreatorID+"?period=recent")
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &r)
	assert.Equal(t, "recent", r.Period)
	assert.True(t, r.Cached)

	w = serve(t, h, "/api/creators/"+testCreatorID+"?refresh=true")
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &r)
	assert.False(t, r.Cached)
}

func TestCreatorAPIHandler_Interactions(t *testing.T) {
	srv := newFakeUpstream(t)
	h := makeRouter(newTestAppConfig(t, srv.URL))

	var r struct {
		Interactions string `json:"interactions"`
		Stats        struct {
			PlotInteractionCount int64 `json:"plot_interaction_count"`
		} `json:"stats"`
		Characters []struct {
			ID               string `json:"id"`
			InteractionCount int64  `json:"interaction_count"`
		} `json:"characters"`
	}

	w := serve(t, h, "/api/creators/"+testCreatorID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeBody(t, w, &r)
	assert.Equal(t, "regen", r.Interactions)
	assert.Equal(t, int64(1500), r.Stats.PlotInteractionCount)
	require.Len(t, r.Characters, 3)
	assert.Equal(t, "p1", r.Characters[0].ID)

	w = serve(t, h, "/api/creators/"+testCreatorID+"?interactions=original")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeBody(t, w, &r)
	assert.Equal(t, "original", r.Interactions)
	// 100 + 400 + 100
	assert.Equal(t, int64(600), r.Stats.PlotInteractionCount)
	require.Len(t, r.Characters, 3)
	assert.Equal(t, "p2", r.Characters[0].ID)
	assert.Equal(t, "p1", r.Characters[1].ID)
	assert.Equal(t, int64(100), r.Characters[1].InteractionCount)
}

func TestCreatorAPIHandler_Errors(t *testing.T) {
	srv := newFakeUpstream(t)
	h := makeRouter(newTestAppConfig(t, srv.URL))

	w := serve(t, h, "/api/creators/nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, h, "/api/creators/ffffffffffffffffffff0000")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var e map[string]string
	decodeBody(t, w, &e)
	assert.NotEmpty(t, e["error"])
}

func TestRecapAPIHandler(t *testing.T) {
	srv := newFakeUpstream(t)
	h := makeRouter(newTestAppConfig(t, srv.URL))

	w := serve(t, h, "/api/creators/"+testCreatorID+"/recap")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var r struct {
		ShareID       string `json:"share_id"`
		Interactions  int64  `json:"interactions"`
		TopCharacters []struct {
			ID string `json:"id"`
		} `json:"top_characters"`
	}
	decodeBody(t, w, &r)
	assert.NotEmpty(t, r.ShareID)
	assert.Equal(t, int64(1500), r.Interactions)
	assert.Len(t, r.TopCharacters, 3)
}

func TestCharactersAPIHandler(t *testing.T) {
	srv := newFakeUpstream(t)
	h := makeRouter(newTestAppConfig(t, srv.URL))

	w := serve(t, h, "/api/creators/"+testCreatorID+"/characters")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var r characterList
	decodeBody(t, w, &r)
	assert.Equal(t, testCreatorID, r.CreatorID)
	assert.Len(t, r.Characters, 3)
	assert.NotEmpty(t, r.TierCounts)
}

func TestResolveAPIHandler(t *testing.T) {
	h := makeRouter(newTestAppConfig(t, "http://localhost:1"))

	w := serve(t, h, "/api/resolve")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, h, "/api/resolve?q="+testCreatorID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%q}`, testCreatorID), w.Body.String())

	w = serve(t, h, "/api/resolve?q=bad%20handle!")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRankingAPIHandler(t *testing.T) {
	cfg := newTestAppConfig(t, "http://localhost:1")
	h := makeRouter(cfg)

	w := serve(t, h, "/api/rankings/weekly")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, h, "/api/rankings/best")
	assert.Equal(t, http.StatusNotFound, w.Code)

	entries := []*data.RankingEntry{
		{Rank: 1, CharacterID: "r1", CharacterName: "Top", CreatorID: testCreatorID, InteractionCount: 90000},
	}
	_, err := data.SaveRankingSnapshot(context.Background(), cfg.DB, "best", time.Now(), entries)
	require.NoError(t, err)

	w = serve(t, h, "/api/rankings/best")
	require.Equal(t, http.StatusOK, w.Code)

	var s data.RankingSnapshot
	decodeBody(t, w, &s)
	assert.Equal(t, "best", s.Kind)
	require.Len(t, s.Entries, 1)
	assert.Equal(t, "r1", s.Entries[0].CharacterID)
}

func TestProxyAPIHandler(t *testing.T) {
	srv := newFakeUpstream(t)
	h := makeRouter(newTestAppConfig(t, srv.URL))

	w := serve(t, h, "/api/proxy/v1/users/"+testCreatorID+"/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"plotInteractionCount":1500`)

	w = serve(t, h, "/api/proxy/v1/users/missing/stats")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, h, "/api/proxy/v1/admin/users")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{platform.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", platform.ErrForbiddenPath), http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", platform.ErrNotFound), http.StatusNotFound},
		{net.ErrNotFound, http.StatusNotFound},
		{data.ErrSnapshotNotFound, http.StatusNotFound},
		{&net.StatusError{StatusCode: http.StatusServiceUnavailable, URL: "x"}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}
