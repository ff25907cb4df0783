package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klefe6/almanac/internal/cache"
	"github.com/klefe6/almanac/internal/websocket"
)

type fakeBroadcaster struct {
	events   []string
	payloads []any
}

func (f *fakeBroadcaster) Broadcast(event string, payload any) {
	f.events = append(f.events, event)
	f.payloads = append(f.payloads, payload)
}

var _ Broadcaster = (*fakeBroadcaster)(nil)

func newCacheRouter(svc *fakeStatsService, hub Broadcaster) chi.Router {
	deps := newTestDeps()
	return NewCacheHandler(svc, hub, deps.logger, deps.errorHandler).Routes()
}

func TestCacheHandler_Stats(t *testing.T) {
	svc := &fakeStatsService{cacheStats: cache.Stats{
		Backend: "memory",
		Entries: 42,
		Hits:    900,
		Misses:  100,
		Sets:    142,
	}}

	rec := doJSON(t, newCacheRouter(svc, &fakeBroadcaster{}), http.MethodGet, "/", nil)

	data := requireSuccess(t, rec).(map[string]any)
	assert.Equal(t, "memory", data["backend"])
	assert.Equal(t, float64(42), data["entries"])
	assert.Equal(t, float64(900), data["hits"])
}

func TestCacheHandler_Clear(t *testing.T) {
	svc := &fakeStatsService{}
	hub := &fakeBroadcaster{}

	rec := doJSON(t, newCacheRouter(svc, hub), http.MethodDelete, "/", nil)

	data := requireSuccess(t, rec).(map[string]any)
	assert.Equal(t, true, data["cleared"])
	assert.True(t, svc.cleared)

	require.Len(t, hub.events, 1)
	assert.Equal(t, websocket.EventCacheCleared, hub.events[0])
	assert.Nil(t, hub.payloads[0])
}

func TestCacheHandler_ClearWithoutHub(t *testing.T) {
	svc := &fakeStatsService{}

	rec := doJSON(t, newCacheRouter(svc, nil), http.MethodDelete, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.cleared)
}

func TestCacheHandler_ClearError(t *testing.T) {
	svc := &fakeStatsService{clearErr: errors.New("redis gone")}
	hub := &fakeBroadcaster{}

	rec := doJSON(t, newCacheRouter(svc, hub), http.MethodDelete, "/", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, hub.events, "no notification when the clear failed")
}
