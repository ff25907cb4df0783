package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klefe6/almanac/internal/config"
	"github.com/klefe6/almanac/internal/websocket"
)

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no origin header", allowed: []string{"http://localhost:8072"}, origin: "", want: true},
		{name: "exact match", allowed: []string{"http://localhost:8072"}, origin: "http://localhost:8072", want: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://anything.example", want: true},
		{name: "mismatch", allowed: []string{"http://localhost:8072"}, origin: "https://evil.example", want: false},
		{name: "empty allow list", allowed: nil, origin: "http://localhost:8072", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := originChecker(tt.allowed)

			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			assert.Equal(t, tt.want, check(req))
		})
	}
}

func TestWSHandler_UpgradeAndBroadcast(t *testing.T) {
	hub := websocket.NewHub(config.WebSocketConfig{}, nil, discardLogger())
	hub.Start()
	t.Cleanup(hub.Stop)

	h := NewWSHandler(hub, config.WebSocketConfig{}, []string{"*"}, discardLogger())
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	resp.Body.Close()

	hub.Broadcast("warmup:progress", map[string]any{"completed": 1})

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "warmup:progress")
}

func TestWSHandler_RejectsDisallowedOrigin(t *testing.T) {
	hub := websocket.NewHub(config.WebSocketConfig{}, nil, discardLogger())
	hub.Start()
	t.Cleanup(hub.Stop)

	h := NewWSHandler(hub, config.WebSocketConfig{}, []string{"http://localhost:8072"}, discardLogger())
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example"}}

	conn, resp, err := gorillaws.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
