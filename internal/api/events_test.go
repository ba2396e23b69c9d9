package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var e map[string]any
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestEvents_StreamLedgerChanges(t *testing.T) {
	hub := NewHub(nil)
	api := newTestAPI(t, Options{Events: hub})
	server := httptest.NewServer(api.Router)
	defer server.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "connected", readEvent(t, conn)["type"])
	assert.Equal(t, 1, hub.Clients())

	rec, _ := do(t, api.Router, http.MethodPost, "/api/v1/groceries", grocery("Milk", "15", "2", "l", "2026-03-05"))
	require.Equal(t, http.StatusCreated, rec.Code)

	e := readEvent(t, conn)
	assert.Equal(t, "batch_registered", e["type"])
	data := e["data"].(map[string]any)
	assert.Equal(t, false, data["merged"])
	assert.Equal(t, "Milk", data["batch"].(map[string]any)["name"])

	rec, _ = do(t, api.Router, http.MethodPost, "/api/v1/groceries/milk/withdraw", map[string]any{"amount": "2", "unit": "l"})
	require.Equal(t, http.StatusOK, rec.Code)

	e = readEvent(t, conn)
	assert.Equal(t, "stock_withdrawn", e["type"])
	assert.Equal(t, true, e["data"].(map[string]any)["depleted"])
}

func TestEvents_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil)
	api := newTestAPI(t, Options{Events: hub})
	server := httptest.NewServer(api.Router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readEvent(t, conn)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	hub.BatchesPurged(nil)
}

func TestEvents_RouteAbsentWithoutHub(t *testing.T) {
	api := newTestAPI(t, Options{})
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
