package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/vlist/internal/adapters"
	"github.com/conneroisu/vlist/internal/collection"
	"github.com/conneroisu/vlist/internal/config"
	"github.com/conneroisu/vlist/internal/events"
	"github.com/conneroisu/vlist/internal/types"
	"github.com/conneroisu/vlist/internal/viewport"
)

func newTestServer(t *testing.T, adapter adapters.Adapter) (*Server, *httptest.Server, *collection.Collection, *viewport.Engine) {
	t.Helper()

	if adapter == nil {
		items := make([]types.Item, 100)
		for i := range items {
			items[i] = types.Item{"id": fmt.Sprintf("item-%d", i), "name": fmt.Sprintf("User %d", i)}
		}
		adapter = adapters.NewSliceAdapter(items)
	}

	bus := events.NewBus()
	coll, err := collection.New(adapter, collection.Options{}, bus, nil)
	require.NoError(t, err)

	engine, err := viewport.New(coll, viewport.Options{}, bus, nil)
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	s := New(config.ServerConfig{AllowedOrigins: []string{"*"}}, coll, engine, bus, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(s.hub.Shutdown)

	return s, ts, coll, engine
}

func TestIndexPageServed(t *testing.T) {
	_, ts, _, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	var body strings.Builder
	_, err = io.Copy(&body, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "vlist demo")

	notFound, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	defer notFound.Body.Close()
	assert.Equal(t, http.StatusNotFound, notFound.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	_, ts, _, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestItemsEndpointLoadsRange(t *testing.T) {
	_, ts, coll, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/items?offset=40&limit=20")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result collection.LoadResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, types.Range{Start: 40, End: 60}, result.Range)
	require.Len(t, result.Items, 20)
	assert.Equal(t, "item-40", result.Items[0].ID())

	assert.True(t, coll.IsResident(40))
}

func TestItemsEndpointValidation(t *testing.T) {
	_, ts, _, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/items?limit=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/items?offset=-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestItemsEndpointAdapterFailure(t *testing.T) {
	failing := adapters.AdapterFunc(func(ctx context.Context, params adapters.Params) (*adapters.Result, error) {
		return nil, fmt.Errorf("backend down")
	})

	_, ts, _, _ := newTestServer(t, failing)

	resp, err := http.Get(ts.URL + "/api/items?offset=0&limit=20")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestStructureEndpoint(t *testing.T) {
	_, ts, coll, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/structure")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err = coll.LoadRange(context.Background(), 0, 20)
	require.NoError(t, err)

	resp, err = http.Get(ts.URL + "/api/structure")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var structure types.Structure
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&structure))
	assert.Contains(t, structure, "name")
}

func TestStatsEndpoint(t *testing.T) {
	_, ts, coll, _ := newTestServer(t, nil)

	_, err := coll.LoadRange(context.Background(), 0, 20)
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, float64(100), stats["count"])
	assert.Equal(t, true, stats["countKnown"])
	assert.Equal(t, "offset", stats["strategy"])
	assert.Equal(t, "idle", stats["state"])
}

func TestWebSocketStreamsEngineEvents(t *testing.T) {
	s, ts, coll, _ := newTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The handshake resolves client-side before the hub registers the
	// connection; load only once the client is subscribed.
	require.Eventually(t, func() bool {
		return s.hub.ClientCount() == 1
	}, time.Second, 5*time.Millisecond)

	_, err = coll.LoadRange(context.Background(), 0, 20)
	require.NoError(t, err)

	// The load produces loading:start, range:loaded, loading:end (and
	// possibly render frames); scan until the loaded event arrives.
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)

		var frame wsEvent
		require.NoError(t, json.Unmarshal(data, &frame))
		if frame.Kind == string(events.KindRangeLoaded) {
			break
		}
	}
}

func TestWebSocketScrollCommandDrivesEngine(t *testing.T) {
	_, ts, _, engine := newTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText,
		[]byte(`{"action":"scroll","delta":120}`)))

	require.Eventually(t, func() bool {
		return engine.Offset() > 0
	}, time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsDisallowedOrigin(t *testing.T) {
	items := []types.Item{{"id": "item-0"}}
	bus := events.NewBus()
	coll, err := collection.New(adapters.NewSliceAdapter(items), collection.Options{}, bus, nil)
	require.NoError(t, err)
	engine, err := viewport.New(coll, viewport.Options{}, bus, nil)
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	s := New(config.ServerConfig{AllowedOrigins: []string{"https://demo.example.com"}}, coll, engine, bus, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(s.hub.Shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws"
	_, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
}
