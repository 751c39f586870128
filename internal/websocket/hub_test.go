package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func testClient(hub *Hub, buffer int) *Client {
	c := NewClient(hub, nil, "127.0.0.1:9000", nil)
	c.send = make(chan []byte, buffer)
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHubRegisterAndBroadcast(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Start()
	defer hub.Stop()

	client := testClient(hub, 8)
	hub.Register(client)

	welcome := receive(t, client)
	assert.Equal(t, TypeConnection, welcome.Type)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Broadcast("run:snapshot", map[string]string{"run_id": "run-1"})
	msg := receive(t, client)
	assert.Equal(t, "run:snapshot", msg.Type)
	assert.Equal(t, map[string]interface{}{"run_id": "run-1"}, msg.Data)
	_, err := time.Parse(time.RFC3339, msg.Timestamp)
	assert.NoError(t, err)

	hub.Unregister(client)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Start()
	defer hub.Stop()

	slow := testClient(hub, 1)
	hub.Register(slow)
	// The welcome message fills the buffer, so the next broadcast drops the client.
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast("run:snapshot", "x")
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubStop(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Start()
	hub.Start()

	client := testClient(hub, 8)
	hub.Register(client)
	receive(t, client)

	hub.Stop()
	hub.Stop()

	_, ok := <-client.send
	assert.False(t, ok, "stop closes client channels")

	done := make(chan struct{})
	go func() {
		hub.Broadcast("run:snapshot", "late")
		hub.Register(testClient(hub, 1))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after Stop")
	}
}

func TestBroadcastBeforeStart(t *testing.T) {
	hub := NewHub(nil, nil)
	for i := 0; i < 100; i++ {
		hub.Broadcast("run:snapshot", i)
	}
	assert.Zero(t, hub.ClientCount())
}

func TestHandler(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Start()
	defer hub.Stop()

	server := httptest.NewServer(Handler(hub, []string{"http://allowed.example"}, nil))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var welcome Message
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, TypeConnection, welcome.Type)

	hub.Broadcast("run:snapshot", map[string]string{"status": "completed"})
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "run:snapshot", msg.Type)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{"type":"heartbeat"}`)))
}

func TestHandlerRejectsOrigin(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Start()
	defer hub.Stop()

	server := httptest.NewServer(Handler(hub, []string{"http://allowed.example"}, nil))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	header := map[string][]string{"Origin": {"http://evil.example"}}
	_, resp, err := gorilla.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewMetrics(provider.Meter(meterName))
	require.NoError(t, err)

	hub := NewHub(nil, m)
	hub.Start()
	client := testClient(hub, 8)
	hub.Register(client)
	receive(t, client)
	hub.Broadcast("run:snapshot", "x")
	receive(t, client)
	hub.Stop()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if sum, ok := metric.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[metric.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), sums["websocket_connections_total"])
	assert.Equal(t, int64(1), sums["websocket_messages_sent_total"])
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordConnection(context.Background())
		m.RecordDisconnection(context.Background(), time.Second)
		m.RecordSent(context.Background(), 10)
		m.RecordDropped(context.Background())
	})
}
