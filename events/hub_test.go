package events

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesPublishedEvent(t *testing.T) {
	h := NewHub()
	defer h.Close()

	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	h.Publish(Event{Type: TypeException, PC: 0x08000004})

	select {
	case ev := <-ch:
		assert.Equal(t, TypeException, ev.Type)
		assert.Equal(t, uint32(0x08000004), ev.PC)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	defer h.Close()

	ch, unsubscribe := h.Subscribe()
	unsubscribe()

	// Give the hub goroutine a moment to process the unregister.
	time.Sleep(10 * time.Millisecond)
	h.Publish(Event{Type: TypeHalt})

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestPublishFansOutToMultipleSubscribers(t *testing.T) {
	h := NewHub()
	defer h.Close()

	ch1, unsub1 := h.Subscribe()
	ch2, unsub2 := h.Subscribe()
	defer unsub1()
	defer unsub2()

	h.Publish(Event{Type: TypeBreakpoint, PC: 0x1000})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, TypeBreakpoint, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out delivery")
		}
	}
}

func TestServeWebSocketStreamsPublishedEvents(t *testing.T) {
	h := NewHub()
	defer h.Close()

	server := httptest.NewServer(http.HandlerFunc(h.ServeWebSocket))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine time to register the subscription.
	time.Sleep(20 * time.Millisecond)
	h.Publish(Event{Type: TypeException, PC: 0x0800_0100})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), "exception")
	assert.Contains(t, string(payload), "134217984") // 0x0800_0100 as decimal PC value in JSON
}
