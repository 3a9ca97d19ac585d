package hub

import (
	"testing"
	"time"
)

// registerTestClient adds a bare client to a running hub. The pumps are
// not started, so tests read the send channel directly.
func registerTestClient(t *testing.T, h *Hub, buffer int) *Client {
	t.Helper()
	before := h.ClientCount()
	c := &Client{hub: h, send: make(chan Message, buffer)}
	h.register <- c

	deadline := time.After(time.Second)
	for h.ClientCount() == before {
		select {
		case <-deadline:
			t.Fatal("client was not registered")
		case <-time.After(time.Millisecond):
		}
	}
	return c
}

func TestHub_BroadcastFanOut(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	a := registerTestClient(t, h, 4)
	b := registerTestClient(t, h, 4)
	if got := h.ClientCount(); got != 2 {
		t.Fatalf("ClientCount = %d, want 2", got)
	}

	h.BroadcastText([]byte("frame-1"))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Type != TextMessage {
				t.Errorf("message type = %v, want TextMessage", msg.Type)
			}
			if string(msg.Data) != "frame-1" {
				t.Errorf("message data = %q, want %q", msg.Data, "frame-1")
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	slow := registerTestClient(t, h, 1)

	// Fill the buffer, then one more: the hub must evict rather
	// than block its loop.
	h.BroadcastText([]byte("a"))
	h.BroadcastText([]byte("b"))

	deadline := time.After(time.Second)
	for h.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("slow client was not dropped")
		case <-time.After(time.Millisecond):
		}
	}

	// Eviction closes the channel after the queued message.
	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("send channel still open after eviction")
	}
}

func TestHub_BroadcastJSON(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	c := registerTestClient(t, h, 1)

	if err := h.BroadcastJSON(map[string]int{"fps": 30}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	select {
	case msg := <-c.send:
		if string(msg.Data) != `{"fps":30}` {
			t.Errorf("payload = %q", msg.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}

	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("expected error for unmarshalable value")
	}
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	h := New("test", nil)
	go h.Run()

	c := registerTestClient(t, h, 1)
	h.Stop()

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed after Stop")
	}
	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount after Stop = %d, want 0", got)
	}
}
