package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-lingo/internal/progress"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dial(t *testing.T, hub *Hub, learnerID string, initial ...Message) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, learnerID, initial...)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

type statsFrame struct {
	Event string           `json:"event"`
	Data  progress.Profile `json:"data"`
}

func TestHub_PublishReachesConnection(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub, "learner-1")
	waitFor(t, func() bool { return hub.Subscribers("learner-1") == 1 })

	p := progress.NewProfile("learner-1")
	p.Points = 30
	p.Level = 1
	hub.Publish("learner-1", p)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var got statsFrame
	if err := wsjson.Read(ctx, conn, &got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Event != EventStatsUpdated {
		t.Errorf("event = %q, want %q", got.Event, EventStatsUpdated)
	}
	if got.Data.LearnerID != "learner-1" || got.Data.Points != 30 {
		t.Errorf("data = %+v", got.Data)
	}
}

func TestHub_InitialMessages(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub, "learner-1", Message{Event: "hello", Data: "snapshot"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var got Message
	if err := wsjson.Read(ctx, conn, &got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Event != "hello" || got.Data != "snapshot" {
		t.Errorf("initial message = %+v", got)
	}
}

func TestHub_UnsubscribesOnClose(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub, "learner-1")
	waitFor(t, func() bool { return hub.Subscribers("learner-1") == 1 })

	conn.Close(websocket.StatusNormalClosure, "bye")
	waitFor(t, func() bool { return hub.Subscribers("learner-1") == 0 })
}

func TestHub_BroadcastIsPerLearner(t *testing.T) {
	hub := NewHub()
	alice := hub.subscribe("alice")
	bob := hub.subscribe("bob")
	defer hub.unsubscribe(alice)
	defer hub.unsubscribe(bob)

	hub.Broadcast("alice", Message{Event: "ping"})

	if len(alice.outbound) != 1 {
		t.Errorf("alice queued %d messages, want 1", len(alice.outbound))
	}
	if len(bob.outbound) != 0 {
		t.Errorf("bob queued %d messages, want 0", len(bob.outbound))
	}
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	c := hub.subscribe("learner-1")
	defer hub.unsubscribe(c)

	done := make(chan struct{})
	go func() {
		for range outboundBuffer + 5 {
			hub.Broadcast("learner-1", Message{Event: "tick"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a full buffer")
	}
	if len(c.outbound) != outboundBuffer {
		t.Errorf("queued = %d, want %d", len(c.outbound), outboundBuffer)
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	hub.Publish("nobody", progress.NewProfile("nobody"))
	if hub.Subscribers("nobody") != 0 {
		t.Error("Publish created a subscription")
	}
}
