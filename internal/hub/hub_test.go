package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
)

type fakeConn struct {
	mu       sync.Mutex
	received [][]byte
	fail     bool
	closed   bool
}

func (c *fakeConn) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.received = append(c.received, payload)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.received)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestHub() *Hub {
	return New(zerolog.Nop(), 16, time.Second)
}

func TestHub_BroadcastWithoutConnections(t *testing.T) {
	h := newTestHub()

	done := make(chan int, 1)
	go func() { done <- h.Broadcast(context.Background(), entity.TaskDeletedEvent(1)) }()

	select {
	case n := <-done:
		if n != 0 {
			t.Fatalf("Expected 0 deliveries, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked with no connections")
	}
}

func TestHub_MultipleConnectionsPerClient(t *testing.T) {
	h := newTestHub()
	a, b := &fakeConn{}, &fakeConn{}
	h.Connect(a, "client-1")
	h.Connect(b, "client-1")

	if h.ClientCount() != 1 || h.ConnectionCount() != 2 {
		t.Fatalf("Expected 1 client with 2 connections, got %d/%d", h.ClientCount(), h.ConnectionCount())
	}

	if n := h.Broadcast(context.Background(), entity.TaskDeletedEvent(1)); n != 2 {
		t.Fatalf("Expected 2 deliveries, got %d", n)
	}
	if a.count() != 1 || b.count() != 1 {
		t.Fatalf("Expected both connections to receive, got %d/%d", a.count(), b.count())
	}

	h.Disconnect(a, "client-1")
	h.Broadcast(context.Background(), entity.TaskDeletedEvent(2))
	if a.count() != 1 {
		t.Errorf("Disconnected connection received %d messages, want 1", a.count())
	}
	if b.count() != 2 {
		t.Errorf("Remaining connection received %d messages, want 2", b.count())
	}

	h.Disconnect(b, "client-1")
	if h.ClientCount() != 0 {
		t.Errorf("Expected client id to be removed with its last connection")
	}
}

func TestHub_EvictsFailedConnection(t *testing.T) {
	h := newTestHub()
	good, bad := &fakeConn{}, &fakeConn{fail: true}
	h.Connect(good, "good")
	h.Connect(bad, "bad")

	if n := h.Broadcast(context.Background(), entity.TaskDeletedEvent(1)); n != 1 {
		t.Fatalf("Expected 1 delivery, got %d", n)
	}
	if !bad.isClosed() {
		t.Error("Expected failed connection to be closed")
	}
	if h.ConnectionCount() != 1 || h.ClientCount() != 1 {
		t.Fatalf("Expected failed connection to be evicted, got %d connections", h.ConnectionCount())
	}

	h.Broadcast(context.Background(), entity.TaskDeletedEvent(2))
	if good.count() != 2 {
		t.Errorf("Expected healthy connection to keep receiving, got %d", good.count())
	}
}

func TestHub_ConnectionMovesBetweenClients(t *testing.T) {
	h := newTestHub()
	c := &fakeConn{}
	h.Connect(c, "a")
	h.Connect(c, "b")

	if h.ClientCount() != 1 || h.ConnectionCount() != 1 {
		t.Fatalf("Expected the connection to belong to one client, got %d clients", h.ClientCount())
	}
	h.Disconnect(c, "a")
	if h.ConnectionCount() != 1 {
		t.Fatal("Disconnect under the old id must not remove the connection")
	}
}

func TestHub_EventEncoding(t *testing.T) {
	h := newTestHub()
	c := &fakeConn{}
	h.Connect(c, "client")

	h.Broadcast(context.Background(), entity.TaskDeletedEvent(42))

	var got struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	if err := json.Unmarshal(c.received[0], &got); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if got.Type != "TASK_DELETED" || got.Payload["id"] != 42 {
		t.Fatalf("Unexpected event: %+v", got)
	}
}

func TestHub_PublishAndRun(t *testing.T) {
	h := newTestHub()
	c := &fakeConn{}
	h.Connect(c, "client")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.Run(ctx)
		close(done)
	}()

	if !h.Publish(entity.TaskDeletedEvent(1)) {
		t.Fatal("Expected publish to be accepted")
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.count() != 1 {
		t.Fatalf("Expected queued event to be delivered, got %d", c.count())
	}

	cancel()
	<-done
}

func TestHub_PublishDropsWhenFull(t *testing.T) {
	h := New(zerolog.Nop(), 1, time.Second)

	if !h.Publish(entity.TaskDeletedEvent(1)) {
		t.Fatal("Expected first publish to fit")
	}
	if h.Publish(entity.TaskDeletedEvent(2)) {
		t.Fatal("Expected publish on a full queue to be dropped")
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		c := &fakeConn{fail: i%5 == 0}
		go func() {
			defer wg.Done()
			h.Connect(c, "shared")
		}()
		go func() {
			defer wg.Done()
			h.Broadcast(ctx, entity.TaskDeletedEvent(1))
		}()
		go func() {
			defer wg.Done()
			h.Disconnect(c, "shared")
		}()
	}
	wg.Wait()

	h.CloseAll()
	if h.ConnectionCount() != 0 || h.ClientCount() != 0 {
		t.Fatalf("Expected empty hub after CloseAll, got %d connections", h.ConnectionCount())
	}
}
