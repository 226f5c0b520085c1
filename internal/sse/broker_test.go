package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// drain collects every message currently buffered on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func countType(msgs []string, typ string) int {
	n := 0
	for _, m := range msgs {
		if strings.HasPrefix(m, "event: "+typ+"\n") {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishChange_Delivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(TypeRecipeCreated, "42")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "event: recipe.created\nid: 1\n") {
			t.Errorf("unexpected header in %q", s)
		}
		if !strings.Contains(s, `"id":"42"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_SequenceIDs(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(TypeRecipeCreated, "1")
	b.PublishChange(TypeRecipeUpdated, "1")

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3: %q", len(msgs), msgs)
	}
	for i, m := range msgs {
		want := "\nid: " + string(rune('1'+i)) + "\n"
		if !strings.Contains(m, want) {
			t.Errorf("message %d = %q, want id %d", i, m, i+1)
		}
	}
}

func TestPublishChange_ThrottleUsesClock(t *testing.T) {
	var clock atomic.Int64
	clock.Store(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).UnixNano())
	b := NewBroker(time.Minute, WithClock(func() time.Time { return time.Unix(0, clock.Load()) }))
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(TypeRecipeCreated, "1")
	b.PublishChange(TypeRecipeCreated, "2")
	time.Sleep(50 * time.Millisecond)
	if n := countType(drain(ch), TypeFiltersUpdated); n != 1 {
		t.Fatalf("filters events = %d, want 1", n)
	}

	clock.Add(int64(2 * time.Minute))
	b.PublishChange(TypeRecipeDeleted, "1")
	time.Sleep(50 * time.Millisecond)
	if n := countType(drain(ch), TypeFiltersUpdated); n != 1 {
		t.Errorf("filters events after window = %d, want 1", n)
	}
}

func TestPublishChange_FiltersThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(TypeRecipeCreated, "1")
	b.PublishChange(TypeRecipeUpdated, "1")
	b.PublishChange(TypeRecipeDeleted, "1")

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)

	for _, typ := range []string{TypeRecipeCreated, TypeRecipeUpdated, TypeRecipeDeleted} {
		if countType(msgs, typ) != 1 {
			t.Errorf("%s events = %d, want 1", typ, countType(msgs, typ))
		}
	}
	if n := countType(msgs, TypeFiltersUpdated); n != 1 {
		t.Errorf("filters events = %d, want 1 (throttled)", n)
	}
}

func TestPublishChange_IngredientSkipsFilters(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(TypeIngredientAdded, "tofu")
	b.PublishChange("bogus", "x")

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1: %q", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], `"name":"tofu"`) {
		t.Errorf("unexpected payload %q", msgs[0])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChange(TypeRecipeUpdated, "7")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: recipe.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if !strings.Contains(body, "event: filters.updated") {
		t.Errorf("handler output missing filters event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishChange_DropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// The subscriber buffer holds clientBuffer frames; the rest are dropped
	// without blocking.
	for i := 0; i < clientBuffer+10; i++ {
		b.PublishChange(TypeIngredientAdded, "x")
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(drain(ch)); n != clientBuffer {
		t.Errorf("buffered = %d, want %d", n, clientBuffer)
	}
}

func TestSSEHandler_Heartbeat(t *testing.T) {
	b := NewBroker(time.Second, WithHeartbeat(10*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	b.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), ": keepalive\n\n") {
		t.Errorf("no keepalive in %q", w.Body.String())
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.PublishChange(TypeRecipeDeleted, "1")
}
