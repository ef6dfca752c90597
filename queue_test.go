package ioq_test

import (
	"testing"
	"time"

	"github.com/kepler-io/ioq"
)

// Scenario 1: custom round trip.
func TestCustomRoundTrip(t *testing.T) {
	q, err := ioq.NewQueue()
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	defer q.Close()

	flagged := false
	if err := q.Post(func() { flagged = true }); err != nil {
		t.Fatalf("Post: %v", err)
	}

	ev, err := q.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if ev.Kind != ioq.EventCustom {
		t.Fatalf("Kind = %v, want EventCustom", ev.Kind)
	}
	if !flagged {
		t.Fatal("custom callable did not run before Dequeue returned")
	}
}

// P5: two custom events posted in order arrive in the same order.
func TestCustomEventsPreserveOrder(t *testing.T) {
	q, err := ioq.NewQueue()
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	defer q.Close()

	var order []int
	if err := q.Post(func() { order = append(order, 1) }); err != nil {
		t.Fatalf("Post A: %v", err)
	}
	if err := q.Post(func() { order = append(order, 2) }); err != nil {
		t.Fatalf("Post B: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := q.Dequeue(); err != nil {
			t.Fatalf("Dequeue %d: %v", i, err)
		}
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
}

func TestDequeueBlocksUntilPosted(t *testing.T) {
	q, err := ioq.NewQueue()
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	defer q.Close()

	done := make(chan struct{})
	go func() {
		q.Dequeue()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Dequeue returned before any event was posted")
	case <-time.After(20 * time.Millisecond):
	}

	q.Post(func() {})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after Post")
	}
}

func TestCloseWakesBlockedDequeue(t *testing.T) {
	q, err := ioq.NewQueue()
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := q.Dequeue()
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-errc:
		if err != ioq.ErrQueueClosed {
			t.Fatalf("Dequeue error = %v, want ErrQueueClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not wake after Close")
	}
}

func TestCloneSharesPortUntilLastClose(t *testing.T) {
	q, err := ioq.NewQueue()
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	clone := q.Clone()

	if err := q.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}

	// The port must still be usable through clone.
	if err := clone.Post(func() {}); err != nil {
		t.Fatalf("Post through surviving clone: %v", err)
	}
	if _, err := clone.Dequeue(); err != nil {
		t.Fatalf("Dequeue through surviving clone: %v", err)
	}

	if err := clone.Close(); err != nil {
		t.Fatalf("final Close: %v", err)
	}
}
