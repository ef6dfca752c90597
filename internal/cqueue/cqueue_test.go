package cqueue_test

import (
	"testing"
	"time"

	"github.com/kepler-io/ioq/internal/cqueue"
)

func TestFIFOOrder(t *testing.T) {
	q := cqueue.New()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	for i := 0; i < 5; i++ {
		v, ok := q.Pop()
		if !ok || v.(int) != i {
			t.Fatalf("Pop() = %v, %v; want %d, true", v, ok, i)
		}
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := cqueue.New()
	done := make(chan int, 1)
	go func() {
		v, ok := q.Pop()
		if !ok {
			done <- -1
			return
		}
		done <- v.(int)
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before any Push")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(42)

	select {
	case v := <-done:
		if v != 42 {
			t.Fatalf("got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Push")
	}
}

func TestCloseWakesBlockedPop(t *testing.T) {
	q := cqueue.New()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("Pop reported an element on a closed, empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Close")
	}
}

func TestCloseDrainsQueuedElements(t *testing.T) {
	q := cqueue.New()
	q.Push(1)
	q.Push(2)
	q.Close()

	v, ok := q.Pop()
	if !ok || v.(int) != 1 {
		t.Fatalf("first Pop after Close = %v, %v", v, ok)
	}
	v, ok = q.Pop()
	if !ok || v.(int) != 2 {
		t.Fatalf("second Pop after Close = %v, %v", v, ok)
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop on drained closed queue returned ok=true")
	}
}

func TestPushAfterCloseIsNoop(t *testing.T) {
	q := cqueue.New()
	q.Close()
	q.Push(1)
	if n := q.Len(); n != 0 {
		t.Fatalf("Len() = %d, want 0", n)
	}
}
