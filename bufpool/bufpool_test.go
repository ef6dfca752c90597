package bufpool_test

import (
	"testing"

	"github.com/kepler-io/ioq/bufpool"
)

func TestGetReturnsRequestedSize(t *testing.T) {
	m := bufpool.NewManager()
	b := m.Get(128, 0)
	if len(b.Bytes()) != 128 {
		t.Fatalf("len = %d, want 128", len(b.Bytes()))
	}
	if b.NUMANode() != 0 {
		t.Fatalf("NUMANode() = %d, want 0", b.NUMANode())
	}
}

func TestPutThenGetHonorsNewSize(t *testing.T) {
	m := bufpool.NewManager()
	b := m.Get(256, 1)
	m.Put(b)

	b2 := m.Get(64, 1)
	if len(b2.Bytes()) != 64 {
		t.Fatalf("len = %d, want 64", len(b2.Bytes()))
	}
}

func TestSeparateNodesAreIndependent(t *testing.T) {
	m := bufpool.NewManager()
	a := m.Get(32, 0)
	b := m.Get(32, 1)
	if a.NUMANode() == b.NUMANode() {
		t.Fatalf("expected distinct nodes, got %d and %d", a.NUMANode(), b.NUMANode())
	}
}
