// Package bufpool is a NUMA-aware byte buffer pool backing Send/Receive
// buffer allocation, adapted from the teacher's pool package. Unlike the
// teacher's version this one never calls into libnuma via cgo: NUMA node
// is carried as metadata a caller supplies (e.g. from affinity pinning)
// and used only to pick which sync.Pool bucket to draw from, never to
// steer the actual memory allocation, which stays plain Go heap memory.
package bufpool

import "sync"

// Buffer is a pooled byte slice tagged with the NUMA node preference it
// was requested under.
type Buffer struct {
	data []byte
	node int
}

// Bytes returns the buffer's backing slice, length exactly the size
// requested from Get.
func (b *Buffer) Bytes() []byte { return b.data }

// NUMANode reports the node preference the buffer was drawn under.
func (b *Buffer) NUMANode() int { return b.node }

// Manager is a set of per-NUMA-node buffer pools.
type Manager struct {
	mu    sync.Mutex
	nodes map[int]*sync.Pool
}

// NewManager returns an empty pool manager. Node pools are created
// lazily on first use, so callers never need to know the node count in
// advance.
func NewManager() *Manager {
	return &Manager{nodes: make(map[int]*sync.Pool)}
}

func (m *Manager) poolFor(node int) *sync.Pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.nodes[node]
	if !ok {
		p = &sync.Pool{New: func() any { return &Buffer{} }}
		m.nodes[node] = p
	}
	return p
}

// Get returns a buffer of at least size bytes, preferring one
// previously Put back under the same node. Capacity from a reused
// buffer is reused when large enough; otherwise a fresh slice is
// allocated.
func (m *Manager) Get(size, node int) *Buffer {
	p := m.poolFor(node)
	b := p.Get().(*Buffer)
	b.node = node
	if cap(b.data) < size {
		b.data = make([]byte, size)
	} else {
		b.data = b.data[:size]
	}
	return b
}

// Put returns a buffer to the pool for its node. Callers must not use
// b after calling Put.
func (m *Manager) Put(b *Buffer) {
	if b == nil {
		return
	}
	m.poolFor(b.node).Put(b)
}
