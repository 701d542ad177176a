package session

import (
	"sync"

	"github.com/rustchat/chatd/internal/wire"
)

// mailbox is the session's in-process event queue: the sole path by which
// other goroutines deliver events to this client's writer (spec §4.5,
// GLOSSARY "Mailbox"). It is logically unbounded (Open Question 3, kept as
// the source design: a slow consumer grows memory rather than being
// dropped or disconnected), isolated behind this small type so a bounded
// drop-oldest policy could be swapped in later without touching callers.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []wire.ServerEvent
	closed bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// push enqueues event. Never blocks, never drops - enqueue order is
// delivery order (spec §5 Ordering).
func (m *mailbox) push(event wire.ServerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.queue = append(m.queue, event)
	m.cond.Signal()
}

// pop blocks until an event is available or the mailbox is closed, in
// which case ok is false.
func (m *mailbox) pop() (wire.ServerEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.queue) == 0 && m.closed {
		return nil, false
	}
	ev := m.queue[0]
	m.queue = m.queue[1:]
	return ev, true
}

// close wakes any blocked pop and causes future pop calls to return ok=false
// once the queue drains.
func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
}
