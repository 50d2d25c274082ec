package bus

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("bus: closed")

// Memory is one end of an in-process channel pair. Handlers run
// synchronously on the sender's goroutine.
type Memory struct {
	mu       sync.RWMutex
	peer     *Memory
	handlers []func(Event)
	closed   bool
}

// Pipe returns two connected ends.
func Pipe() (*Memory, *Memory) {
	a, b := &Memory{}, &Memory{}
	a.peer, b.peer = b, a
	return a, b
}

func (m *Memory) Send(e Event) error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	m.peer.deliver(e)
	return nil
}

func (m *Memory) OnReceive(h func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) deliver(e Event) {
	m.mu.RLock()
	hs := make([]func(Event), len(m.handlers))
	copy(hs, m.handlers)
	m.mu.RUnlock()
	for _, h := range hs {
		h(e)
	}
}
