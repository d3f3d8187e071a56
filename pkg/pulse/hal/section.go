package hal

import "sync"

// IRQMask is the host-side Section implementation. Where target firmware
// would mask the relevant interrupt sources, the host build takes a
// mutex; producers and the dispatcher see the same mutual exclusion.
type IRQMask struct {
	mu sync.Mutex
}

// NewIRQMask creates a critical section guard.
func NewIRQMask() *IRQMask {
	return &IRQMask{}
}

// Enter begins the critical section.
func (m *IRQMask) Enter() {
	m.mu.Lock()
}

// Exit ends the critical section.
func (m *IRQMask) Exit() {
	m.mu.Unlock()
}
