// Package state owns the believed-current configuration of the managed
// unit. All mutation funnels through a single Manager so the single-writer
// discipline the codec's apply operation expects actually holds, whether
// the write came from the API or from a received frame.
package state

import (
	"sync"

	"github.com/thatsimonsguy/heatpump-ir/internal/protocol"
)

type Manager struct {
	mu   sync.Mutex
	pump *protocol.OperatingState
	subs map[chan map[string]any]struct{}
}

// NewManager wraps an initial state, typically loaded from the database or
// protocol.NewOperatingState defaults.
func NewManager(initial *protocol.OperatingState) *Manager {
	if initial == nil {
		initial = protocol.NewOperatingState()
	}
	return &Manager{
		pump: initial,
		subs: make(map[chan map[string]any]struct{}),
	}
}

// Snapshot returns the flat presentation mapping of the current state.
func (m *Manager) Snapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pump.Snapshot()
}

// Current returns a copy of the current state.
func (m *Manager) Current() protocol.OperatingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.pump
}

// Update applies fn to a working copy under the lock and commits it only if
// fn succeeds, so a failed partial update or frame apply leaves the state
// untouched. Subscribers are notified after a successful commit.
func (m *Manager) Update(fn func(*protocol.OperatingState) error) error {
	m.mu.Lock()
	working := *m.pump
	if err := fn(&working); err != nil {
		m.mu.Unlock()
		return err
	}
	*m.pump = working
	snap := m.pump.Snapshot()
	subs := make([]chan map[string]any, 0, len(m.subs))
	for ch := range m.subs {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	for _, ch := range subs {
		// Slow subscribers drop snapshots rather than block the writer.
		select {
		case ch <- snap:
		default:
		}
	}
	return nil
}

// Subscribe registers a channel that receives a snapshot after every
// successful update.
func (m *Manager) Subscribe() chan map[string]any {
	ch := make(chan map[string]any, 4)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

func (m *Manager) Unsubscribe(ch chan map[string]any) {
	m.mu.Lock()
	delete(m.subs, ch)
	m.mu.Unlock()
}
