// Package history is a bounded undo/redo stack of whole-graph entries.
//
// Entries hold block and relationship pointers. The graph store never mutates
// a block or relationship in place (every change replaces the pointer with a
// modified copy), so consecutive entries share the values that did not change
// and an entry can never be altered by later edits to the live graph.
package history

import (
	"time"

	"github.com/emrgen/canvas/internal/model"
)

// DefaultLimit is the number of entries kept when no limit is configured.
const DefaultLimit = 50

// Entry is one undoable step: the graph as it stood after an action.
type Entry struct {
	Blocks        []*model.Block
	Relationships []*model.Relationship
	Description   string
	Timestamp     time.Time
}

// Manager keeps the past and future stacks.
type Manager struct {
	past    []*Entry
	future  []*Entry
	maxSize int
}

// NewManager creates a manager that retains at most maxSize past entries.
func NewManager(maxSize int) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultLimit
	}
	return &Manager{maxSize: maxSize}
}

// Push records a new action. The oldest entry is dropped past the limit and
// the redo stack is cleared.
func (m *Manager) Push(entry *Entry) {
	m.past = append(m.past, entry)
	if over := len(m.past) - m.maxSize; over > 0 {
		m.past = append(m.past[:0:0], m.past[over:]...)
	}
	m.future = nil
}

// Undo moves the latest entry to the future stack and returns the entry that
// is current afterwards, or nil when nothing remains in the past.
func (m *Manager) Undo() *Entry {
	if len(m.past) == 0 {
		return nil
	}
	last := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	m.future = append([]*Entry{last}, m.future...)
	if len(m.past) == 0 {
		return nil
	}
	return m.past[len(m.past)-1]
}

// Redo moves the next future entry back onto the past stack and returns it.
func (m *Manager) Redo() *Entry {
	if len(m.future) == 0 {
		return nil
	}
	next := m.future[0]
	m.future = m.future[1:]
	m.past = append(m.past, next)
	return next
}

func (m *Manager) CanUndo() bool {
	return len(m.past) > 0
}

func (m *Manager) CanRedo() bool {
	return len(m.future) > 0
}

// Current returns the most recent past entry.
func (m *Manager) Current() *Entry {
	if len(m.past) == 0 {
		return nil
	}
	return m.past[len(m.past)-1]
}

// Depth returns the sizes of the past and future stacks.
func (m *Manager) Depth() (past, future int) {
	return len(m.past), len(m.future)
}

// Descriptions lists past entry descriptions, oldest first.
func (m *Manager) Descriptions() []string {
	out := make([]string, 0, len(m.past))
	for _, e := range m.past {
		out = append(out, e.Description)
	}
	return out
}

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.past = nil
	m.future = nil
}
