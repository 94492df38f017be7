package service

import (
	"github.com/emrgen/canvas/internal/conflict"
	"github.com/sirupsen/logrus"
)

type EventKind string

const (
	EventOperation        EventKind = "operation"
	EventConflictAdded    EventKind = "conflict-added"
	EventConflictResolved EventKind = "conflict-resolved"
	EventPresence         EventKind = "presence"
	EventPeerLeft         EventKind = "peer-left"
)

// Event is what a session pushes to its watchers. Remote is set on
// operations applied from another process.
type Event struct {
	Kind      EventKind           `json:"kind"`
	Remote    bool                `json:"remote,omitempty"`
	Operation *conflict.Operation `json:"operation,omitempty"`
	Conflict  *conflict.Conflict  `json:"conflict,omitempty"`
	Peer      *Peer               `json:"peer,omitempty"`
}

const watcherBuffer = 64

// Watch registers a watcher of the session. The channel is closed by stop or
// when the session closes. A watcher that falls behind loses events.
func (s *Session) Watch() (<-chan Event, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrSessionClosed
	}

	id := s.nextWatcher
	s.nextWatcher++
	ch := make(chan Event, watcherBuffer)
	s.watchers[id] = ch

	stop := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if ch, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(ch)
		}
	}
	return ch, stop, nil
}

// notify hands e to every watcher without blocking. Callers hold s.mu.
func (s *Session) notify(e Event) {
	for id, ch := range s.watchers {
		select {
		case ch <- e:
		default:
			logrus.Warnf("watcher %d of workspace %s is behind, dropped %s event", id, s.workspaceID, e.Kind)
		}
	}
}

// conflictEvent runs inside graph calls, which the session lock guards.
func (s *Session) conflictEvent(e conflict.Event) {
	kind := EventConflictAdded
	if e.Kind == conflict.EventResolved {
		kind = EventConflictResolved
	}
	s.notify(Event{Kind: kind, Conflict: e.Conflict})
}
