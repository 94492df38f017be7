package relay

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

var _ Relay = (*Local)(nil)

// Local is an in-process relay. A subscriber that does not keep up loses
// envelopes rather than blocking the publisher.
type Local struct {
	mu     sync.Mutex
	subs   map[string]map[chan *Envelope]struct{}
	closed bool
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[chan *Envelope]struct{})}
}

func (l *Local) Publish(_ context.Context, env *Envelope) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	for ch := range l.subs[env.WorkspaceID] {
		select {
		case ch <- env:
		default:
			logrus.Warnf("relay subscriber of workspace %s is full, dropped envelope %s", env.WorkspaceID, env.ID)
		}
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context, workspaceID string) (<-chan *Envelope, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	ch := make(chan *Envelope, subscriptionBuffer)
	if l.subs[workspaceID] == nil {
		l.subs[workspaceID] = make(map[chan *Envelope]struct{})
	}
	l.subs[workspaceID][ch] = struct{}{}

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subs[workspaceID][ch]; ok {
			delete(l.subs[workspaceID], ch)
			close(ch)
		}
	}()

	return ch, nil
}

// Close ends every subscription.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	for workspaceID, chans := range l.subs {
		for ch := range chans {
			close(ch)
		}
		delete(l.subs, workspaceID)
	}
	return nil
}
