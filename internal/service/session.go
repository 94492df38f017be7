package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/relay"
	"github.com/emrgen/canvas/internal/review"
	"github.com/emrgen/canvas/internal/snapshot"
	"github.com/sirupsen/logrus"
)

// Peer is the last known presence of an actor in the workspace.
type Peer struct {
	ActorID   string          `json:"actorId"`
	ActorName string          `json:"actorName"`
	Cursor    *model.Position `json:"cursor,omitempty"`
	Selection []string        `json:"selection,omitempty"`
	LastSeen  time.Time       `json:"lastSeen"`
}

// Session serializes access to the live graph of one workspace. Every
// change is persisted and its operations are published on the relay; the
// operations other processes publish are applied as remote changes.
type Session struct {
	svc         *WorkspaceService
	workspaceID string

	mu     sync.Mutex
	graph  *graph.Store
	peers  map[string]*Peer
	closed bool
	// sent holds the ids of envelopes published here and not yet echoed back.
	sent mapset.Set[string]
	// mark is the graph as last written to the store.
	mark        graph.Mark
	watchers    map[int]chan Event
	nextWatcher int

	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(svc *WorkspaceService, g *graph.Store) (*Session, error) {
	ctx, cancel := context.WithCancel(context.Background())
	envelopes, err := svc.relay.Subscribe(ctx, g.WorkspaceID())
	if err != nil {
		cancel()
		return nil, err
	}

	s := &Session{
		svc:         svc,
		workspaceID: g.WorkspaceID(),
		graph:       g,
		peers:       make(map[string]*Peer),
		sent:        mapset.NewThreadUnsafeSet[string](),
		mark:        g.Mark(),
		watchers:    make(map[int]chan Event),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	g.SubscribeConflicts(s.conflictEvent)
	go s.receive(envelopes)

	return s, nil
}

func (s *Session) WorkspaceID() string {
	return s.workspaceID
}

// View runs f against the live graph without recording a change.
func (s *Session) View(f func(g *graph.Store)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	f(s.graph)
	return nil
}

// Do runs f as actor. The workspace is persisted when f succeeds or when it
// committed changes before failing.
func (s *Session) Do(ctx context.Context, actor graph.Actor, f func(g *graph.Store) error) error {
	var ferr error
	err := s.update(ctx, actor, func(g *graph.Store) (bool, error) {
		before := g.Version()
		ferr = f(g)
		return ferr == nil || g.Version() != before, nil
	})
	if err != nil {
		return err
	}
	return ferr
}

func (s *Session) update(ctx context.Context, actor graph.Actor, f func(g *graph.Store) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	s.graph.SetActor(actor)
	changed, err := f(s.graph)
	if !changed {
		return err
	}

	if perr := s.persist(ctx); perr != nil {
		return errors.Join(err, perr)
	}
	s.publish(ctx, actor, s.graph.Drain())

	return err
}

// persist writes what changed since the last write. Callers hold s.mu.
func (s *Session) persist(ctx context.Context) error {
	changes := s.graph.ChangesSince(s.mark)
	if changes.Empty() {
		return nil
	}
	if err := s.svc.save(ctx, s.workspaceID, changes); err != nil {
		logrus.Errorf("failed to persist workspace %s: %v", s.workspaceID, err)
		return err
	}
	s.mark = s.graph.Mark()
	return nil
}

func (s *Session) publish(ctx context.Context, actor graph.Actor, ops []conflict.Operation) {
	for _, op := range ops {
		env, err := relay.NewEnvelope(relay.KindOperation, s.workspaceID, actor.ID, actor.Name, op)
		if err != nil {
			logrus.Errorf("failed to wrap operation %s: %v", op.ID, err)
			continue
		}
		s.sent.Add(env.ID)
		if err := s.svc.relay.Publish(ctx, env); err != nil {
			s.sent.Remove(env.ID)
			logrus.Errorf("failed to publish operation %s of workspace %s: %v", op.ID, s.workspaceID, err)
		}
		s.notify(Event{Kind: EventOperation, Operation: &op})
	}
}

func (s *Session) receive(envelopes <-chan *relay.Envelope) {
	defer close(s.done)

	for env := range envelopes {
		s.mu.Lock()
		if s.sent.Contains(env.ID) {
			s.sent.Remove(env.ID)
			s.mu.Unlock()
			continue
		}

		switch env.Kind {
		case relay.KindOperation:
			s.applyRemote(env)
		case relay.KindPresence:
			s.updatePeer(env)
		default:
			logrus.Warnf("ignoring %s envelope %s", env.Kind, env.ID)
		}
		s.mu.Unlock()
	}
}

func (s *Session) applyRemote(env *relay.Envelope) {
	var op conflict.Operation
	if err := env.Decode(&op); err != nil {
		logrus.Errorf("dropping envelope %s: %v", env.ID, err)
		return
	}

	c, err := s.graph.ApplyRemote(op)
	if err != nil {
		return
	}
	if c != nil {
		logrus.Warnf("conflict %s on %s of block %s between %s and %s", c.ID, c.Field, c.BlockID, c.LocalUserID, c.RemoteUserID)
		return
	}
	s.notify(Event{Kind: EventOperation, Remote: true, Operation: &op})

	// every process writes what it applies, so rows written concurrently by
	// another process converge once the operations cross
	_ = s.persist(context.Background())
}

func (s *Session) updatePeer(env *relay.Envelope) {
	var p relay.Presence
	if err := env.Decode(&p); err != nil {
		logrus.Errorf("dropping envelope %s: %v", env.ID, err)
		return
	}
	s.setPeer(env.ActorID, env.ActorName, p, env.Timestamp)
}

func (s *Session) setPeer(actorID, actorName string, p relay.Presence, at time.Time) {
	if p.Leaving {
		delete(s.peers, actorID)
		s.notify(Event{Kind: EventPeerLeft, Peer: &Peer{ActorID: actorID, ActorName: actorName, LastSeen: at}})
		return
	}
	peer := &Peer{
		ActorID:   actorID,
		ActorName: actorName,
		Cursor:    p.Cursor,
		Selection: p.Selection,
		LastSeen:  at,
	}
	s.peers[actorID] = peer
	copied := *peer
	s.notify(Event{Kind: EventPresence, Peer: &copied})
}

// UpdatePresence records the presence of actor and publishes it.
func (s *Session) UpdatePresence(ctx context.Context, actor graph.Actor, p relay.Presence) error {
	env, err := relay.NewEnvelope(relay.KindPresence, s.workspaceID, actor.ID, actor.Name, p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.setPeer(actor.ID, actor.Name, p, env.Timestamp)
	s.sent.Add(env.ID)
	s.mu.Unlock()

	return s.svc.relay.Publish(ctx, env)
}

// Peers lists the actors present in the workspace, ordered by actor id.
func (s *Session) Peers() []Peer {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers := make([]Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, *p)
	}
	sort.Slice(peers, func(i, j int) bool {
		return peers[i].ActorID < peers[j].ActorID
	})
	return peers
}

// Close stops receiving remote changes. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
	s.mu.Unlock()

	s.cancel()
	<-s.done
	logrus.Infof("closed session of workspace %s", s.workspaceID)
}

func (s *Session) AddBlock(ctx context.Context, actor graph.Actor, req *AddBlockRequest) (*model.Block, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	var b *model.Block
	err := s.Do(ctx, actor, func(g *graph.Store) error {
		var err error
		b, err = g.AddBlock(req.block())
		return err
	})
	return b, err
}

func (s *Session) UpdateBlock(ctx context.Context, actor graph.Actor, id string, req *UpdateBlockRequest) (*model.Block, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	var b *model.Block
	err := s.Do(ctx, actor, func(g *graph.Store) error {
		var err error
		b, err = g.UpdateBlock(id, req.patch())
		return err
	})
	return b, err
}

func (s *Session) AddRelationship(ctx context.Context, actor graph.Actor, req *AddRelationshipRequest) (*model.Relationship, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	var r *model.Relationship
	err := s.Do(ctx, actor, func(g *graph.Store) error {
		var err error
		r, err = g.AddRelationship(graph.NewRelationship{
			SourceID: req.SourceID,
			TargetID: req.TargetID,
			Type:     req.Type,
			Label:    req.Label,
			Animated: req.Animated,
		})
		return err
	})
	return r, err
}

// SetStatus moves a single block with the lifecycle guard. Several blocks go
// through the batch path, which logs the edges the guard would refuse.
func (s *Session) SetStatus(ctx context.Context, actor graph.Actor, req *StatusRequest) (int, error) {
	if err := invalid(req.Validate()); err != nil {
		return 0, err
	}

	changed := 0
	err := s.Do(ctx, actor, func(g *graph.Store) error {
		if len(req.BlockIDs) == 1 {
			if err := g.TransitionStatus(req.BlockIDs[0], req.Status); err != nil {
				return err
			}
			changed = 1
			return nil
		}
		changed = g.SetStatuses(req.BlockIDs, req.Status)
		return nil
	})
	return changed, err
}

func (s *Session) RequestReview(ctx context.Context, actor graph.Actor, req *RequestReviewRequest) (*review.Request, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	var r *review.Request
	err := s.Do(ctx, actor, func(g *graph.Store) error {
		var err error
		r, err = g.RequestReview(graph.ReviewInput{
			BlockIDs:     req.BlockIDs,
			ReviewerID:   req.ReviewerID,
			ReviewerName: req.ReviewerName,
			DueBy:        req.DueBy,
			Context:      req.Context,
		})
		return err
	})
	return r, err
}

func (s *Session) CompleteReview(ctx context.Context, actor graph.Actor, id string, req *CompleteReviewRequest) (*review.Request, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	var r *review.Request
	err := s.Do(ctx, actor, func(g *graph.Store) error {
		var err error
		r, err = g.CompleteReview(id, req.Resolution, req.Comment)
		return err
	})
	return r, err
}

func (s *Session) AddComment(ctx context.Context, actor graph.Actor, blockID string, req *CommentRequest) (*model.Comment, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	var c *model.Comment
	err := s.Do(ctx, actor, func(g *graph.Store) error {
		var err error
		if req.ParentID != "" {
			c, err = g.ReplyToComment(blockID, req.ParentID, req.Content)
		} else {
			c, err = g.AddComment(blockID, req.Content)
		}
		return err
	})
	return c, err
}

func (s *Session) ResolveConflict(ctx context.Context, actor graph.Actor, id string, req *ResolveConflictRequest) (*conflict.Conflict, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	var c *conflict.Conflict
	err := s.Do(ctx, actor, func(g *graph.Store) error {
		var err error
		if req.Strategy != "" {
			c, err = g.ResolveConflictWith(id, req.Strategy)
		} else {
			c, err = g.ResolveConflict(id, req.Side, req.Merged)
		}
		return err
	})
	return c, err
}

func (s *Session) CreateSnapshot(ctx context.Context, actor graph.Actor, req *SnapshotRequest) (*snapshot.Snapshot, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	var snap *snapshot.Snapshot
	err := s.Do(ctx, actor, func(g *graph.Store) error {
		var err error
		snap, err = g.CreateSnapshot(req.Label)
		return err
	})
	return snap, err
}
