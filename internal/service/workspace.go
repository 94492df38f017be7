package service

import (
	"context"
	"sync"
	"time"

	"github.com/emrgen/canvas/internal/cache"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/relay"
	"github.com/emrgen/canvas/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SystemActor is stamped on changes made by background jobs.
var SystemActor = graph.Actor{ID: "system", Name: "System"}

type Options struct {
	HistoryLimit      int
	OperationLogLimit int
	// Provider routes workspaces to stores; the service store serves every
	// workspace when nil.
	Provider store.Provider
	Clock    func() time.Time
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(s store.Store, c cache.WorkspaceCache, r relay.Relay, opts Options) *WorkspaceService {
	if c == nil {
		c = cache.NewNop()
	}
	if r == nil {
		r = relay.NewLocal()
	}
	if opts.Provider == nil {
		opts.Provider = store.NewDefaultProvider(s)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &WorkspaceService{
		store:    s,
		cache:    c,
		relay:    r,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// WorkspaceService manages workspaces and the live sessions editing them.
// A process keeps at most one session per workspace.
type WorkspaceService struct {
	store store.Store
	cache cache.WorkspaceCache
	relay relay.Relay
	opts  Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// CreateWorkspace creates a new workspace.
func (w *WorkspaceService) CreateWorkspace(ctx context.Context, req *CreateWorkspaceRequest) (*model.Workspace, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	ws := &model.Workspace{ID: req.ID, Name: req.Name}
	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}
	if err := w.store.CreateWorkspace(ctx, ws); err != nil {
		return nil, err
	}

	logrus.Infof("created workspace %s (%s)", ws.ID, ws.Name)
	return ws, nil
}

func (w *WorkspaceService) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	return w.store.GetWorkspace(ctx, id)
}

func (w *WorkspaceService) ListWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	return w.store.ListWorkspaces(ctx)
}

// DeleteWorkspace closes the workspace session and deletes everything stored
// for the workspace.
func (w *WorkspaceService) DeleteWorkspace(ctx context.Context, id string) error {
	if _, err := w.store.GetWorkspace(ctx, id); err != nil {
		return err
	}

	w.mu.Lock()
	sess := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()
	if sess != nil {
		sess.Close()
	}

	err := w.store.Transaction(ctx, func(tx store.Store) error {
		return tx.DeleteWorkspace(ctx, id)
	})
	if err != nil {
		return err
	}
	if err := w.cache.DeleteState(ctx, id); err != nil {
		logrus.Warnf("failed to evict workspace %s from cache: %v", id, err)
	}

	logrus.Infof("deleted workspace %s", id)
	return nil
}

// Open returns the live session of a workspace, loading the workspace when
// no session is open yet.
func (w *WorkspaceService) Open(ctx context.Context, workspaceID string) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if sess, ok := w.sessions[workspaceID]; ok {
		return sess, nil
	}

	if _, err := w.store.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}

	state, err := w.loadState(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	g := graph.New(graph.Options{
		WorkspaceID:       workspaceID,
		HistoryLimit:      w.opts.HistoryLimit,
		OperationLogLimit: w.opts.OperationLogLimit,
		Actor:             SystemActor,
		Clock:             w.opts.Clock,
	})
	g.Load(*state)

	sess, err := newSession(w, g)
	if err != nil {
		return nil, err
	}
	w.sessions[workspaceID] = sess

	return sess, nil
}

func (w *WorkspaceService) loadState(ctx context.Context, workspaceID string) (*graph.State, error) {
	state, err := w.cache.GetState(ctx, workspaceID)
	if err != nil {
		logrus.Warnf("cache read of workspace %s failed: %v", workspaceID, err)
	}
	if state != nil {
		logrus.Debugf("workspace %s loaded from cache", workspaceID)
		return state, nil
	}

	s, err := w.opts.Provider.Provide(workspaceID)
	if err != nil {
		return nil, err
	}
	state, err = s.LoadState(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if err := w.cache.SetState(ctx, workspaceID, cacheVersion(), *state); err != nil {
		logrus.Warnf("cache write of workspace %s failed: %v", workspaceID, err)
	}

	return state, nil
}

// save writes the changes of a workspace in one transaction and evicts the
// cached state, which is filled again on the next load.
func (w *WorkspaceService) save(ctx context.Context, workspaceID string, changes graph.Changes) error {
	s, err := w.opts.Provider.Provide(workspaceID)
	if err != nil {
		return err
	}

	err = s.Transaction(ctx, func(tx store.Store) error {
		return tx.SaveChanges(ctx, workspaceID, changes)
	})
	if err != nil {
		return err
	}

	if err := w.cache.DeleteState(ctx, workspaceID); err != nil {
		logrus.Warnf("cache eviction of workspace %s failed: %v", workspaceID, err)
	}
	return nil
}

// Update runs f against the live graph of a workspace as the system actor
// and persists the workspace when f reports a change.
func (w *WorkspaceService) Update(ctx context.Context, workspaceID string, f func(g *graph.Store) (bool, error)) error {
	sess, err := w.Open(ctx, workspaceID)
	if err != nil {
		return err
	}
	return sess.update(ctx, SystemActor, f)
}

// Close closes every open session.
func (w *WorkspaceService) Close() {
	w.mu.Lock()
	sessions := w.sessions
	w.sessions = make(map[string]*Session)
	w.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

// cacheVersion orders cache writes across processes.
func cacheVersion() uint64 {
	return uint64(time.Now().UnixNano())
}
