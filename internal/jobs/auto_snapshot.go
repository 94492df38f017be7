package jobs

import (
	"context"
	"time"

	"github.com/emrgen/canvas/internal/graph"
	"github.com/sirupsen/logrus"
)

// AutoSnapshotter snapshots every workspace that changed since its latest
// snapshot, once per interval.
type AutoSnapshotter struct {
	workspaces Workspaces
	interval   time.Duration
	done       chan struct{}
}

func NewAutoSnapshotter(interval time.Duration, workspaces Workspaces) *AutoSnapshotter {
	return &AutoSnapshotter{
		workspaces: workspaces,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

func (a *AutoSnapshotter) Stop() {
	close(a.done)
}

func (a *AutoSnapshotter) Run() {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.snapshot(context.Background())
		}
	}
}

func (a *AutoSnapshotter) snapshot(ctx context.Context) {
	workspaces, err := a.workspaces.ListWorkspaces(ctx)
	if err != nil {
		logrus.Errorf("auto snapshot: list workspaces: %v", err)
		return
	}

	for _, ws := range workspaces {
		err := a.workspaces.Update(ctx, ws.ID, snapshotIfChanged)
		if err != nil {
			logrus.Errorf("auto snapshot: workspace %s: %v", ws.ID, err)
		}
	}
}

func snapshotIfChanged(s *graph.Store) (bool, error) {
	if len(s.Blocks()) == 0 {
		return false, nil
	}
	if latest := s.LatestSnapshot(); latest != nil {
		changes, err := s.PreviewSnapshotRestore(latest.ID)
		if err != nil {
			return false, err
		}
		if changes.Empty() {
			return false, nil
		}
	}

	snap, err := s.CreateSnapshot("Auto snapshot " + time.Now().UTC().Format(time.DateTime))
	if err != nil {
		return false, err
	}
	logrus.Infof("auto snapshot: created %s for workspace %s", snap.ID, s.WorkspaceID())
	return true, nil
}
