package jobs

import (
	"context"

	"github.com/emrgen/canvas/internal/graph"
	"github.com/sirupsen/logrus"
)

// SnapshotRetentionTask keeps the newest snapshots of every workspace and
// drops the rest.
type SnapshotRetentionTask struct {
	workspaces Workspaces
	cron       string
	keep       int
}

func NewSnapshotRetentionTask(schedule string, keep int, workspaces Workspaces) *SnapshotRetentionTask {
	return &SnapshotRetentionTask{
		workspaces: workspaces,
		cron:       schedule,
		keep:       keep,
	}
}

func (r *SnapshotRetentionTask) Schedule() string {
	return r.cron
}

func (r *SnapshotRetentionTask) Run() {
	ctx := context.Background()
	workspaces, err := r.workspaces.ListWorkspaces(ctx)
	if err != nil {
		logrus.Errorf("snapshot retention: list workspaces: %v", err)
		return
	}

	for _, ws := range workspaces {
		err := r.workspaces.Update(ctx, ws.ID, func(s *graph.Store) (bool, error) {
			removed := s.PruneSnapshots(r.keep)
			if len(removed) > 0 {
				logrus.Infof("snapshot retention: removed %d snapshots of workspace %s", len(removed), ws.ID)
			}
			return len(removed) > 0, nil
		})
		if err != nil {
			logrus.Errorf("snapshot retention: workspace %s: %v", ws.ID, err)
		}
	}
}
