package jobs

import (
	"context"
	"time"

	"github.com/emrgen/canvas/internal/graph"
	"github.com/sirupsen/logrus"
)

// GovernanceTask logs the governance recommendations of every workspace.
type GovernanceTask struct {
	workspaces Workspaces
	cron       string
	now        func() time.Time

	// Last holds the findings of the most recent sweep by workspace.
	Last map[string][]graph.Recommendation
}

func NewGovernanceTask(schedule string, workspaces Workspaces) *GovernanceTask {
	return &GovernanceTask{
		workspaces: workspaces,
		cron:       schedule,
		now:        time.Now,
		Last:       make(map[string][]graph.Recommendation),
	}
}

func (g *GovernanceTask) Schedule() string {
	return g.cron
}

func (g *GovernanceTask) Run() {
	ctx := context.Background()
	workspaces, err := g.workspaces.ListWorkspaces(ctx)
	if err != nil {
		logrus.Errorf("governance: list workspaces: %v", err)
		return
	}

	last := make(map[string][]graph.Recommendation, len(workspaces))
	for _, ws := range workspaces {
		err := g.workspaces.Update(ctx, ws.ID, func(s *graph.Store) (bool, error) {
			last[ws.ID] = s.Governance(g.now())
			return false, nil
		})
		if err != nil {
			logrus.Errorf("governance: workspace %s: %v", ws.ID, err)
			continue
		}

		for _, rec := range last[ws.ID] {
			entry := logrus.WithFields(logrus.Fields{
				"workspace": ws.ID,
				"kind":      rec.Kind,
				"block":     rec.BlockID,
			})
			switch rec.Severity {
			case graph.SeverityCritical:
				entry.Error(rec.Message)
			case graph.SeverityWarning:
				entry.Warn(rec.Message)
			default:
				entry.Info(rec.Message)
			}
		}
	}
	g.Last = last
}
