package jobs

import (
	"context"

	"github.com/emrgen/canvas/internal/cache"
	"github.com/emrgen/canvas/internal/store"
	"github.com/sirupsen/logrus"
)

// CacheSyncTask warms the workspace cache from the store for every workspace
// missing from it.
type CacheSyncTask struct {
	cache cache.WorkspaceCache
	store store.Store
	cron  string
}

func NewCacheSyncTask(interval string, store store.Store, cache cache.WorkspaceCache) *CacheSyncTask {
	return &CacheSyncTask{
		store: store,
		cache: cache,
		cron:  interval,
	}
}

func (c *CacheSyncTask) Schedule() string {
	return c.cron
}

func (c *CacheSyncTask) Run() {
	ctx := context.Background()
	workspaces, err := c.store.ListWorkspaces(ctx)
	if err != nil {
		logrus.Errorf("cache sync: list workspaces: %v", err)
		return
	}

	warmed := 0
	for _, ws := range workspaces {
		cached, err := c.cache.GetState(ctx, ws.ID)
		if err != nil {
			logrus.Errorf("cache sync: workspace %s: %v", ws.ID, err)
			continue
		}
		if cached != nil {
			continue
		}

		state, err := c.store.LoadState(ctx, ws.ID)
		if err != nil {
			logrus.Errorf("cache sync: load workspace %s: %v", ws.ID, err)
			continue
		}
		if err := c.cache.SetState(ctx, ws.ID, 0, *state); err != nil {
			logrus.Errorf("cache sync: cache workspace %s: %v", ws.ID, err)
			continue
		}
		warmed++
	}

	if warmed > 0 {
		logrus.Infof("cache sync: warmed %d workspaces", warmed)
	}
}
