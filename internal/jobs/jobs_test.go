package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emrgen/canvas/internal/cache"
	"github.com/emrgen/canvas/internal/compress"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/store"
	"github.com/emrgen/canvas/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWorkspaces struct {
	graphs  map[string]*graph.Store
	updates map[string]int
}

func newMemWorkspaces(ids ...string) *memWorkspaces {
	m := &memWorkspaces{graphs: make(map[string]*graph.Store), updates: make(map[string]int)}
	for _, id := range ids {
		m.graphs[id] = graph.New(graph.Options{WorkspaceID: id})
	}
	return m
}

func (m *memWorkspaces) ListWorkspaces(context.Context) ([]*model.Workspace, error) {
	var out []*model.Workspace
	for id := range m.graphs {
		out = append(out, &model.Workspace{ID: id})
	}
	return out, nil
}

func (m *memWorkspaces) Update(_ context.Context, id string, f func(g *graph.Store) (bool, error)) error {
	changed, err := f(m.graphs[id])
	if changed {
		m.updates[id]++
	}
	return err
}

func TestGovernanceTask(t *testing.T) {
	ws := newMemWorkspaces("ws")
	g := ws.graphs["ws"]
	_, err := g.AddBlock(graph.NewBlock{ID: "lonely", Type: model.BlockTypeFAQ, Title: "Lonely"})
	require.NoError(t, err)

	task := NewGovernanceTask("@hourly", ws)
	assert.Equal(t, "@hourly", task.Schedule())
	task.Run()

	recs := task.Last["ws"]
	require.NotEmpty(t, recs)
	assert.Equal(t, graph.KindOrphaned, recs[0].Kind)
	assert.Zero(t, ws.updates["ws"])
}

func TestSnapshotRetentionTask(t *testing.T) {
	ws := newMemWorkspaces("ws")
	g := ws.graphs["ws"]
	for i := 0; i < 4; i++ {
		_, err := g.CreateSnapshot("")
		require.NoError(t, err)
	}

	task := NewSnapshotRetentionTask("@daily", 2, ws)
	task.Run()
	assert.Len(t, g.Snapshots(), 2)
	assert.Equal(t, 1, ws.updates["ws"])

	task.Run()
	assert.Equal(t, 1, ws.updates["ws"])
}

func TestSnapshotIfChanged(t *testing.T) {
	g := graph.New(graph.Options{WorkspaceID: "ws"})

	changed, err := snapshotIfChanged(g)
	require.NoError(t, err)
	assert.False(t, changed, "empty workspaces are not snapshotted")

	_, err = g.AddBlock(graph.NewBlock{ID: "b1", Type: model.BlockTypeProduct, Title: "Product"})
	require.NoError(t, err)
	changed, err = snapshotIfChanged(g)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = snapshotIfChanged(g)
	require.NoError(t, err)
	assert.False(t, changed)

	title := "Renamed"
	_, err = g.UpdateBlock("b1", graph.BlockPatch{Title: &title})
	require.NoError(t, err)
	changed, err = snapshotIfChanged(g)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, g.Snapshots(), 2)
}

func TestAutoSnapshotter(t *testing.T) {
	ws := newMemWorkspaces("ws")
	_, err := ws.graphs["ws"].AddBlock(graph.NewBlock{ID: "b1", Type: model.BlockTypeProduct, Title: "Product"})
	require.NoError(t, err)

	a := NewAutoSnapshotter(time.Hour, ws)
	a.snapshot(context.TODO())
	assert.Len(t, ws.graphs["ws"].Snapshots(), 1)

	done := make(chan struct{})
	go func() {
		a.Run()
		close(done)
	}()
	a.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("auto snapshotter did not stop")
	}
}

type countingJob struct {
	runs atomic.Int32
	stop chan struct{}
}

func (c *countingJob) Run() {
	c.runs.Add(1)
	<-c.stop
}

func (c *countingJob) Stop() {
	close(c.stop)
}

func (c *countingJob) Schedule() string {
	return "@every 1h"
}

func TestTaskExecutor(t *testing.T) {
	long := &countingJob{stop: make(chan struct{})}
	scheduled := &countingJob{stop: make(chan struct{})}
	exec := NewTaskExecutor([]Job{long}, []CronJob{scheduled})
	require.NoError(t, exec.Run())

	assert.Eventually(t, func() bool { return long.runs.Load() == 1 }, time.Second, 10*time.Millisecond)

	assert.True(t, exec.claim(scheduled))
	assert.False(t, exec.claim(scheduled))
	exec.release(scheduled)
	assert.True(t, exec.claim(scheduled))

	exec.Stop()
}

func TestTaskExecutor_BadSchedule(t *testing.T) {
	exec := NewTaskExecutor(nil, []CronJob{NewGovernanceTask("not a schedule", newMemWorkspaces())})
	assert.Error(t, exec.Run())
}

func TestCacheSyncTask(t *testing.T) {
	tester.Setup()
	defer tester.RemoveDBFile()

	ctx := context.TODO()
	s := store.NewGormStore(tester.TestDB(), compress.NewGZip())
	require.NoError(t, s.CreateWorkspace(ctx, &model.Workspace{ID: "ws-cache", Name: "Cache"}))

	g := graph.New(graph.Options{WorkspaceID: "ws-cache"})
	_, err := g.AddBlock(graph.NewBlock{ID: "cache-b1", Type: model.BlockTypeMessage, Title: "Message"})
	require.NoError(t, err)
	require.NoError(t, s.SaveChanges(ctx, "ws-cache", g.ChangesSince(graph.Mark{})))

	c := cache.NewRedisWorkspaceCache(tester.Redis(t), compress.NewNop())
	NewCacheSyncTask("@every 1m", s, c).Run()

	state, err := c.GetState(ctx, "ws-cache")
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Len(t, state.Blocks, 1)
	assert.Equal(t, "Message", state.Blocks[0].Title)
}
