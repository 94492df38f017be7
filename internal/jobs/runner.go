package jobs

import (
	"context"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// Workspaces is the access the jobs need to stored workspaces. Update runs f
// against the live graph of a workspace and persists it when f reports a
// change.
type Workspaces interface {
	ListWorkspaces(ctx context.Context) ([]*model.Workspace, error)
	Update(ctx context.Context, workspaceID string, f func(g *graph.Store) (bool, error)) error
}

type Job interface {
	Run()
}

type CronJob interface {
	Schedule() string
	Job
}

// Stopper is a long running job that can be asked to return.
type Stopper interface {
	Stop()
}

type TaskExecutor struct {
	cron            *cron.Cron
	jobs            []Job
	cronJobs        []CronJob
	runningCronJobs mapset.Set[CronJob]
	muCronJobs      sync.Mutex
	wg              sync.WaitGroup
}

func NewTaskExecutor(jobs []Job, cronJobs []CronJob) *TaskExecutor {
	return &TaskExecutor{
		cron:            cron.New(),
		jobs:            jobs,
		cronJobs:        cronJobs,
		runningCronJobs: mapset.NewThreadUnsafeSet[CronJob](),
	}
}

// Run schedules the cron jobs and starts every other job in its own
// goroutine. A cron job that is still running when its next tick fires skips
// that tick.
func (t *TaskExecutor) Run() error {
	for _, job := range t.cronJobs {
		err := t.cron.AddFunc(job.Schedule(), func() {
			if !t.claim(job) {
				logrus.Warnf("task %T is already running", job)
				return
			}
			defer t.release(job)

			job.Run()
		})

		if err != nil {
			logrus.Errorf("failed to add task to cron: %v", err)
			return err
		}
	}

	for _, job := range t.jobs {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			job.Run()
		}()
	}

	t.cron.Start()
	return nil
}

func (t *TaskExecutor) claim(job CronJob) bool {
	t.muCronJobs.Lock()
	defer t.muCronJobs.Unlock()

	if t.runningCronJobs.Contains(job) {
		return false
	}
	t.runningCronJobs.Add(job)
	return true
}

func (t *TaskExecutor) release(job CronJob) {
	t.muCronJobs.Lock()
	defer t.muCronJobs.Unlock()
	t.runningCronJobs.Remove(job)
}

// Stop stops the cron and waits for the long running jobs to return.
func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
	for _, job := range t.jobs {
		if s, ok := job.(Stopper); ok {
			s.Stop()
		}
	}
	t.wg.Wait()
}
