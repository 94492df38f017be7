package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/emrgen/canvas/internal/cache"
	"github.com/emrgen/canvas/internal/config"
	"github.com/emrgen/canvas/internal/jobs"
	"github.com/emrgen/canvas/internal/service"
	"github.com/emrgen/canvas/internal/store"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Server exposes the workspace service over http.
type Server struct {
	svc    *service.WorkspaceService
	router *mux.Router
}

// NewServer creates a new server
func NewServer(svc *service.WorkspaceService) *Server {
	s := &Server{
		svc:    svc,
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Use(RequestTimeMiddleware, ActorMiddleware)

	v1.HandleFunc("/workspaces", s.handleListWorkspaces).Methods(http.MethodGet)
	v1.HandleFunc("/workspaces", s.handleCreateWorkspace).Methods(http.MethodPost)

	ws := v1.PathPrefix("/workspaces/{workspace}").Subrouter()
	ws.HandleFunc("", s.handleGetWorkspace).Methods(http.MethodGet)
	ws.HandleFunc("", s.handleDeleteWorkspace).Methods(http.MethodDelete)

	ws.HandleFunc("/blocks", s.handleListBlocks).Methods(http.MethodGet)
	ws.HandleFunc("/blocks", s.handleAddBlock).Methods(http.MethodPost)
	ws.HandleFunc("/blocks/status", s.handleSetStatus).Methods(http.MethodPost)
	ws.HandleFunc("/blocks/{block}", s.handleGetBlock).Methods(http.MethodGet)
	ws.HandleFunc("/blocks/{block}", s.handleUpdateBlock).Methods(http.MethodPatch)
	ws.HandleFunc("/blocks/{block}", s.handleRemoveBlock).Methods(http.MethodDelete)
	ws.HandleFunc("/blocks/{block}/position", s.handleMoveBlock).Methods(http.MethodPut)
	ws.HandleFunc("/blocks/{block}/transitions", s.handleTransitions).Methods(http.MethodGet)
	ws.HandleFunc("/blocks/{block}/publish", s.handlePublish).Methods(http.MethodPost)
	ws.HandleFunc("/blocks/{block}/usage", s.handleUsage).Methods(http.MethodGet)
	ws.HandleFunc("/blocks/{block}/comments", s.handleAddComment).Methods(http.MethodPost)
	ws.HandleFunc("/blocks/{block}/comments/{comment}/resolve", s.handleResolveComment).Methods(http.MethodPost)
	ws.HandleFunc("/blocks/{block}/revisions", s.handleListRevisions).Methods(http.MethodGet)
	ws.HandleFunc("/blocks/{block}/revisions", s.handleCreateRevision).Methods(http.MethodPost)
	ws.HandleFunc("/revisions/{revision}/restore", s.handleRestoreRevision).Methods(http.MethodPost)

	ws.HandleFunc("/selection", s.handleSelect).Methods(http.MethodPut)

	ws.HandleFunc("/relationships", s.handleListRelationships).Methods(http.MethodGet)
	ws.HandleFunc("/relationships", s.handleAddRelationship).Methods(http.MethodPost)
	ws.HandleFunc("/relationships/{relationship}", s.handleUpdateRelationship).Methods(http.MethodPatch)
	ws.HandleFunc("/relationships/{relationship}", s.handleRemoveRelationship).Methods(http.MethodDelete)

	ws.HandleFunc("/reviews", s.handleListReviews).Methods(http.MethodGet)
	ws.HandleFunc("/reviews", s.handleRequestReview).Methods(http.MethodPost)
	ws.HandleFunc("/reviews/{review}/start", s.handleStartReview).Methods(http.MethodPost)
	ws.HandleFunc("/reviews/{review}/complete", s.handleCompleteReview).Methods(http.MethodPost)
	ws.HandleFunc("/reviews/{review}/cancel", s.handleCancelReview).Methods(http.MethodPost)

	ws.HandleFunc("/snapshots", s.handleListSnapshots).Methods(http.MethodGet)
	ws.HandleFunc("/snapshots", s.handleCreateSnapshot).Methods(http.MethodPost)
	ws.HandleFunc("/snapshots/compare", s.handleCompareSnapshots).Methods(http.MethodGet)
	ws.HandleFunc("/snapshots/{snapshot}", s.handleGetSnapshot).Methods(http.MethodGet)
	ws.HandleFunc("/snapshots/{snapshot}/preview", s.handlePreviewSnapshot).Methods(http.MethodGet)
	ws.HandleFunc("/snapshots/{snapshot}/restore", s.handleRestoreSnapshot).Methods(http.MethodPost)

	ws.HandleFunc("/conflicts", s.handleListConflicts).Methods(http.MethodGet)
	ws.HandleFunc("/conflicts/{conflict}/resolve", s.handleResolveConflict).Methods(http.MethodPost)

	ws.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	ws.HandleFunc("/undo", s.handleUndo).Methods(http.MethodPost)
	ws.HandleFunc("/redo", s.handleRedo).Methods(http.MethodPost)

	ws.HandleFunc("/governance", s.handleGovernance).Methods(http.MethodGet)

	ws.HandleFunc("/presence", s.handlePeers).Methods(http.MethodGet)
	ws.HandleFunc("/presence", s.handleUpdatePresence).Methods(http.MethodPut)

	ws.HandleFunc("/operations", s.handleOperations).Methods(http.MethodGet)
	ws.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
}

// Start wires the configured stores, cache, relay and jobs, serves http and
// blocks until the process is signalled to stop.
func Start(cfg *config.Config) error {
	db := config.GetDb(cfg)

	codec, err := config.GetCodec(cfg)
	if err != nil {
		return err
	}

	workspaceStore := store.NewGormStore(db, codec)
	if err = workspaceStore.Migrate(); err != nil {
		return err
	}

	rdb := config.GetRedis(cfg)
	var workspaceCache cache.WorkspaceCache = cache.NewNop()
	if cfg.Cache && rdb != nil {
		workspaceCache = cache.NewRedisWorkspaceCache(rdb, codec)
		logrus.Infof("workspace cache enabled on %s", cfg.RedisAddr)
	}

	rel, err := config.GetRelay(cfg, rdb)
	if err != nil {
		return err
	}

	svc := service.NewWorkspaceService(workspaceStore, workspaceCache, rel, service.Options{
		HistoryLimit:      cfg.HistoryLimit,
		OperationLogLimit: cfg.OperationLogLimit,
	})

	var longJobs []jobs.Job
	if cfg.AutoSnapshotInterval > 0 {
		longJobs = append(longJobs, jobs.NewAutoSnapshotter(cfg.AutoSnapshotInterval, svc))
	}
	cronJobs := []jobs.CronJob{
		jobs.NewGovernanceTask(cfg.GovernanceCron, svc),
		jobs.NewSnapshotRetentionTask(cfg.RetentionCron, cfg.SnapshotRetention, svc),
	}
	if cfg.Cache && rdb != nil {
		cronJobs = append(cronJobs, jobs.NewCacheSyncTask(cfg.CacheSyncCron, workspaceStore, workspaceCache))
	}
	executor := jobs.NewTaskExecutor(longJobs, cronJobs)
	if err = executor.Run(); err != nil {
		return err
	}

	httpPort := ":" + cfg.HTTPPort
	rl, err := net.Listen("tcp", httpPort)
	if err != nil {
		return err
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "PUT", "PATCH"},
		AllowedHeaders:   []string{"Content-Type", actorIDHeader, actorNameHeader},
		AllowCredentials: true,
	})

	restServer := &http.Server{
		Addr:    httpPort,
		Handler: c.Handler(NewServer(svc)),
	}

	// make sure to wait for the server to stop before exiting
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("starting http server on: ", httpPort)
		if err := restServer.Serve(rl); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("error starting http server: %v", err)
			}
		}
		logrus.Infof("http server stopped")
	}()

	time.Sleep(1 * time.Second)
	logrus.Infof("Press Ctrl+C to stop the server")

	// listen for interrupt signal to gracefully shut down the server
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT, unix.SIGTSTP)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = restServer.Shutdown(ctx); err != nil {
		logrus.Errorf("error stopping http server: %v", err)
	}
	wg.Wait()

	executor.Stop()
	svc.Close()
	if err = rel.Close(); err != nil {
		logrus.Errorf("error closing relay: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	return nil
}
