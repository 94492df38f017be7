package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/relay"
	"github.com/emrgen/canvas/internal/review"
	"github.com/emrgen/canvas/internal/revision"
	"github.com/emrgen/canvas/internal/service"
	"github.com/emrgen/canvas/internal/snapshot"
	"github.com/gorilla/mux"
)

type historyResponse struct {
	Entries []string `json:"entries"`
	CanUndo bool     `json:"canUndo"`
	CanRedo bool     `json:"canRedo"`
	Undone  string   `json:"undone,omitempty"`
	Redone  string   `json:"redone,omitempty"`
}

type countResponse struct {
	Changed int `json:"changed"`
}

type revisionRequest struct {
	Comment string `json:"comment,omitempty"`
}

type selectRequest struct {
	BlockIDs []string `json:"blockIds"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	sess, err := s.svc.Open(r.Context(), mux.Vars(r)["workspace"])
	if err != nil {
		respondErr(w, err)
		return nil, false
	}
	return sess, true
}

// do runs f against the workspace of the request as the request actor and
// writes payload on success.
func (s *Server) do(w http.ResponseWriter, r *http.Request, status int, f func(g *graph.Store) (any, error)) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var payload any
	err := sess.Do(r.Context(), actorFrom(r.Context()), func(g *graph.Store) error {
		var err error
		payload, err = f(g)
		return err
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, status, payload)
}

// view runs f against the workspace of the request without changing it.
func (s *Server) view(w http.ResponseWriter, r *http.Request, f func(g *graph.Store) (any, error)) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var (
		payload any
		ferr    error
	)
	if err := sess.View(func(g *graph.Store) { payload, ferr = f(g) }); err != nil {
		respondErr(w, err)
		return
	}
	if ferr != nil {
		respondErr(w, ferr)
		return
	}
	respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req service.CreateWorkspaceRequest
	if !decode(w, r, &req) {
		return
	}
	ws, err := s.svc.CreateWorkspace(r.Context(), &req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := s.svc.ListWorkspaces(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, workspaces)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.svc.GetWorkspace(r.Context(), mux.Vars(r)["workspace"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ws)
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteWorkspace(r.Context(), mux.Vars(r)["workspace"]); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func splitQuery(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := graph.BlockFilter{
		Tags:    splitQuery(r, "tag"),
		Company: q.Get("company"),
		OwnerID: q.Get("owner"),
		Query:   q.Get("q"),
	}
	for _, t := range splitQuery(r, "type") {
		filter.Types = append(filter.Types, model.BlockType(t))
	}
	for _, st := range splitQuery(r, "status") {
		filter.Statuses = append(filter.Statuses, model.Status(st))
	}

	s.view(w, r, func(g *graph.Store) (any, error) {
		blocks := g.Filter(filter)
		if blocks == nil {
			blocks = []*model.Block{}
		}
		return blocks, nil
	})
}

func (s *Server) handleAddBlock(w http.ResponseWriter, r *http.Request) {
	var req service.AddBlockRequest
	if !decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	b, err := sess.AddBlock(r.Context(), actorFrom(r.Context()), &req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Store) (any, error) {
		return g.Block(mux.Vars(r)["block"])
	})
}

func (s *Server) handleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateBlockRequest
	if !decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	b, err := sess.UpdateBlock(r.Context(), actorFrom(r.Context()), mux.Vars(r)["block"], &req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleMoveBlock(w http.ResponseWriter, r *http.Request) {
	var pos model.Position
	if !decode(w, r, &pos) {
		return
	}
	s.do(w, r, http.StatusOK, func(g *graph.Store) (any, error) {
		return g.MoveBlock(mux.Vars(r)["block"], pos)
	})
}

func (s *Server) handleRemoveBlock(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusNoContent, func(g *graph.Store) (any, error) {
		return nil, g.RemoveBlock(mux.Vars(r)["block"])
	})
}

func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Store) (any, error) {
		return g.AvailableTransitions(mux.Vars(r)["block"])
	})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusOK, func(g *graph.Store) (any, error) {
		return g.Publish(mux.Vars(r)["block"])
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Store) (any, error) {
		return g.UsageOf(mux.Vars(r)["block"])
	})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req service.StatusRequest
	if !decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	n, err := sess.SetStatus(r.Context(), actorFrom(r.Context()), &req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, countResponse{Changed: n})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	s.view(w, r, func(g *graph.Store) (any, error) {
		return g.Select(req.BlockIDs...), nil
	})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req service.CommentRequest
	if !decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	c, err := sess.AddComment(r.Context(), actorFrom(r.Context()), mux.Vars(r)["block"], &req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (s *Server) handleResolveComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.do(w, r, http.StatusNoContent, func(g *graph.Store) (any, error) {
		return nil, g.ResolveComment(vars["block"], vars["comment"])
	})
}

func (s *Server) handleListRelationships(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Store) (any, error) {
		rels := g.Relationships()
		if rels == nil {
			rels = []*model.Relationship{}
		}
		return rels, nil
	})
}

func (s *Server) handleAddRelationship(w http.ResponseWriter, r *http.Request) {
	var req service.AddRelationshipRequest
	if !decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rel, err := sess.AddRelationship(r.Context(), actorFrom(r.Context()), &req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rel)
}

func (s *Server) handleUpdateRelationship(w http.ResponseWriter, r *http.Request) {
	var patch struct {
		Type     *model.RelationshipType `json:"type,omitempty"`
		Label    *string                 `json:"label,omitempty"`
		Animated *bool                   `json:"animated,omitempty"`
	}
	if !decode(w, r, &patch) {
		return
	}
	s.do(w, r, http.StatusOK, func(g *graph.Store) (any, error) {
		return g.UpdateRelationship(mux.Vars(r)["relationship"], graph.RelationshipPatch{
			Type:     patch.Type,
			Label:    patch.Label,
			Animated: patch.Animated,
		})
	})
}

func (s *Server) handleRemoveRelationship(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusNoContent, func(g *graph.Store) (any, error) {
		return nil, g.RemoveRelationship(mux.Vars(r)["relationship"])
	})
}

func (s *Server) handleCreateRevision(w http.ResponseWriter, r *http.Request) {
	var req revisionRequest
	if !decode(w, r, &req) {
		return
	}
	s.do(w, r, http.StatusCreated, func(g *graph.Store) (any, error) {
		return g.CreateRevision(mux.Vars(r)["block"], req.Comment)
	})
}

func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Store) (any, error) {
		revs := g.Revisions(mux.Vars(r)["block"])
		if revs == nil {
			revs = []*revision.Revision{}
		}
		return revs, nil
	})
}

func (s *Server) handleRestoreRevision(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusOK, func(g *graph.Store) (any, error) {
		return g.RestoreRevision(mux.Vars(r)["revision"])
	})
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.view(w, r, func(g *graph.Store) (any, error) {
		var reqs []*review.Request
		switch {
		case q.Get("overdue") == "true":
			reqs = g.OverdueReviews()
		case q.Get("reviewer") != "":
			reqs = g.ReviewsFor(q.Get("reviewer"))
		case q.Get("requester") != "":
			reqs = g.ReviewsBy(q.Get("requester"))
		default:
			reqs = g.Reviews()
		}
		if reqs == nil {
			reqs = []*review.Request{}
		}
		return reqs, nil
	})
}

func (s *Server) handleRequestReview(w http.ResponseWriter, r *http.Request) {
	var req service.RequestReviewRequest
	if !decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rev, err := sess.RequestReview(r.Context(), actorFrom(r.Context()), &req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rev)
}

func (s *Server) handleStartReview(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusOK, func(g *graph.Store) (any, error) {
		return g.StartReview(mux.Vars(r)["review"])
	})
}

func (s *Server) handleCompleteReview(w http.ResponseWriter, r *http.Request) {
	var req service.CompleteReviewRequest
	if !decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rev, err := sess.CompleteReview(r.Context(), actorFrom(r.Context()), mux.Vars(r)["review"], &req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rev)
}

func (s *Server) handleCancelReview(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusOK, func(g *graph.Store) (any, error) {
		return g.CancelReview(mux.Vars(r)["review"])
	})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Store) (any, error) {
		snaps := g.Snapshots()
		if snaps == nil {
			snaps = []*snapshot.Snapshot{}
		}
		return snaps, nil
	})
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req service.SnapshotRequest
	if !decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, err := sess.CreateSnapshot(r.Context(), actorFrom(r.Context()), &req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Store) (any, error) {
		return g.Snapshot(mux.Vars(r)["snapshot"])
	})
}

func (s *Server) handleCompareSnapshots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.view(w, r, func(g *graph.Store) (any, error) {
		return g.CompareSnapshots(q.Get("from"), q.Get("to"))
	})
}

func (s *Server) handlePreviewSnapshot(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Store) (any, error) {
		return g.PreviewSnapshotRestore(mux.Vars(r)["snapshot"])
	})
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusOK, func(g *graph.Store) (any, error) {
		return g.RestoreSnapshot(mux.Vars(r)["snapshot"])
	})
}

func (s *Server) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true"
	s.view(w, r, func(g *graph.Store) (any, error) {
		var out []*conflict.Conflict
		if all {
			out = g.AllConflicts()
		} else {
			out = g.Conflicts()
		}
		if out == nil {
			out = []*conflict.Conflict{}
		}
		return out, nil
	})
}

func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req service.ResolveConflictRequest
	if !decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	c, err := sess.ResolveConflict(r.Context(), actorFrom(r.Context()), mux.Vars(r)["conflict"], &req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func history(g *graph.Store) historyResponse {
	return historyResponse{
		Entries: g.HistoryDescriptions(),
		CanUndo: g.CanUndo(),
		CanRedo: g.CanRedo(),
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Store) (any, error) {
		return history(g), nil
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusOK, func(g *graph.Store) (any, error) {
		undone, err := g.Undo()
		if err != nil {
			return nil, err
		}
		res := history(g)
		res.Undone = undone
		return res, nil
	})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.do(w, r, http.StatusOK, func(g *graph.Store) (any, error) {
		redone, err := g.Redo()
		if err != nil {
			return nil, err
		}
		res := history(g)
		res.Redone = redone
		return res, nil
	})
}

func (s *Server) handleGovernance(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(g *graph.Store) (any, error) {
		recs := g.Governance(time.Now())
		if recs == nil {
			recs = []graph.Recommendation{}
		}
		return recs, nil
	})
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.Peers())
}

func (s *Server) handleUpdatePresence(w http.ResponseWriter, r *http.Request) {
	var p relay.Presence
	if !decode(w, r, &p) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.UpdatePresence(r.Context(), actorFrom(r.Context()), p); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
