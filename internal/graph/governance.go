package graph

import (
	"fmt"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/canvas/internal/model"
)

const (
	// StaleAfter is how long a block may go without an update before it is stale.
	StaleAfter = 90 * 24 * time.Hour
	// ReviewBacklogAfter is how long a block may wait in pending-review.
	ReviewBacklogAfter = 7 * 24 * time.Hour
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityInfo:     2,
}

type RecommendationKind string

const (
	KindBrokenLink     RecommendationKind = "broken-link"
	KindDanglingParent RecommendationKind = "dangling-parent"
	KindReviewBacklog  RecommendationKind = "review-backlog"
	KindStale          RecommendationKind = "stale"
	KindOrphaned       RecommendationKind = "orphaned"
)

// Recommendation is one governance finding.
type Recommendation struct {
	Kind           RecommendationKind `json:"kind"`
	Severity       Severity           `json:"severity"`
	BlockID        string             `json:"blockId,omitempty"`
	RelationshipID string             `json:"relationshipId,omitempty"`
	Message        string             `json:"message"`
}

// Governance scans the workspace for stale blocks, review backlog, orphans,
// broken relationship links and dangling parents. Results are ordered
// critical, warning, info.
func (s *Store) Governance(now time.Time) []Recommendation {
	ids := mapset.NewThreadUnsafeSetWithSize[string](len(s.blocks))
	for _, b := range s.blocks {
		ids.Add(b.ID)
	}

	connected := mapset.NewThreadUnsafeSet[string]()
	var recs []Recommendation

	for _, r := range s.relationships {
		connected.Add(r.SourceID)
		connected.Add(r.TargetID)
		for _, end := range []string{r.SourceID, r.TargetID} {
			if !ids.Contains(end) {
				recs = append(recs, Recommendation{
					Kind:           KindBrokenLink,
					Severity:       SeverityCritical,
					RelationshipID: r.ID,
					Message:        fmt.Sprintf("relationship %s points to missing block %s", r.ID, end),
				})
			}
		}
	}

	parents := mapset.NewThreadUnsafeSet[string]()
	for _, b := range s.blocks {
		if b.ParentID != "" {
			parents.Add(b.ParentID)
		}
	}

	for _, b := range s.blocks {
		if b.ParentID != "" && !ids.Contains(b.ParentID) {
			recs = append(recs, Recommendation{
				Kind:     KindDanglingParent,
				Severity: SeverityWarning,
				BlockID:  b.ID,
				Message:  fmt.Sprintf("%q refers to missing parent %s", b.Title, b.ParentID),
			})
		}

		if b.Status == model.StatusPendingReview {
			submitted := b.UpdatedAt
			if b.SubmittedForReviewAt != nil {
				submitted = *b.SubmittedForReviewAt
			}
			if waiting := now.Sub(submitted); waiting > ReviewBacklogAfter {
				recs = append(recs, Recommendation{
					Kind:     KindReviewBacklog,
					Severity: SeverityWarning,
					BlockID:  b.ID,
					Message:  fmt.Sprintf("%q has waited %d days for review", b.Title, int(waiting.Hours()/24)),
				})
			}
		}

		if idle := now.Sub(b.UpdatedAt); idle > StaleAfter && b.Status != model.StatusArchived {
			recs = append(recs, Recommendation{
				Kind:     KindStale,
				Severity: SeverityInfo,
				BlockID:  b.ID,
				Message:  fmt.Sprintf("%q has not been updated for %d days", b.Title, int(idle.Hours()/24)),
			})
		}

		if !connected.Contains(b.ID) && b.ParentID == "" && !parents.Contains(b.ID) {
			recs = append(recs, Recommendation{
				Kind:     KindOrphaned,
				Severity: SeverityInfo,
				BlockID:  b.ID,
				Message:  fmt.Sprintf("%q has no relationships, parent or children", b.Title),
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return severityRank[recs[i].Severity] < severityRank[recs[j].Severity]
	})
	return recs
}
