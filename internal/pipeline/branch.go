package pipeline

import "github.com/sells-group/lead-router/internal/model"

// Score thresholds for the branch decision.
const (
	RouteThreshold   = 0.7
	NurtureThreshold = 0.4
)

// Branch picks the stage that follows score and records the decided path.
// Only the first decision sticks.
//
// TODO: owner is only assigned by the route stage, so the route branch cannot
// be taken from a fresh lead. Gate on score alone once product confirms
// qualifying leads should always be routed.
func Branch(l *model.Lead) string {
	switch {
	case l.Score >= RouteThreshold && l.Owner != nil:
		l.DecidePath(model.PathRoute)
		return NodeRoute
	case l.Score < NurtureThreshold:
		l.DecidePath(model.PathNurture)
		return NodeNurture
	default:
		l.DecidePath(model.PathManualReview)
		return NodeSummarize
	}
}
