package dto

import "time"

// Activity event kinds, one per scanned record family.
const (
	ActivityKindFeedback      = "feedback"
	ActivityKindIteration     = "iteration"
	ActivityKindFileIteration = "file_iteration"
	ActivityKindRubric        = "rubric_evaluation"
	ActivityKindStatusChange  = "status_change"
	ActivityKindComment       = "comment"
)

// ActivityEvent describes one child record newer than the watermark. The
// CorrelatesTo identifier is opaque to this core; callers use it to
// deep-link into a rendered timeline.
type ActivityEvent struct {
	Kind         string    `json:"kind"`
	Timestamp    time.Time `json:"timestamp"`
	ActorID      uint      `json:"actor_id"`
	Summary      string    `json:"summary"`
	CorrelatesTo string    `json:"correlates_to"`
}

// ActivityReportResponse is the on-demand staleness report for a submission.
type ActivityReportResponse struct {
	SubmissionID        uint            `json:"submission_id"`
	Watermark           time.Time       `json:"watermark"`
	Events              []ActivityEvent `json:"events"`
	NeedsReverification bool            `json:"needs_reverification"`
	CacheHit            bool            `json:"cache_hit,omitempty"`
}
