// Package types defines the shared domain model for windlass.
//
// It is a leaf package: no internal dependencies, importable from anywhere.
package types

// AnswerValue is the recorded response for one assessment unit.
type AnswerValue string

// Answer value constants.
const (
	// AnswerCompliant marks a unit the respondent handles adequately.
	AnswerCompliant AnswerValue = "compliant"
	// AnswerNeedHelp marks a unit the respondent flagged for assistance.
	AnswerNeedHelp AnswerValue = "need_help"
	// AnswerNotApplicable marks a unit outside the respondent's scope.
	AnswerNotApplicable AnswerValue = "not_applicable"
)

// AssessmentUnit is one answerable unit of assessment work, owned by a
// business area.
type AssessmentUnit struct {
	// ID is the unit identifier (e.g. "q3_2").
	ID string `json:"id"`
	// AreaID is the owning business area (e.g. "finance").
	AreaID string `json:"area_id"`
}

// Answer pairs a unit with its recorded value.
// A nil Value means the unit was left unanswered.
type Answer struct {
	Unit  AssessmentUnit `json:"unit"`
	Value *AnswerValue   `json:"value,omitempty"`
}

// Answered reports whether the unit has a recorded value.
func (a Answer) Answered() bool {
	return a.Value != nil
}

// NeedsHelp reports whether the recorded value signals "need help".
func (a Answer) NeedsHelp() bool {
	return a.Value != nil && *a.Value == AnswerNeedHelp
}

// GapSeverity classifies a derived gap.
type GapSeverity string

// Gap severity constants. High wins over medium within a bucket.
const (
	GapSeverityMedium GapSeverity = "medium"
	GapSeverityHigh   GapSeverity = "high"
)

// Gap is a derived deficiency record for one business area, aggregated
// from unanswered or help-flagged assessment units.
type Gap struct {
	// AreaID is the business area the gap belongs to.
	AreaID string `json:"area_id"`
	// Severity is high if any contributing unit signaled need_help,
	// medium otherwise.
	Severity GapSeverity `json:"severity"`
	// UnitIDs lists every contributing unit, in contribution order.
	UnitIDs []string `json:"unit_ids"`
}

// AssessmentResult is the remote scoring verdict for a completed unit of
// assessment work.
type AssessmentResult struct {
	// Score is the computed score in [0, 100].
	Score int `json:"score"`
	// AreaID is the business area the score applies to.
	AreaID string `json:"area_id"`
	// TierLevel is the remote-assigned maturity tier.
	TierLevel int `json:"tier_level"`
}
