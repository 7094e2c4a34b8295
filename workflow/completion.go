package workflow

import (
	"context"
	"fmt"

	"github.com/windlass-io/windlass/metrics"
	"github.com/windlass-io/windlass/remote"
	"github.com/windlass-io/windlass/types"
)

// DefaultScoreThreshold is the score below which the completion pipeline
// redirects into recommendation generation instead of aborting.
const DefaultScoreThreshold = 80

// Stage names of the assessment completion pipeline.
const (
	StageScore       = "score"
	StageNotify      = "dashboard-notify"
	StageGapClassify = "gap-classify"
	StageRecommend   = "recommend"
)

// KeyGaps is the context key holding the derived []types.Gap. Written by
// the gap-classify stage on both its success and below-threshold paths so
// the recommend stage can read it either way.
const KeyGaps = "gaps"

// Recommendation is a remediation suggestion derived from one gap.
type Recommendation struct {
	// AreaID is the business area the suggestion targets.
	AreaID string `json:"area_id"`
	// Severity mirrors the gap severity the suggestion was derived from.
	Severity types.GapSeverity `json:"severity"`
	// UnitIDs lists the units whose answers produced the gap.
	UnitIDs []string `json:"unit_ids"`
	// Summary is the user-facing suggestion text.
	Summary string `json:"summary"`
}

// CompletionInput carries the collaborators and inputs of one assessment
// completion run.
type CompletionInput struct {
	// Facade is the remote service boundary.
	Facade remote.Facade
	// Collector, when set, records side-effect metrics. Nil-safe.
	Collector *metrics.Collector
	// UnitID is the scored unit of assessment work.
	UnitID string
	// UserID is the dashboard notification recipient.
	UserID string
	// Answers are the recorded answers the gap derivation runs over.
	Answers []types.Answer
	// ScoreThreshold overrides DefaultScoreThreshold when > 0.
	ScoreThreshold int
}

// CompletionPipeline builds the assessment completion stage sequence:
//
//	score:            fetch the remote scoring verdict; abort on failure.
//	dashboard-notify: push the completion event; report and continue on
//	                  failure, the run never blocks on the dashboard.
//	gap-classify:     derive gap records from the answers. A score below
//	                  the threshold fails this stage; its fallback policy
//	                  redirects into recommend instead of aborting.
//	recommend:        turn the derived gaps into remediation suggestions.
func CompletionPipeline(in CompletionInput) []Stage {
	threshold := in.ScoreThreshold
	if threshold <= 0 {
		threshold = DefaultScoreThreshold
	}

	return []Stage{
		{
			Name:      StageScore,
			OnFailure: Abort(),
			Execute: func(ctx context.Context, wc *Context) (any, error) {
				result, err := in.Facade.AssessmentResult(ctx, in.UnitID)
				if err != nil {
					return nil, fmt.Errorf("fetch assessment result: %w", err)
				}
				return result, nil
			},
		},
		{
			Name:      StageNotify,
			OnFailure: ReportAndContinue(),
			Execute: func(ctx context.Context, wc *Context) (any, error) {
				result := scoreFrom(wc)
				payload := map[string]any{
					"event":      "assessment_completed",
					"unit_id":    in.UnitID,
					"score":      result.Score,
					"tier_level": result.TierLevel,
				}
				if err := in.Facade.DashboardNotify(ctx, in.UserID, payload); err != nil {
					in.Collector.IncNotifyFailure()
					return nil, fmt.Errorf("dashboard notify: %w", err)
				}
				return nil, nil
			},
		},
		{
			Name:      StageGapClassify,
			OnFailure: FallbackTo(StageRecommend),
			Execute: func(ctx context.Context, wc *Context) (any, error) {
				gaps := ClassifyGaps(in.Answers)
				if err := wc.Put(KeyGaps, gaps); err != nil {
					return nil, err
				}
				if result := scoreFrom(wc); result.Score < threshold {
					return nil, fmt.Errorf("score %d below threshold %d", result.Score, threshold)
				}
				return nil, nil
			},
		},
		{
			Name:      StageRecommend,
			OnFailure: Abort(),
			Execute: func(ctx context.Context, wc *Context) (any, error) {
				return Recommend(gapsFrom(wc)), nil
			},
		},
	}
}

// Recommend derives one remediation suggestion per gap, preserving gap order.
func Recommend(gaps []types.Gap) []Recommendation {
	recs := make([]Recommendation, 0, len(gaps))
	for _, gap := range gaps {
		summary := fmt.Sprintf("Review the %s area: %d unit(s) need attention.", gap.AreaID, len(gap.UnitIDs))
		if gap.Severity == types.GapSeverityHigh {
			summary = fmt.Sprintf("Seek guidance for the %s area: help was requested on %d unit(s).", gap.AreaID, len(gap.UnitIDs))
		}
		recs = append(recs, Recommendation{
			AreaID:   gap.AreaID,
			Severity: gap.Severity,
			UnitIDs:  gap.UnitIDs,
			Summary:  summary,
		})
	}
	return recs
}

// scoreFrom reads the score stage output. Stages after score only execute
// when it succeeded, so a missing value yields the zero result.
func scoreFrom(wc *Context) types.AssessmentResult {
	if v, ok := wc.Get(StageScore); ok {
		if result, ok := v.(types.AssessmentResult); ok {
			return result
		}
	}
	return types.AssessmentResult{}
}

func gapsFrom(wc *Context) []types.Gap {
	if v, ok := wc.Get(KeyGaps); ok {
		if gaps, ok := v.([]types.Gap); ok {
			return gaps
		}
	}
	return nil
}
