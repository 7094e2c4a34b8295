package workflow

import "github.com/windlass-io/windlass/types"

// ClassifyGaps derives per-area gap records from a set of answers.
//
// A unit contributes to its area's gap when it is unanswered or answered
// "need_help". Buckets are keyed by area; a bucket's severity is high if
// any contributing unit signaled need_help, medium otherwise. Gaps are
// returned in first-contribution order and unit IDs in answer order, so
// the derivation is deterministic for a given answer sequence.
func ClassifyGaps(answers []types.Answer) []types.Gap {
	byArea := make(map[string]*types.Gap)
	var order []string

	for _, answer := range answers {
		if answer.Answered() && !answer.NeedsHelp() {
			continue
		}

		areaID := answer.Unit.AreaID
		gap, ok := byArea[areaID]
		if !ok {
			gap = &types.Gap{AreaID: areaID, Severity: types.GapSeverityMedium}
			byArea[areaID] = gap
			order = append(order, areaID)
		}

		gap.UnitIDs = append(gap.UnitIDs, answer.Unit.ID)
		if answer.NeedsHelp() {
			gap.Severity = types.GapSeverityHigh
		}
	}

	gaps := make([]types.Gap, 0, len(order))
	for _, areaID := range order {
		gaps = append(gaps, *byArea[areaID])
	}
	return gaps
}
