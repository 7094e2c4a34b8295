package workflow

import (
	"testing"

	"github.com/windlass-io/windlass/types"
)

func answer(id, areaID string, value *types.AnswerValue) types.Answer {
	return types.Answer{
		Unit:  types.AssessmentUnit{ID: id, AreaID: areaID},
		Value: value,
	}
}

func val(v types.AnswerValue) *types.AnswerValue {
	return &v
}

func TestClassifyGaps_BucketsByArea(t *testing.T) {
	answers := []types.Answer{
		answer("q1_1", "area1", nil),
		answer("q1_2", "area1", val(types.AnswerNeedHelp)),
		answer("q2_1", "area2", val(types.AnswerCompliant)),
	}

	gaps := ClassifyGaps(answers)
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d: %+v", len(gaps), gaps)
	}

	gap := gaps[0]
	if gap.AreaID != "area1" {
		t.Errorf("expected area1, got %s", gap.AreaID)
	}
	if gap.Severity != types.GapSeverityHigh {
		t.Errorf("need_help contribution must raise severity to high, got %s", gap.Severity)
	}
	if len(gap.UnitIDs) != 2 || gap.UnitIDs[0] != "q1_1" || gap.UnitIDs[1] != "q1_2" {
		t.Errorf("expected [q1_1 q1_2], got %v", gap.UnitIDs)
	}
}

func TestClassifyGaps_UnansweredOnlyIsMedium(t *testing.T) {
	answers := []types.Answer{
		answer("q1_1", "area1", nil),
		answer("q1_2", "area1", nil),
	}

	gaps := ClassifyGaps(answers)
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}
	if gaps[0].Severity != types.GapSeverityMedium {
		t.Errorf("expected medium severity, got %s", gaps[0].Severity)
	}
}

func TestClassifyGaps_CompliantAndNotApplicableDoNotContribute(t *testing.T) {
	answers := []types.Answer{
		answer("q1_1", "area1", val(types.AnswerCompliant)),
		answer("q1_2", "area1", val(types.AnswerNotApplicable)),
		answer("q2_1", "area2", val(types.AnswerCompliant)),
	}

	if gaps := ClassifyGaps(answers); len(gaps) != 0 {
		t.Errorf("expected no gaps, got %+v", gaps)
	}
}

func TestClassifyGaps_MultipleAreasInContributionOrder(t *testing.T) {
	answers := []types.Answer{
		answer("q3_1", "area3", val(types.AnswerNeedHelp)),
		answer("q1_1", "area1", nil),
		answer("q3_2", "area3", nil),
		answer("q2_1", "area2", val(types.AnswerCompliant)),
	}

	gaps := ClassifyGaps(answers)
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %d", len(gaps))
	}
	if gaps[0].AreaID != "area3" || gaps[1].AreaID != "area1" {
		t.Errorf("expected first-contribution order [area3 area1], got [%s %s]", gaps[0].AreaID, gaps[1].AreaID)
	}
	if gaps[0].Severity != types.GapSeverityHigh {
		t.Errorf("area3 has a need_help unit, expected high, got %s", gaps[0].Severity)
	}
	if gaps[1].Severity != types.GapSeverityMedium {
		t.Errorf("area1 only has an unanswered unit, expected medium, got %s", gaps[1].Severity)
	}
	if len(gaps[0].UnitIDs) != 2 || gaps[0].UnitIDs[0] != "q3_1" || gaps[0].UnitIDs[1] != "q3_2" {
		t.Errorf("expected area3 units [q3_1 q3_2], got %v", gaps[0].UnitIDs)
	}
}

func TestClassifyGaps_EmptyAnswers(t *testing.T) {
	if gaps := ClassifyGaps(nil); len(gaps) != 0 {
		t.Errorf("expected no gaps for empty input, got %+v", gaps)
	}
}
