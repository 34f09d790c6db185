package grader

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/wykstemteam/wykoj"
)

var oneHundred = decimal.NewFromInt(100)

// judgedOutcome is what the raw per-case results fold down to.
type judgedOutcome struct {
	Verdict wykoj.Verdict
	Score   decimal.Decimal

	// SubtaskScores is set only for batched grading: the weighted score of
	// each subtask, in subtask order.
	SubtaskScores []decimal.Decimal

	// MaxTime (seconds) and MaxMemory (kilobytes) are the worst case across
	// all test cases. Persisted only for accepted submissions.
	MaxTime   float64
	MaxMemory int
}

// aggregate folds the backend's per-case results into a submission outcome.
// Results are sorted by (subtask, test case) first, so the outcome does not
// depend on the order the backend ran or reported them in.
//
// Plain grading scores the mean of all case scores. Batched grading scores
// each subtask as its minimum case score weighted by the subtask's point
// value; the weights sum to 100, so a full solve still scores 100.
func aggregate(results []wykoj.JudgeCaseResult, cfg *wykoj.TestConfig) (judgedOutcome, error) {
	if len(results) == 0 {
		return judgedOutcome{}, wykoj.Statusf(400, "No test case results to aggregate")
	}

	sorted := make([]wykoj.JudgeCaseResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Subtask != sorted[j].Subtask {
			return sorted[i].Subtask < sorted[j].Subtask
		}
		return sorted[i].TestCase < sorted[j].TestCase
	})

	outcome := judgedOutcome{Verdict: wykoj.VerdictAccepted}
	for _, r := range sorted {
		outcome.Verdict = wykoj.CombineVerdicts(outcome.Verdict, r.Verdict)
		if r.TimeUsed > outcome.MaxTime {
			outcome.MaxTime = r.TimeUsed
		}
		if r.MemoryUsed > outcome.MaxMemory {
			outcome.MaxMemory = r.MemoryUsed
		}
	}

	if cfg.Batched() {
		scores, err := batchedScores(sorted, cfg.Points)
		if err != nil {
			return judgedOutcome{}, err
		}
		outcome.SubtaskScores = scores
		total := decimal.Zero
		for _, s := range scores {
			total = total.Add(s)
		}
		outcome.Score = total.Round(wykoj.ScorePrecision)
		return outcome, nil
	}

	total := decimal.Zero
	for _, r := range sorted {
		total = total.Add(r.Score)
	}
	outcome.Score = total.Div(decimal.NewFromInt(int64(len(sorted)))).Round(wykoj.ScorePrecision)
	return outcome, nil
}

// batchedScores computes each subtask's weighted score: the minimum case
// score within the subtask, scaled by the subtask's weight over 100. A
// subtask with no reported cases scores zero.
func batchedScores(sorted []wykoj.JudgeCaseResult, points []int) ([]decimal.Decimal, error) {
	mins := make([]*decimal.Decimal, len(points))
	for _, r := range sorted {
		if r.Subtask > len(points) {
			return nil, wykoj.Statusf(400, "Result references subtask %d, config only has %d", r.Subtask, len(points))
		}
		idx := r.Subtask - 1
		if mins[idx] == nil || r.Score.LessThan(*mins[idx]) {
			score := r.Score
			mins[idx] = &score
		}
	}

	scores := make([]decimal.Decimal, len(points))
	for i, m := range mins {
		if m == nil {
			scores[i] = decimal.Zero
			continue
		}
		weight := decimal.NewFromInt(int64(points[i])).Div(oneHundred)
		scores[i] = m.Mul(weight).Round(wykoj.ScorePrecision)
	}
	return scores, nil
}
