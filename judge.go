package wykoj

import "github.com/shopspring/decimal"

// JudgeReport is the result payload of one judged submission, either
// produced synchronously by the judge backend's reply or delivered later on
// the report endpoint. Exactly one of Verdict and TestCaseResults is set: a
// bare verdict (only Compilation Error or System Error are legal) short
// circuits scoring entirely.
type JudgeReport struct {
	Verdict Verdict `json:"verdict,omitempty"`

	TestCaseResults []JudgeCaseResult `json:"test_case_results,omitempty"`
}

// JudgeCaseResult is the backend's raw outcome for one test case.
type JudgeCaseResult struct {
	Subtask  int `json:"subtask"`
	TestCase int `json:"test_case"`

	Verdict    Verdict         `json:"verdict"`
	Score      decimal.Decimal `json:"score"`
	TimeUsed   float64         `json:"time_used"`   // seconds
	MemoryUsed int             `json:"memory_used"` // kilobytes
}

// Validate rejects payloads that could corrupt a submission: unknown
// verdicts, bare verdicts other than ce/se, or an empty result list.
func (r *JudgeReport) Validate() error {
	if r.Verdict != VerdictNone {
		if len(r.TestCaseResults) > 0 {
			return Statusf(400, "Report cannot carry both a bare verdict and test case results")
		}
		if r.Verdict != VerdictCompilationError && r.Verdict != VerdictSystemError {
			return Statusf(400, "Bare report verdict must be %q or %q", VerdictCompilationError, VerdictSystemError)
		}
		return nil
	}
	if len(r.TestCaseResults) == 0 {
		return Statusf(400, "Report carries no results")
	}
	for _, result := range r.TestCaseResults {
		if !result.Verdict.Terminal() {
			return Statusf(400, "Invalid test case verdict %q", result.Verdict)
		}
		if result.Subtask < 1 || result.TestCase < 1 {
			return Statusf(400, "Invalid test case reference %d.%d", result.Subtask, result.TestCase)
		}
	}
	return nil
}
