package wykoj

import "testing"

func TestJudgeReportValidate(t *testing.T) {
	cases := []JudgeCaseResult{
		{Subtask: 1, TestCase: 1, Verdict: VerdictAccepted, Score: dec("100")},
	}

	tests := map[string]struct {
		report  JudgeReport
		wantErr bool
	}{
		"results only":          {JudgeReport{TestCaseResults: cases}, false},
		"bare ce":               {JudgeReport{Verdict: VerdictCompilationError}, false},
		"bare se":               {JudgeReport{Verdict: VerdictSystemError}, false},
		"bare wa":               {JudgeReport{Verdict: VerdictWrongAnswer}, true},
		"bare pending":          {JudgeReport{Verdict: VerdictPending}, true},
		"both set":              {JudgeReport{Verdict: VerdictCompilationError, TestCaseResults: cases}, true},
		"empty":                 {JudgeReport{}, true},
		"pending case verdict":  {JudgeReport{TestCaseResults: []JudgeCaseResult{{Subtask: 1, TestCase: 1, Verdict: VerdictPending}}}, true},
		"unknown case verdict":  {JudgeReport{TestCaseResults: []JudgeCaseResult{{Subtask: 1, TestCase: 1, Verdict: "xx"}}}, true},
		"zero subtask":          {JudgeReport{TestCaseResults: []JudgeCaseResult{{Subtask: 0, TestCase: 1, Verdict: VerdictAccepted}}}, true},
		"zero test case number": {JudgeReport{TestCaseResults: []JudgeCaseResult{{Subtask: 1, TestCase: 0, Verdict: VerdictAccepted}}}, true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.report.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}
