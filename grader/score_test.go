package grader

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wykstemteam/wykoj"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func caseResult(subtask, testCase int, verdict wykoj.Verdict, score string, timeUsed float64, memoryUsed int) wykoj.JudgeCaseResult {
	return wykoj.JudgeCaseResult{
		Subtask: subtask, TestCase: testCase,
		Verdict: verdict, Score: dec(score),
		TimeUsed: timeUsed, MemoryUsed: memoryUsed,
	}
}

var plainConfig = &wykoj.TestConfig{Mode: wykoj.GradingPlain}

func TestAggregatePlain(t *testing.T) {
	t.Run("full solve", func(t *testing.T) {
		results := []wykoj.JudgeCaseResult{
			caseResult(1, 1, wykoj.VerdictAccepted, "100", 0.1, 1000),
			caseResult(1, 2, wykoj.VerdictAccepted, "100", 0.4, 2500),
			caseResult(2, 1, wykoj.VerdictAccepted, "100", 0.2, 1200),
		}
		out, err := aggregate(results, plainConfig)
		if err != nil {
			t.Fatal(err)
		}
		if out.Verdict != wykoj.VerdictAccepted {
			t.Fatalf("verdict = %q", out.Verdict)
		}
		if !out.Score.Equal(dec("100")) {
			t.Fatalf("score = %v", out.Score)
		}
		if out.SubtaskScores != nil {
			t.Fatalf("plain grading must not produce subtask scores")
		}
		if out.MaxTime != 0.4 || out.MaxMemory != 2500 {
			t.Fatalf("resource maxima = %v / %v", out.MaxTime, out.MaxMemory)
		}
	})

	t.Run("single wrong answer", func(t *testing.T) {
		results := []wykoj.JudgeCaseResult{
			caseResult(1, 1, wykoj.VerdictAccepted, "100", 0.1, 100),
			caseResult(1, 2, wykoj.VerdictWrongAnswer, "0", 0.1, 100),
			caseResult(1, 3, wykoj.VerdictAccepted, "100", 0.1, 100),
			caseResult(1, 4, wykoj.VerdictAccepted, "100", 0.1, 100),
		}
		out, err := aggregate(results, plainConfig)
		if err != nil {
			t.Fatal(err)
		}
		if out.Verdict != wykoj.VerdictWrongAnswer {
			t.Fatalf("verdict = %q", out.Verdict)
		}
		if !out.Score.Equal(dec("75")) {
			t.Fatalf("score = %v", out.Score)
		}
	})

	t.Run("mean rounds to three places", func(t *testing.T) {
		results := []wykoj.JudgeCaseResult{
			caseResult(1, 1, wykoj.VerdictAccepted, "100", 0.1, 100),
			caseResult(1, 2, wykoj.VerdictWrongAnswer, "0", 0.1, 100),
			caseResult(1, 3, wykoj.VerdictWrongAnswer, "0", 0.1, 100),
		}
		out, err := aggregate(results, plainConfig)
		if err != nil {
			t.Fatal(err)
		}
		if !out.Score.Equal(dec("33.333")) {
			t.Fatalf("score = %v", out.Score)
		}
	})

	t.Run("empty results", func(t *testing.T) {
		if _, err := aggregate(nil, plainConfig); err == nil {
			t.Fatal("expected error on empty results")
		}
	})
}

func TestAggregateBatched(t *testing.T) {
	cfg := &wykoj.TestConfig{Mode: wykoj.GradingBatched, Points: []int{30, 70}}

	t.Run("subtask minimum times weight", func(t *testing.T) {
		results := []wykoj.JudgeCaseResult{
			caseResult(1, 1, wykoj.VerdictAccepted, "100", 0.1, 100),
			caseResult(1, 2, wykoj.VerdictAccepted, "100", 0.1, 100),
			caseResult(2, 1, wykoj.VerdictAccepted, "100", 0.1, 100),
			caseResult(2, 2, wykoj.VerdictPartialScore, "50", 0.1, 100),
		}
		out, err := aggregate(results, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if out.Verdict != wykoj.VerdictPartialScore {
			t.Fatalf("verdict = %q", out.Verdict)
		}
		want := []string{"30", "35"}
		if len(out.SubtaskScores) != len(want) {
			t.Fatalf("subtask scores = %v", out.SubtaskScores)
		}
		for i, w := range want {
			if !out.SubtaskScores[i].Equal(dec(w)) {
				t.Fatalf("subtask %d score = %v, want %s", i+1, out.SubtaskScores[i], w)
			}
		}
		if !out.Score.Equal(dec("65")) {
			t.Fatalf("score = %v", out.Score)
		}
	})

	t.Run("failed case zeroes its subtask", func(t *testing.T) {
		results := []wykoj.JudgeCaseResult{
			caseResult(1, 1, wykoj.VerdictWrongAnswer, "0", 0.1, 100),
			caseResult(1, 2, wykoj.VerdictAccepted, "100", 0.1, 100),
			caseResult(2, 1, wykoj.VerdictAccepted, "100", 0.1, 100),
		}
		out, err := aggregate(results, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if out.Verdict != wykoj.VerdictWrongAnswer {
			t.Fatalf("verdict = %q", out.Verdict)
		}
		if !out.Score.Equal(dec("70")) {
			t.Fatalf("score = %v", out.Score)
		}
	})

	t.Run("order does not matter", func(t *testing.T) {
		ordered := []wykoj.JudgeCaseResult{
			caseResult(1, 1, wykoj.VerdictAccepted, "100", 0.1, 100),
			caseResult(1, 2, wykoj.VerdictPartialScore, "40", 0.1, 100),
			caseResult(2, 1, wykoj.VerdictWrongAnswer, "0", 0.1, 100),
		}
		shuffled := []wykoj.JudgeCaseResult{ordered[2], ordered[0], ordered[1]}

		a, err := aggregate(ordered, cfg)
		if err != nil {
			t.Fatal(err)
		}
		b, err := aggregate(shuffled, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if a.Verdict != b.Verdict || !a.Score.Equal(b.Score) {
			t.Fatalf("outcome depends on order: %v/%v vs %v/%v", a.Verdict, a.Score, b.Verdict, b.Score)
		}
	})

	t.Run("missing subtask scores zero", func(t *testing.T) {
		results := []wykoj.JudgeCaseResult{
			caseResult(1, 1, wykoj.VerdictAccepted, "100", 0.1, 100),
		}
		out, err := aggregate(results, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if !out.Score.Equal(dec("30")) {
			t.Fatalf("score = %v", out.Score)
		}
		if !out.SubtaskScores[1].Equal(decimal.Zero) {
			t.Fatalf("missing subtask should score zero, got %v", out.SubtaskScores[1])
		}
	})

	t.Run("subtask out of range", func(t *testing.T) {
		results := []wykoj.JudgeCaseResult{
			caseResult(3, 1, wykoj.VerdictAccepted, "100", 0.1, 100),
		}
		if _, err := aggregate(results, cfg); err == nil {
			t.Fatal("expected error for subtask beyond config")
		}
	})
}
