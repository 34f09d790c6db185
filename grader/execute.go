package grader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/wykstemteam/wykoj"
	"github.com/wykstemteam/wykoj/integrations/prometheus"
)

// executeSubmission runs one submission through the pipeline. Whatever goes
// wrong, the submission never stays Pending: any failure past this point
// settles it as a System Error.
func (h *Handler) executeSubmission(ctx context.Context, sub *wykoj.Submission) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.markSystemError(ctx, sub.ID)
			err = fmt.Errorf("panic while judging submission %d: %v", sub.ID, r)
		}
	}()

	task, err := h.store.Task(ctx, sub.TaskID)
	if err != nil {
		h.markSystemError(ctx, sub.ID)
		return err
	}
	cfg, err := h.store.TestConfig(ctx, task.TaskID)
	if err != nil {
		h.markSystemError(ctx, sub.ID)
		return err
	}

	if h.reportMode {
		if err := h.judge.Dispatch(ctx, sub, task, cfg); err != nil {
			h.markSystemError(ctx, sub.ID)
			return err
		}
		h.markDispatched(sub.ID)
		return nil
	}

	report, err := h.judge.Submit(ctx, sub, task, cfg)
	if err != nil {
		h.markSystemError(ctx, sub.ID)
		return err
	}
	if err := h.finishJudging(ctx, sub, cfg, report); err != nil {
		h.markSystemError(ctx, sub.ID)
		return err
	}
	return nil
}

// ProcessReport settles a submission from a backend callback. Reports for
// submissions that already reached a terminal verdict are acknowledged and
// dropped, so backend retries cannot double-count anything.
func (h *Handler) ProcessReport(ctx context.Context, submissionID int, report *wykoj.JudgeReport) error {
	if err := report.Validate(); err != nil {
		return err
	}
	sub, err := h.store.Submission(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.Verdict.Terminal() {
		prometheus.DuplicateReports.Inc()
		graderLogger.WarnContext(ctx, "Dropping duplicate judge report",
			slog.Int("submission_id", submissionID), slog.String("verdict", string(sub.Verdict)))
		return nil
	}
	// The pair is released only once the report is dealt with, so the feeder
	// cannot hand out a later submission by the same author in between.
	defer h.release(sub)

	task, err := h.store.Task(ctx, sub.TaskID)
	if err != nil {
		return err
	}
	cfg, err := h.store.TestConfig(ctx, task.TaskID)
	if err != nil {
		h.markSystemError(ctx, sub.ID)
		return err
	}

	if err := h.finishJudging(ctx, sub, cfg, report); err != nil {
		h.markSystemError(ctx, sub.ID)
		return err
	}
	return nil
}

// finishJudging persists a validated report: the per-case result rows, the
// folded verdict and scores, then the derived state. The submission row is
// written last, so a crash in between leaves it Pending and retriable rather
// than terminal with missing results.
func (h *Handler) finishJudging(ctx context.Context, sub *wykoj.Submission, cfg *wykoj.TestConfig, report *wykoj.JudgeReport) error {
	if report.Verdict != wykoj.VerdictNone {
		zero := decimal.Zero
		if err := h.store.UpdateSubmission(ctx, sub.ID, wykoj.SubmissionUpdate{
			Verdict:            report.Verdict,
			Score:              &zero,
			ClearSubtaskScores: true,
			ClearResource:      true,
		}); err != nil {
			return err
		}
		sub.Verdict = report.Verdict
		sub.Score = zero
		h.settleDerived(ctx, sub)
		return nil
	}

	outcome, err := aggregate(report.TestCaseResults, cfg)
	if err != nil {
		return err
	}

	results := make([]*wykoj.TestCaseResult, 0, len(report.TestCaseResults))
	for _, r := range report.TestCaseResults {
		results = append(results, &wykoj.TestCaseResult{
			SubmissionID: sub.ID,
			Subtask:      r.Subtask,
			TestCase:     r.TestCase,
			Verdict:      r.Verdict,
			Score:        r.Score,
			TimeUsed:     r.TimeUsed,
			MemoryUsed:   r.MemoryUsed,
		})
	}
	if err := h.store.CreateTestCaseResults(ctx, results); err != nil {
		return err
	}

	upd := wykoj.SubmissionUpdate{
		Verdict:            outcome.Verdict,
		Score:              &outcome.Score,
		SubtaskScores:      outcome.SubtaskScores,
		ClearSubtaskScores: outcome.SubtaskScores == nil,
		ClearResource:      true,
	}
	if outcome.Verdict == wykoj.VerdictAccepted {
		upd.ClearResource = false
		upd.TimeUsed = &outcome.MaxTime
		upd.MemoryUsed = &outcome.MaxMemory
	}
	if err := h.store.UpdateSubmission(ctx, sub.ID, upd); err != nil {
		return err
	}

	sub.Verdict = outcome.Verdict
	sub.Score = outcome.Score
	sub.SubtaskScores = outcome.SubtaskScores
	h.settleDerived(ctx, sub)

	graderLogger.InfoContext(ctx, "Judged submission",
		slog.Int("submission_id", sub.ID),
		slog.String("verdict", string(outcome.Verdict)),
		slog.String("score", outcome.Score.String()))
	return nil
}

// settleDerived claims the first solve and folds contest points. Both are
// idempotent, so failures here are logged and retried on the next rejudge
// instead of flipping an already judged submission to System Error.
func (h *Handler) settleDerived(ctx context.Context, sub *wykoj.Submission) {
	prometheus.JudgedSubmissions.WithLabelValues(string(sub.Verdict)).Inc()

	if sub.Verdict == wykoj.VerdictAccepted {
		claimed, err := h.store.ClaimFirstSolve(ctx, sub)
		if err != nil {
			graderLogger.WarnContext(ctx, "Couldn't claim first solve",
				slog.Int("submission_id", sub.ID), slog.Any("err", err))
		} else if claimed {
			sub.FirstSolve = true
			graderLogger.InfoContext(ctx, "First solve",
				slog.Int("submission_id", sub.ID), slog.Int("user_id", sub.UserID), slog.Int("task_id", sub.TaskID))
		}
	}

	if err := h.store.ApplyContestTaskPoints(ctx, sub); err != nil {
		graderLogger.WarnContext(ctx, "Couldn't apply contest points",
			slog.Int("submission_id", sub.ID), slog.Any("err", err))
	}
}

func (h *Handler) markSystemError(ctx context.Context, id int) {
	zero := decimal.Zero
	if err := h.store.UpdateSubmission(ctx, id, wykoj.SubmissionUpdate{
		Verdict:            wykoj.VerdictSystemError,
		Score:              &zero,
		ClearSubtaskScores: true,
		ClearResource:      true,
	}); err != nil {
		graderLogger.ErrorContext(ctx, "Couldn't mark submission as system error",
			slog.Int("submission_id", id), slog.Any("err", err))
	}
}
