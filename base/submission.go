package base

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wykstemteam/wykoj"
	"github.com/wykstemteam/wykoj/internal/config"
)

func (s *BaseAPI) Submission(ctx context.Context, id int) (*wykoj.Submission, error) {
	sub, err := s.db.Submission(ctx, id)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get submission")
	}
	if sub == nil {
		return nil, wykoj.ErrNotFound
	}
	return sub, nil
}

func (s *BaseAPI) Submissions(ctx context.Context, filter wykoj.SubmissionFilter) ([]*wykoj.Submission, error) {
	subs, err := s.db.Submissions(ctx, filter)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get submissions")
	}
	return subs, nil
}

func (s *BaseAPI) SubmissionCount(ctx context.Context, filter wykoj.SubmissionFilter) (int, error) {
	count, err := s.db.SubmissionCount(ctx, filter)
	if err != nil {
		return -1, wykoj.WrapError(err, 500, "Couldn't count submissions")
	}
	return count, nil
}

func (s *BaseAPI) TestCaseResults(ctx context.Context, submissionID int) ([]*wykoj.TestCaseResult, error) {
	results, err := s.db.TestCaseResults(ctx, submissionID)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get test case results")
	}
	return results, nil
}

// CreateSubmission validates a submission attempt and enqueues it as Pending.
// It refuses early when judging could not possibly complete: disabled
// language, offline backend or broken grading config. The submission is
// attached to a contest iff that contest is ongoing, lists the task and the
// author registered as contestant.
func (s *BaseAPI) CreateSubmission(ctx context.Context, author *wykoj.User, task *wykoj.Task, language string, code string) (int, error) {
	if author == nil || task == nil {
		return -1, wykoj.ErrMissingRequired
	}
	if len(code) == 0 {
		return -1, wykoj.Statusf(400, "Empty code")
	}
	if !config.LanguageEnabled(language) {
		return -1, wykoj.Statusf(400, "Language %q is not allowed", language)
	}
	if !s.JudgeOnline(ctx) {
		return -1, wykoj.Statusf(503, "Judging is temporarily unavailable")
	}
	if _, err := s.TestConfig(ctx, task.TaskID); err != nil {
		return -1, err
	}

	if cd := config.C.Common.SubmissionCooldown; cd > 0 && !author.Admin {
		last, err := s.db.LastSubmissionTime(ctx, author.ID)
		if err != nil {
			return -1, wykoj.WrapError(err, 500, "Couldn't check submission cooldown")
		}
		if last != nil && time.Since(*last) < time.Duration(cd)*time.Second {
			return -1, wykoj.Statusf(429, "Please wait before submitting again")
		}
	}

	contestID, err := s.submissionContest(ctx, author, task)
	if err != nil {
		return -1, err
	}

	id, err := s.db.CreateSubmission(ctx, author.ID, task, language, code, contestID)
	if err != nil {
		return -1, wykoj.WrapError(err, 500, "Couldn't create submission")
	}

	s.WakeGrader()
	return id, nil
}

func (s *BaseAPI) submissionContest(ctx context.Context, author *wykoj.User, task *wykoj.Task) (*int, error) {
	contest, err := s.db.RunningContest(ctx, time.Now())
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't check running contest")
	}
	if contest == nil || contest.Status(time.Now()) != wykoj.ContestOngoing {
		return nil, nil
	}
	inContest := false
	for _, id := range contest.TaskIDs {
		if id == task.ID {
			inContest = true
			break
		}
	}
	if !inContest {
		return nil, nil
	}
	p, err := s.db.Participation(ctx, contest.ID, author.ID)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't check contest participation")
	}
	if p == nil {
		return nil, nil
	}
	return &contest.ID, nil
}

// DeleteSubmission removes a submission and repairs the derived state it
// contributed to: a first solve passes on to the next accepted submission,
// and contest points are recomputed from what remains.
func (s *BaseAPI) DeleteSubmission(ctx context.Context, id int) error {
	sub, err := s.Submission(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteSubmission(ctx, id); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't delete submission")
	}
	if sub.ContestID != nil {
		if err := s.RecomputeContestTaskPoints(ctx, *sub.ContestID, sub.TaskID, sub.UserID); err != nil {
			slog.WarnContext(ctx, "Couldn't recompute contest points after deletion",
				slog.Int("submission_id", id), slog.Any("err", err))
		}
	}
	return nil
}

// ResetSubmissions puts every submission matching the filter back to Pending,
// in ascending id order, and wakes the grader. This is the rejudge entry
// point: ascending order keeps first solves landing on the earliest accepted
// submission again.
func (s *BaseAPI) ResetSubmissions(ctx context.Context, filter wykoj.SubmissionFilter) (int, error) {
	filter.Ascending = true
	subs, err := s.db.Submissions(ctx, filter)
	if err != nil {
		return 0, wykoj.WrapError(err, 500, "Couldn't get submissions for rejudge")
	}
	type pointsKey struct{ contestID, taskID, userID int }
	affected := make(map[pointsKey]bool)
	for _, sub := range subs {
		if err := s.db.ResetSubmission(ctx, sub.ID); err != nil {
			return 0, wykoj.WrapError(err, 500, fmt.Sprintf("Couldn't reset submission %d", sub.ID))
		}
		if sub.ContestID != nil {
			affected[pointsKey{*sub.ContestID, sub.TaskID, sub.UserID}] = true
		}
	}
	// Resets drop the rejudged submissions' contributions, so the stored
	// points must shrink to what the untouched submissions still earn. The
	// monotone merge path rebuilds them as judging completes.
	for key := range affected {
		if err := s.RecomputeContestTaskPoints(ctx, key.contestID, key.taskID, key.userID); err != nil {
			slog.WarnContext(ctx, "Couldn't recompute contest points after reset", slog.Any("err", err))
		}
	}
	if len(subs) > 0 {
		s.WakeGrader()
	}
	return len(subs), nil
}

func (s *BaseAPI) UpdateSubmission(ctx context.Context, id int, upd wykoj.SubmissionUpdate) error {
	if err := s.db.UpdateSubmission(ctx, id, upd); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't update submission")
	}
	return nil
}

func (s *BaseAPI) CreateTestCaseResults(ctx context.Context, results []*wykoj.TestCaseResult) error {
	if err := s.db.CreateTestCaseResults(ctx, results); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't save test case results")
	}
	return nil
}

func (s *BaseAPI) ClaimFirstSolve(ctx context.Context, sub *wykoj.Submission) (bool, error) {
	claimed, err := s.db.ClaimFirstSolve(ctx, sub)
	if err != nil {
		return false, wykoj.WrapError(err, 500, "Couldn't claim first solve")
	}
	return claimed, nil
}

func (s *BaseAPI) RecalculateSolves(ctx context.Context) error {
	if err := s.db.RecalculateSolves(ctx); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't recalculate solves")
	}
	return nil
}
