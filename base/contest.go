package base

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wykstemteam/wykoj"
)

func (s *BaseAPI) Contest(ctx context.Context, id int) (*wykoj.Contest, error) {
	contest, err := s.db.Contest(ctx, id)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get contest")
	}
	if contest == nil {
		return nil, wykoj.ErrNotFound
	}
	return contest, nil
}

func (s *BaseAPI) RunningContest(ctx context.Context) (*wykoj.Contest, error) {
	contest, err := s.db.RunningContest(ctx, time.Now())
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get running contest")
	}
	return contest, nil
}

func (s *BaseAPI) CreateContest(ctx context.Context, contest *wykoj.Contest) error {
	if err := s.db.CreateContest(ctx, contest); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't create contest")
	}
	return nil
}

func (s *BaseAPI) Participation(ctx context.Context, contestID, userID int) (*wykoj.ContestParticipation, error) {
	p, err := s.db.Participation(ctx, contestID, userID)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get contest participation")
	}
	return p, nil
}

func (s *BaseAPI) JoinContest(ctx context.Context, contest *wykoj.Contest, user *wykoj.User) error {
	if !contest.Public && !user.Admin {
		return wykoj.Statusf(403, "Contest is invite only")
	}
	if contest.Status(time.Now()) == wykoj.ContestEnded {
		return wykoj.Statusf(400, "Contest has ended")
	}
	if _, err := s.db.CreateParticipation(ctx, contest.ID, user.ID); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't join contest")
	}
	return nil
}

// SubmissionPoints is the contest point vector a judged submission earns:
// the weighted subtask scores for batched tasks, the single overall score
// otherwise.
func SubmissionPoints(sub *wykoj.Submission) []decimal.Decimal {
	if len(sub.SubtaskScores) > 0 {
		return sub.SubtaskScores
	}
	return []decimal.Decimal{sub.Score}
}

// ApplyContestTaskPoints folds a judged contest submission into its author's
// best-so-far points on the task. The merge is monotone and idempotent, so
// late or replayed judging completions can never lower points.
func (s *BaseAPI) ApplyContestTaskPoints(ctx context.Context, sub *wykoj.Submission) error {
	if sub.ContestID == nil || !sub.Verdict.Terminal() {
		return nil
	}
	p, err := s.db.Participation(ctx, *sub.ContestID, sub.UserID)
	if err != nil {
		return wykoj.WrapError(err, 500, "Couldn't get contest participation")
	}
	if p == nil {
		return nil
	}
	if err := s.db.MergeContestTaskPoints(ctx, p.ID, sub.TaskID, SubmissionPoints(sub)); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't merge contest points")
	}
	return nil
}

// RecomputeContestTaskPoints rebuilds a contestant's points on a task from
// all their remaining judged contest submissions. Unlike the merge path this
// may lower points; it runs after rejudges and deletions.
func (s *BaseAPI) RecomputeContestTaskPoints(ctx context.Context, contestID, taskID, userID int) error {
	p, err := s.db.Participation(ctx, contestID, userID)
	if err != nil {
		return wykoj.WrapError(err, 500, "Couldn't get contest participation")
	}
	if p == nil {
		return nil
	}
	subs, err := s.db.Submissions(ctx, wykoj.SubmissionFilter{
		TaskID: &taskID, UserID: &userID, ContestID: &contestID,
	})
	if err != nil {
		return wykoj.WrapError(err, 500, "Couldn't get contest submissions")
	}
	points := []decimal.Decimal{}
	for _, sub := range subs {
		if !sub.Verdict.Terminal() {
			continue
		}
		points = wykoj.MergePoints(points, SubmissionPoints(sub))
	}
	if err := s.db.ReplaceContestTaskPoints(ctx, p.ID, taskID, points); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't replace contest points")
	}
	return nil
}

func (s *BaseAPI) ContestTaskPoints(ctx context.Context, participationID int) ([]*wykoj.ContestTaskPoints, error) {
	points, err := s.db.ContestTaskPoints(ctx, participationID)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get contest points")
	}
	return points, nil
}
