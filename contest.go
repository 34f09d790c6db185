package wykoj

import (
	"time"

	"github.com/shopspring/decimal"
)

type ContestStatus string

const (
	// ContestPrePrep is the quiet period long before the contest starts.
	ContestPrePrep ContestStatus = "pre_prep"
	// ContestPrep is the short window right before the start, during which
	// contestants can see the task list page but not the tasks.
	ContestPrep    ContestStatus = "prep"
	ContestOngoing ContestStatus = "ongoing"
	ContestEnded   ContestStatus = "ended"
)

// prepWindow is how long before start_time a contest enters preparation.
const prepWindow = 10 * time.Minute

type Contest struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Title     string    `json:"title"`

	// Public contests can be joined by any user from the contest page.
	Public bool `json:"public"`

	StartTime time.Time `json:"start_time" db:"start_time"`
	Duration  int       `json:"duration"` // minutes

	TaskIDs []int `json:"task_ids" db:"task_ids"`
}

func (c *Contest) EndTime() time.Time {
	return c.StartTime.Add(time.Duration(c.Duration) * time.Minute)
}

// Status derives the contest phase from the given instant.
func (c *Contest) Status(now time.Time) ContestStatus {
	switch {
	case now.Before(c.StartTime.Add(-prepWindow)):
		return ContestPrePrep
	case now.Before(c.StartTime):
		return ContestPrep
	case now.Before(c.EndTime()):
		return ContestOngoing
	default:
		return ContestEnded
	}
}

// ContestParticipation registers a user as contestant of a contest.
// The (contest, user) pair is unique.
type ContestParticipation struct {
	ID        int `json:"id"`
	ContestID int `json:"contest_id" db:"contest_id"`
	UserID    int `json:"user_id" db:"user_id"`
}

// ContestTaskPoints is the best-so-far point vector of one contestant on one
// task: one entry per subtask for batched tasks, a single entry for plain
// ones. Entries only ever grow while the contest runs.
type ContestTaskPoints struct {
	ID              int `json:"id"`
	ParticipationID int `json:"participation_id" db:"participation_id"`
	TaskID          int `json:"task_id" db:"task_id"`

	Points []decimal.Decimal `json:"points"`
}

func (p *ContestTaskPoints) Total() decimal.Decimal {
	total := decimal.Zero
	for _, pts := range p.Points {
		total = total.Add(pts)
	}
	return total
}

// MergePoints merges a freshly judged point vector into an existing one,
// element-wise maximum. It pads with zeros when the lengths differ (a config
// change between submissions), so it is safe under replay and reordering.
func MergePoints(existing, fresh []decimal.Decimal) []decimal.Decimal {
	merged := make([]decimal.Decimal, max(len(existing), len(fresh)))
	for i := range merged {
		a, b := decimal.Zero, decimal.Zero
		if i < len(existing) {
			a = existing[i]
		}
		if i < len(fresh) {
			b = fresh[i]
		}
		merged[i] = decimal.Max(a, b)
	}
	return merged
}
