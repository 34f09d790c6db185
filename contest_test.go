package wykoj

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestContestStatus(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &Contest{StartTime: start, Duration: 120}

	tests := map[string]struct {
		now  time.Time
		want ContestStatus
	}{
		"long before":      {start.Add(-time.Hour), ContestPrePrep},
		"prep boundary":    {start.Add(-10 * time.Minute), ContestPrep},
		"just before":      {start.Add(-time.Second), ContestPrep},
		"at start":         {start, ContestOngoing},
		"midway":           {start.Add(time.Hour), ContestOngoing},
		"at end":           {start.Add(2 * time.Hour), ContestEnded},
		"well after":       {start.Add(48 * time.Hour), ContestEnded},
		"prep window edge": {start.Add(-10*time.Minute - time.Second), ContestPrePrep},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := c.Status(tt.now); got != tt.want {
				t.Fatalf("Status(%v) = %q, want %q", tt.now, got, tt.want)
			}
		})
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decs(ss ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(ss))
	for i, s := range ss {
		out[i] = dec(s)
	}
	return out
}

func equalDecs(a, b []decimal.Decimal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func TestMergePoints(t *testing.T) {
	t.Run("element-wise max", func(t *testing.T) {
		got := MergePoints(decs("30", "0", "20"), decs("10", "40", "20"))
		if !equalDecs(got, decs("30", "40", "20")) {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("pads shorter vector", func(t *testing.T) {
		got := MergePoints(decs("30"), decs("10", "40"))
		if !equalDecs(got, decs("30", "40")) {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("empty existing", func(t *testing.T) {
		got := MergePoints(nil, decs("10", "40"))
		if !equalDecs(got, decs("10", "40")) {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		once := MergePoints(decs("30", "20"), decs("10", "40"))
		twice := MergePoints(once, decs("10", "40"))
		if !equalDecs(once, twice) {
			t.Fatalf("merge not idempotent: %v vs %v", once, twice)
		}
	})

	t.Run("order independent", func(t *testing.T) {
		a := MergePoints(MergePoints(nil, decs("30", "0")), decs("10", "40"))
		b := MergePoints(MergePoints(nil, decs("10", "40")), decs("30", "0"))
		if !equalDecs(a, b) {
			t.Fatalf("merge order matters: %v vs %v", a, b)
		}
	})
}

func TestContestTaskPointsTotal(t *testing.T) {
	p := &ContestTaskPoints{Points: decs("30.5", "20", "0")}
	if !p.Total().Equal(dec("50.5")) {
		t.Fatalf("Total() = %v", p.Total())
	}
}
