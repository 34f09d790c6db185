package wykoj

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type GradingMode string

const (
	// GradingPlain scores a submission as the mean of all test case scores.
	GradingPlain GradingMode = "plain"
	// GradingBatched groups test cases into subtasks: each subtask scores
	// its minimum case score weighted by the subtask's point value.
	GradingBatched GradingMode = "batched"
)

// ScorePrecision is the number of decimal places kept for submission and
// contest scores. Part of the judge backend wire contract.
const ScorePrecision = 3

// TestConfig is a task's grading configuration, loaded from the test case
// store. It is a derived, cached value, not a persisted entity.
type TestConfig struct {
	Mode GradingMode `json:"grading_mode"`

	// Points are the per-subtask weights for batched grading, in subtask
	// order. They must be non-negative and sum to exactly 100.
	Points []int `json:"points,omitempty"`

	Grader *GraderProgram `json:"grader,omitempty"`
}

// GraderProgram is an optional custom grader run against each test case's
// output instead of a plain diff.
type GraderProgram struct {
	Language   string `json:"language"`
	SourceCode string `json:"source_code"`
}

func (c *TestConfig) Batched() bool { return c.Mode == GradingBatched }

// Validate checks the config invariants. allowedLanguage reports whether a
// grader may be written in the given language; judging must not proceed
// with a config that fails any of these checks.
func (c *TestConfig) Validate(allowedLanguage func(string) bool) error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required,
			validation.In(GradingPlain, GradingBatched)),
		validation.Field(&c.Points,
			validation.Each(validation.Min(0)),
			validation.When(c.Mode == GradingBatched,
				validation.Required, validation.By(pointsSumTo100)),
			validation.When(c.Mode == GradingPlain, validation.Empty)),
	)
	if err != nil {
		return err
	}
	if c.Grader != nil {
		if err := validation.ValidateStruct(c.Grader,
			validation.Field(&c.Grader.Language, validation.Required),
			validation.Field(&c.Grader.SourceCode, validation.Required),
		); err != nil {
			return err
		}
		if !allowedLanguage(c.Grader.Language) {
			return Statusf(400, "Grader language %q is not an allowed language", c.Grader.Language)
		}
	}
	return nil
}

func pointsSumTo100(value interface{}) error {
	points, _ := value.([]int)
	sum := 0
	for _, p := range points {
		sum += p
	}
	if sum != 100 {
		return Statusf(400, "Subtask points sum to %d, expected 100", sum)
	}
	return nil
}
