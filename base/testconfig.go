package base

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/wykstemteam/wykoj"
	"github.com/wykstemteam/wykoj/datastore"
	"github.com/wykstemteam/wykoj/internal/config"
)

// TestConfig returns the task's grading configuration. Results are cached
// for a short TTL so a config push on disk takes effect within seconds
// without restarting anything, while judging bursts stay cheap.
func (s *BaseAPI) TestConfig(ctx context.Context, taskID string) (*wykoj.TestConfig, error) {
	cfg, err := s.testConfigCache.Get(ctx, s.mgr.Task(taskID).TaskID)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *BaseAPI) loadTestConfig(ctx context.Context, taskID string) (*wykoj.TestConfig, error) {
	bucket := s.mgr.Task(taskID)
	data, err := bucket.ReadFile(datastore.ConfigFileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wykoj.Statusf(404, "Task %q has no test data", taskID)
		}
		return nil, wykoj.WrapError(err, 500, "Couldn't read grading config")
	}
	var cfg wykoj.TestConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, wykoj.WrapError(err, 500, "Malformed grading config")
	}
	if err := cfg.Validate(config.LanguageEnabled); err != nil {
		slog.WarnContext(ctx, "Invalid grading config", slog.String("task", taskID), slog.Any("err", err))
		return nil, wykoj.WrapError(err, 500, "Invalid grading config")
	}
	return &cfg, nil
}

// TestCases lists the judged test cases of a task, in subtask/case order.
// Model outputs are required unless the task uses a grader.
func (s *BaseAPI) TestCases(ctx context.Context, taskID string) ([]datastore.TestCaseRef, error) {
	cfg, err := s.TestConfig(ctx, taskID)
	if err != nil {
		return nil, err
	}
	cases, err := s.mgr.Task(taskID).TestCases(cfg.Grader == nil)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wykoj.Statusf(404, "Task %q has no test data", taskID)
		}
		return nil, wykoj.WrapError(err, 500, "Couldn't enumerate test cases")
	}
	if len(cases) == 0 {
		return nil, wykoj.Statusf(404, "Task %q has no test cases", taskID)
	}
	return cases, nil
}
