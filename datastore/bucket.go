package datastore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
)

// TaskBucket exposes one task's directory in the test case store.
type TaskBucket struct {
	TaskID string

	dir string
}

func (b *TaskBucket) Exists() bool {
	stat, err := os.Stat(b.dir)
	return err == nil && stat.IsDir()
}

func (b *TaskBucket) filePath(name string) string {
	return path.Join(b.dir, path.Base(name))
}

func (b *TaskBucket) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(b.filePath(name))
}

func (b *TaskBucket) IterFiles(f func(entry fs.DirEntry) error) error {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := f(entry); err != nil {
			return err
		}
	}
	return nil
}

// TestCaseRef identifies one test case file pair inside a bucket. Subtask 0
// holds sample cases shown on the task page, never judged.
type TestCaseRef struct {
	Subtask  int
	TestCase int

	// HasOutput is false for grader tasks, whose cases ship without model
	// output files.
	HasOutput bool
}

func TestInputName(subtask, testCase int) string {
	return fmt.Sprintf("%d.%d.in", subtask, testCase)
}

func TestOutputName(subtask, testCase int) string {
	return fmt.Sprintf("%d.%d.out", subtask, testCase)
}

// TestCases enumerates the judged test cases in subtask/case order.
// Numbering starts at 1 and stops at the first gap, matching how the store
// is synced. withOutput requires a matching .out file for each case.
func (b *TaskBucket) TestCases(withOutput bool) ([]TestCaseRef, error) {
	if !b.Exists() {
		return nil, fs.ErrNotExist
	}
	names := make(map[string]bool)
	if err := b.IterFiles(func(entry fs.DirEntry) error {
		names[entry.Name()] = true
		return nil
	}); err != nil {
		return nil, err
	}

	var cases []TestCaseRef
	for subtask := 1; ; subtask++ {
		found := false
		for testCase := 1; ; testCase++ {
			if !names[TestInputName(subtask, testCase)] {
				break
			}
			hasOut := names[TestOutputName(subtask, testCase)]
			if withOutput && !hasOut {
				break
			}
			cases = append(cases, TestCaseRef{Subtask: subtask, TestCase: testCase, HasOutput: hasOut})
			found = true
		}
		if !found {
			break
		}
	}
	return cases, nil
}
