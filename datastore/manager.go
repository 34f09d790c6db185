// Package datastore is the read-mostly file store for test case data: one
// directory per task, holding the grading manifest, the optional grader
// program and the test case files themselves. Files are synced from an
// external source (e.g. a content webhook), the app only ever creates the
// directory skeleton.
package datastore

import (
	"os"
	"path"
	"strings"
)

// ConfigFileName is the grading manifest inside each task directory.
const ConfigFileName = "config.json"

type Manager struct {
	RootPath string
}

func New(p string) (*Manager, error) {
	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, err
	}
	return &Manager{RootPath: p}, nil
}

// Task returns the bucket for a task. Task ids are case-insensitive, the
// on-disk directory is always lowercase.
func (m *Manager) Task(taskID string) *TaskBucket {
	id := strings.ToLower(taskID)
	return &TaskBucket{
		TaskID: id,
		dir:    path.Join(m.RootPath, id),
	}
}
