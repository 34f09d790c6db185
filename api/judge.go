package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wykstemteam/wykoj"
	"github.com/wykstemteam/wykoj/datastore"
)

type taskInfoMetadata struct {
	TaskID      string  `json:"task_id"`
	TimeLimit   float64 `json:"time_limit"`
	MemoryLimit int     `json:"memory_limit"`

	Config *wykoj.TestConfig `json:"config"`
}

type taskInfoCase struct {
	Subtask  int    `json:"subtask"`
	TestCase int    `json:"test_case"`
	Input    string `json:"input"`
	Output   string `json:"output,omitempty"`
}

// taskInfo streams a task's grading config and test case data to the judge
// backend. The payload can run to hundreds of megabytes, so it is written
// one test case at a time instead of marshaling everything up front.
func (s *API) taskInfo(w http.ResponseWriter, r *http.Request) {
	task, err := s.base.TaskByName(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		statusError(w, err)
		return
	}
	cfg, err := s.base.TestConfig(r.Context(), task.TaskID)
	if err != nil {
		statusError(w, err)
		return
	}
	cases, err := s.base.TestCases(r.Context(), task.TaskID)
	if err != nil {
		statusError(w, err)
		return
	}

	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	flusher, _ := w.(http.Flusher)

	meta, err := json.Marshal(taskInfoMetadata{
		TaskID:      task.TaskID,
		TimeLimit:   task.TimeLimit,
		MemoryLimit: task.MemoryLimit,
		Config:      cfg,
	})
	if err != nil {
		statusError(w, err)
		return
	}
	w.Write([]byte(`{"metadata":`))
	w.Write(meta)
	w.Write([]byte(`,"test_cases":[`))

	bucket := s.base.DataStore().Task(task.TaskID)
	for i, ref := range cases {
		blob, err := loadCase(bucket, ref)
		if err != nil {
			// Headers are out, the best we can do is cut the stream short.
			return
		}
		if i > 0 {
			w.Write([]byte(","))
		}
		w.Write(blob)
		if flusher != nil {
			flusher.Flush()
		}
	}
	w.Write([]byte("]}"))
}

func loadCase(bucket *datastore.TaskBucket, ref datastore.TestCaseRef) ([]byte, error) {
	input, err := bucket.ReadFile(datastore.TestInputName(ref.Subtask, ref.TestCase))
	if err != nil {
		return nil, err
	}
	c := taskInfoCase{
		Subtask:  ref.Subtask,
		TestCase: ref.TestCase,
		Input:    string(input),
	}
	if ref.HasOutput {
		output, err := bucket.ReadFile(datastore.TestOutputName(ref.Subtask, ref.TestCase))
		if err != nil {
			return nil, err
		}
		c.Output = string(output)
	}
	return json.Marshal(c)
}

// judgeReport receives the backend's results for a dispatched submission.
// Replays of an already settled submission are acknowledged and dropped.
func (s *API) judgeReport(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(w, r, "subID")
	if !ok {
		return
	}
	var report wykoj.JudgeReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		errorData(w, "Malformed report", http.StatusBadRequest)
		return
	}
	if err := s.grader.ProcessReport(r.Context(), id, &report); err != nil {
		statusError(w, err)
		return
	}
	returnData(w, "reported")
}
