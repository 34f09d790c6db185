package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wykstemteam/wykoj"
)

func (s *API) createSubmission(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	taskID := r.FormValue("task_id")
	if username == "" || taskID == "" {
		errorData(w, "Missing username or task_id", http.StatusBadRequest)
		return
	}
	author, err := s.base.UserByName(r.Context(), username)
	if err != nil {
		statusError(w, err)
		return
	}
	task, err := s.base.TaskByName(r.Context(), taskID)
	if err != nil {
		statusError(w, err)
		return
	}
	id, err := s.base.CreateSubmission(r.Context(), author, task, r.FormValue("language"), r.FormValue("code"))
	if err != nil {
		statusError(w, err)
		return
	}
	returnData(w, id)
}

func (s *API) listSubmissions(w http.ResponseWriter, r *http.Request) {
	filter := wykoj.SubmissionFilter{Limit: 50}
	if v := r.FormValue("task_id"); v != "" {
		task, err := s.base.TaskByName(r.Context(), v)
		if err != nil {
			statusError(w, err)
			return
		}
		filter.TaskID = &task.ID
	}
	if v := r.FormValue("username"); v != "" {
		user, err := s.base.UserByName(r.Context(), v)
		if err != nil {
			statusError(w, err)
			return
		}
		filter.UserID = &user.ID
	}
	if v := r.FormValue("verdict"); v != "" {
		filter.Verdict = wykoj.Verdict(v)
		if !filter.Verdict.Valid() {
			errorData(w, "Invalid verdict", http.StatusBadRequest)
			return
		}
	}
	if v, err := strconv.Atoi(r.FormValue("limit")); err == nil && v > 0 && v <= 200 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(r.FormValue("offset")); err == nil && v > 0 {
		filter.Offset = v
	}

	subs, err := s.base.Submissions(r.Context(), filter)
	if err != nil {
		statusError(w, err)
		return
	}
	count, err := s.base.SubmissionCount(r.Context(), filter)
	if err != nil {
		statusError(w, err)
		return
	}
	// Code is only exposed on the single submission endpoint.
	for _, sub := range subs {
		sub.Code = ""
	}
	returnData(w, struct {
		Submissions []*wykoj.Submission `json:"submissions"`
		Count       int                 `json:"count"`
	}{subs, count})
}

func (s *API) getSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(w, r, "subID")
	if !ok {
		return
	}
	sub, err := s.base.Submission(r.Context(), id)
	if err != nil {
		statusError(w, err)
		return
	}
	author, err := s.base.User(r.Context(), sub.UserID)
	if err != nil {
		statusError(w, err)
		return
	}
	results, err := s.base.TestCaseResults(r.Context(), id)
	if err != nil {
		statusError(w, err)
		return
	}
	returnData(w, struct {
		Submission      *wykoj.Submission       `json:"submission"`
		Author          string                  `json:"author"`
		VerdictHuman    string                  `json:"verdict_human"`
		TestCaseResults []*wykoj.TestCaseResult `json:"test_case_results"`
	}{sub, author.Username, sub.Verdict.Human(), results})
}

func (s *API) deleteSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(w, r, "subID")
	if !ok {
		return
	}
	if err := s.base.DeleteSubmission(r.Context(), id); err != nil {
		statusError(w, err)
		return
	}
	returnData(w, "deleted")
}

func (s *API) rejudgeSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(w, r, "subID")
	if !ok {
		return
	}
	count, err := s.base.ResetSubmissions(r.Context(), wykoj.SubmissionFilter{ID: &id})
	if err != nil {
		statusError(w, err)
		return
	}
	if count == 0 {
		errorData(w, "Submission not found", http.StatusNotFound)
		return
	}
	returnData(w, count)
}

func (s *API) rejudgeTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.base.TaskByName(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		statusError(w, err)
		return
	}
	count, err := s.base.ResetSubmissions(r.Context(), wykoj.SubmissionFilter{TaskID: &task.ID})
	if err != nil {
		statusError(w, err)
		return
	}
	returnData(w, count)
}

func (s *API) rejudgeContest(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(w, r, "contestID")
	if !ok {
		return
	}
	contest, err := s.base.Contest(r.Context(), id)
	if err != nil {
		statusError(w, err)
		return
	}
	count, err := s.base.ResetSubmissions(r.Context(), wykoj.SubmissionFilter{ContestID: &contest.ID})
	if err != nil {
		statusError(w, err)
		return
	}
	returnData(w, count)
}

func (s *API) recalculateSolves(w http.ResponseWriter, r *http.Request) {
	if err := s.base.RecalculateSolves(r.Context()); err != nil {
		statusError(w, err)
		return
	}
	returnData(w, "recalculated")
}
