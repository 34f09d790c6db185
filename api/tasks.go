package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wykstemteam/wykoj"
)

func (s *API) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.base.Tasks(r.Context())
	if err != nil {
		statusError(w, err)
		return
	}
	returnData(w, tasks)
}

func (s *API) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.base.TaskByName(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		statusError(w, err)
		return
	}
	returnData(w, task)
}

func (s *API) createTask(w http.ResponseWriter, r *http.Request) {
	var task wykoj.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		errorData(w, "Malformed task", http.StatusBadRequest)
		return
	}
	if err := s.base.CreateTask(r.Context(), &task); err != nil {
		statusError(w, err)
		return
	}
	returnData(w, task.ID)
}

func (s *API) updateTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.base.TaskByName(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		statusError(w, err)
		return
	}
	var upd wykoj.TaskUpdate
	if v := r.FormValue("title"); v != "" {
		upd.Title = &v
	}
	if v, err := strconv.ParseFloat(r.FormValue("time_limit"), 64); err == nil && v > 0 {
		upd.TimeLimit = &v
	}
	if v, err := strconv.Atoi(r.FormValue("memory_limit")); err == nil && v > 0 {
		upd.MemoryLimit = &v
	}
	if err := s.base.UpdateTask(r.Context(), task.ID, upd); err != nil {
		statusError(w, err)
		return
	}
	returnData(w, "updated")
}
