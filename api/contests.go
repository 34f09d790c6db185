package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/wykstemteam/wykoj"
)

func (s *API) getContest(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(w, r, "contestID")
	if !ok {
		return
	}
	contest, err := s.base.Contest(r.Context(), id)
	if err != nil {
		statusError(w, err)
		return
	}
	returnData(w, contest)
}

func (s *API) runningContest(w http.ResponseWriter, r *http.Request) {
	contest, err := s.base.RunningContest(r.Context())
	if err != nil {
		statusError(w, err)
		return
	}
	if contest == nil {
		errorData(w, "No running contest", http.StatusNotFound)
		return
	}
	returnData(w, contest)
}

func (s *API) joinContest(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(w, r, "contestID")
	if !ok {
		return
	}
	contest, err := s.base.Contest(r.Context(), id)
	if err != nil {
		statusError(w, err)
		return
	}
	user, err := s.base.UserByName(r.Context(), r.FormValue("username"))
	if err != nil {
		statusError(w, err)
		return
	}
	if err := s.base.JoinContest(r.Context(), contest, user); err != nil {
		statusError(w, err)
		return
	}
	returnData(w, "joined")
}

func (s *API) contestPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt(w, r, "contestID")
	if !ok {
		return
	}
	user, err := s.base.UserByName(r.Context(), r.FormValue("username"))
	if err != nil {
		statusError(w, err)
		return
	}
	p, err := s.base.Participation(r.Context(), id, user.ID)
	if err != nil {
		statusError(w, err)
		return
	}
	if p == nil {
		errorData(w, "Not a contestant", http.StatusNotFound)
		return
	}
	points, err := s.base.ContestTaskPoints(r.Context(), p.ID)
	if err != nil {
		statusError(w, err)
		return
	}

	type taskPoints struct {
		TaskID int               `json:"task_id"`
		Points []decimal.Decimal `json:"points"`
		Total  decimal.Decimal   `json:"total"`
	}
	view := make([]taskPoints, 0, len(points))
	for _, pts := range points {
		view = append(view, taskPoints{TaskID: pts.TaskID, Points: pts.Points, Total: pts.Total()})
	}
	returnData(w, view)
}

func (s *API) createContest(w http.ResponseWriter, r *http.Request) {
	var contest wykoj.Contest
	if err := json.NewDecoder(r.Body).Decode(&contest); err != nil {
		errorData(w, "Malformed contest", http.StatusBadRequest)
		return
	}
	if err := s.base.CreateContest(r.Context(), &contest); err != nil {
		statusError(w, err)
		return
	}
	returnData(w, contest.ID)
}
