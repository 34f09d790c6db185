package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wykstemteam/wykoj"
)

func (s *API) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.base.UserByName(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		statusError(w, err)
		return
	}
	returnData(w, user)
}

func (s *API) createUser(w http.ResponseWriter, r *http.Request) {
	user := wykoj.User{
		Username: r.FormValue("username"),
		Admin:    r.FormValue("admin") == "true",
	}
	if user.Username == "" {
		errorData(w, "Missing username", http.StatusBadRequest)
		return
	}
	if err := s.base.CreateUser(r.Context(), &user); err != nil {
		statusError(w, err)
		return
	}
	returnData(w, user.ID)
}
