// Package api exposes the HTTP surface: submission intake, the judge
// backend's inbound endpoints (test data download, result report) and the
// admin rejudge operations.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/wykstemteam/wykoj/base"
	"github.com/wykstemteam/wykoj/grader"
	"github.com/wykstemteam/wykoj/integrations/prometheus"
)

type API struct {
	base   *base.BaseAPI
	grader *grader.Handler
}

func New(b *base.BaseAPI, grd *grader.Handler) *API {
	return &API{base: b, grader: grd}
}

func (s *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Auth-Token"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			returnData(w, "pong")
		})

		r.With(middleware.Timeout(20*time.Second)).Group(func(r chi.Router) {
			r.Post("/submissions", s.createSubmission)
			r.Get("/submissions", s.listSubmissions)
			r.Get("/submissions/{subID}", s.getSubmission)

			r.Get("/tasks", s.listTasks)
			r.Get("/tasks/{taskID}", s.getTask)

			r.Get("/users/{username}", s.getUser)

			r.Get("/contests/running", s.runningContest)
			r.Get("/contests/{contestID}", s.getContest)
			r.Post("/contests/{contestID}/join", s.joinContest)
			r.Get("/contests/{contestID}/points", s.contestPoints)
		})

		// Internal surface, shared-secret only.
		r.Route("/judge", func(r chi.Router) {
			r.Use(s.validateAuthToken)
			r.Get("/task_info/{taskID}", s.taskInfo)
			r.Post("/submission/{subID}/report", s.judgeReport)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.validateAuthToken)
			r.Use(middleware.Timeout(60 * time.Second))
			r.Post("/tasks", s.createTask)
			r.Post("/tasks/{taskID}", s.updateTask)
			r.Post("/users", s.createUser)
			r.Delete("/submissions/{subID}", s.deleteSubmission)
			r.Post("/submissions/{subID}/rejudge", s.rejudgeSubmission)
			r.Post("/tasks/{taskID}/rejudge", s.rejudgeTask)
			r.Post("/contests", s.createContest)
			r.Post("/contests/{contestID}/rejudge", s.rejudgeContest)
			r.Post("/recalculate_solves", s.recalculateSolves)
		})
	})

	r.Method("GET", "/metrics", prometheus.Handler())

	return r
}
