// Package prometheus exposes the judging pipeline's counters.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JudgedSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wykoj_judged_submissions_total",
		Help: "Submissions that reached a terminal verdict, by verdict code",
	}, []string{"verdict"})

	JudgeBackendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wykoj_judge_backend_errors_total",
		Help: "Failed requests to the judge backend",
	})

	DuplicateReports = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wykoj_duplicate_judge_reports_total",
		Help: "Judge reports ignored because the submission was already terminal",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
