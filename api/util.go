package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wykstemteam/wykoj"
)

func returnData(w http.ResponseWriter, retData any) {
	statusData(w, "success", retData, 200)
}

func statusData(w http.ResponseWriter, status string, retData any, statusCode int) {
	if err, ok := retData.(error); ok {
		retData = err.Error()
	}
	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
		Data   any    `json:"data"`
	}{
		Status: status,
		Data:   retData,
	}); err != nil {
		slog.Warn("Couldn't send return data", slog.Any("err", err))
	}
}

func errorData(w http.ResponseWriter, retData any, errCode int) {
	statusData(w, "error", retData, errCode)
}

// statusError maps a service layer error to the response, using the status
// code it carries.
func statusError(w http.ResponseWriter, err error) {
	errorData(w, err, wykoj.ErrorCode(err))
}

func urlParamInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		errorData(w, "Param `"+name+"` not int", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
