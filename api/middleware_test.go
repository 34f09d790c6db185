package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wykstemteam/wykoj"
	"github.com/wykstemteam/wykoj/internal/config"
)

func TestValidateAuthToken(t *testing.T) {
	s := &API{}
	called := false
	handler := s.validateAuthToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	tests := map[string]struct {
		secret, token string
		wantStatus    int
	}{
		"valid token":   {"sekrit", "sekrit", 200},
		"wrong token":   {"sekrit", "nope", 401},
		"missing token": {"sekrit", "", 401},
		"no secret set": {"", "anything", 401},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			config.C.Common.SharedSecret = tt.secret
			called = false

			req := httptest.NewRequest("POST", "/api/judge/submission/1/report", nil)
			if tt.token != "" {
				req.Header.Set("X-Auth-Token", tt.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if called != (tt.wantStatus == 200) {
				t.Fatalf("next handler called = %t", called)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	tests := map[string]struct {
		err        error
		wantStatus int
	}{
		"carries status": {wykoj.Statusf(429, "Please wait"), 429},
		"not found":      {wykoj.ErrNotFound, 404},
		"plain error":    {http.ErrBodyNotAllowed, 500},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			statusError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
