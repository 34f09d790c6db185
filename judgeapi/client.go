// Package judgeapi is the HTTP client for the external judge backend: a
// liveness probe and the judge dispatch call. Network failures never leave
// this package as anything other than a *JudgeError, so the orchestrator can
// map every one of them to a System Error verdict.
package judgeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Yiling-J/theine-go"
	"github.com/wykstemteam/wykoj"
	"github.com/wykstemteam/wykoj/integrations/prometheus"
)

const authHeader = "X-Auth-Token"

// onlineTTL is how long a liveness probe result is trusted, so a flapping or
// dead backend is not hammered on every page load.
const onlineTTL = 5 * time.Second

// JudgeError wraps any failure to obtain a usable reply from the backend.
type JudgeError struct {
	Op  string
	Err error
}

func (e *JudgeError) Error() string {
	return fmt.Sprintf("judge backend %s: %v", e.Op, e.Err)
}

func (e *JudgeError) Unwrap() error { return e.Err }

func judgeErr(op string, err error) *JudgeError {
	prometheus.JudgeBackendErrors.Inc()
	return &JudgeError{Op: op, Err: err}
}

type Client struct {
	host   string
	secret string

	pingClient  *http.Client
	judgeClient *http.Client

	onlineCache *theine.LoadingCache[string, bool]
}

func New(host, secret string, pingTimeout, judgeTimeout time.Duration) (*Client, error) {
	c := &Client{
		host:   host,
		secret: secret,

		pingClient:  &http.Client{Timeout: pingTimeout},
		judgeClient: &http.Client{Timeout: judgeTimeout},
	}
	cache, err := theine.NewBuilder[string, bool](1).BuildWithLoader(func(ctx context.Context, key string) (theine.Loaded[bool], error) {
		return theine.Loaded[bool]{
			Value: c.ping(ctx),
			Cost:  1,
			TTL:   onlineTTL,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not build liveness cache: %w", err)
	}
	c.onlineCache = cache
	return c, nil
}

// Online reports whether the backend answered a recent liveness probe. It
// never returns an error: probe failures read as offline.
func (c *Client) Online(ctx context.Context) bool {
	online, err := c.onlineCache.Get(ctx, "online")
	if err != nil {
		return false
	}
	return online
}

func (c *Client) ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/ping", nil)
	if err != nil {
		return false
	}
	resp, err := c.pingClient.Do(req)
	if err != nil {
		slog.DebugContext(ctx, "Judge backend ping failed", slog.Any("err", err))
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode < 400
}

type taskInfo struct {
	TaskID      string  `json:"task_id"`
	TimeLimit   float64 `json:"time_limit"`
	MemoryLimit int     `json:"memory_limit"`

	Grader           bool   `json:"grader"`
	GraderSourceCode string `json:"grader_source_code,omitempty"`
	GraderLanguage   string `json:"grader_language,omitempty"`
}

type judgeRequest struct {
	TaskInfo   taskInfo `json:"task_info"`
	Submission struct {
		ID         int    `json:"id"`
		Language   string `json:"language"`
		SourceCode string `json:"source_code"`
	} `json:"submission"`
}

func buildJudgeRequest(sub *wykoj.Submission, task *wykoj.Task, config *wykoj.TestConfig) judgeRequest {
	req := judgeRequest{
		TaskInfo: taskInfo{
			TaskID:      task.TaskID,
			TimeLimit:   task.TimeLimit,
			MemoryLimit: task.MemoryLimit,
		},
	}
	if config.Grader != nil {
		req.TaskInfo.Grader = true
		req.TaskInfo.GraderSourceCode = config.Grader.SourceCode
		req.TaskInfo.GraderLanguage = config.Grader.Language
	}
	req.Submission.ID = sub.ID
	req.Submission.Language = sub.Language
	req.Submission.SourceCode = sub.Code
	return req
}

// Submit sends a submission for judging and waits for the backend's reply.
// The reply either carries the full per-case results or a bare terminal
// verdict (compile error / backend-side system error). Transient connector
// failures are retried once with backoff; anything the backend actually
// processed is not, so a retry can never double-judge.
func (c *Client) Submit(ctx context.Context, sub *wykoj.Submission, task *wykoj.Task, config *wykoj.TestConfig) (*wykoj.JudgeReport, error) {
	body, err := json.Marshal(buildJudgeRequest(sub, task, config))
	if err != nil {
		return nil, judgeErr("submit", err)
	}

	resp, err := c.post(ctx, "/judge", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var report wykoj.JudgeReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, judgeErr("submit", fmt.Errorf("malformed reply: %w", err))
	}
	if err := report.Validate(); err != nil {
		return nil, judgeErr("submit", fmt.Errorf("invalid reply: %w", err))
	}
	return &report, nil
}

// Dispatch fires a judge request without waiting for results; the backend
// reports them later on the inbound report endpoint.
func (c *Client) Dispatch(ctx context.Context, sub *wykoj.Submission, task *wykoj.Task, config *wykoj.TestConfig) error {
	body, err := json.Marshal(buildJudgeRequest(sub, task, config))
	if err != nil {
		return judgeErr("dispatch", err)
	}
	resp, err := c.post(ctx, "/judge", body)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

const submitRetries = 2

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < submitRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, judgeErr("submit", ctx.Err())
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
		if err != nil {
			return nil, judgeErr("submit", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(authHeader, c.secret)

		resp, err := c.judgeClient.Do(req)
		if err != nil {
			// The backend never saw the request or we gave up waiting.
			// Only plain connection errors are worth one more try.
			lastErr = err
			if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			continue
		}
		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("status %s", resp.Status)
			continue
		}
		if resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, judgeErr("submit", fmt.Errorf("status %s", resp.Status))
		}
		return resp, nil
	}
	return nil, judgeErr("submit", lastErr)
}
