// Package grader runs the judging loop: it feeds pending submissions to the
// judge backend, folds the raw results into verdicts and scores, and settles
// the derived state (first solves, contest points).
package grader

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wykstemteam/wykoj"
	"github.com/wykstemteam/wykoj/base"
	"github.com/wykstemteam/wykoj/internal/config"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

// syncWorkers bounds how many submissions are judged at once in sync mode,
// where each one blocks on the backend for up to the judge timeout.
const syncWorkers = 4

var (
	pendingSubs = wykoj.SubmissionFilter{Verdict: wykoj.VerdictPending, Ascending: true, Limit: 20}

	openAction   sync.Once
	graderLogger *slog.Logger
)

// Store is the slice of the base layer the judging loop needs.
type Store interface {
	Submission(ctx context.Context, id int) (*wykoj.Submission, error)
	Submissions(ctx context.Context, filter wykoj.SubmissionFilter) ([]*wykoj.Submission, error)
	Task(ctx context.Context, id int) (*wykoj.Task, error)
	TestConfig(ctx context.Context, taskID string) (*wykoj.TestConfig, error)

	UpdateSubmission(ctx context.Context, id int, upd wykoj.SubmissionUpdate) error
	CreateTestCaseResults(ctx context.Context, results []*wykoj.TestCaseResult) error
	ClaimFirstSolve(ctx context.Context, sub *wykoj.Submission) (bool, error)
	ApplyContestTaskPoints(ctx context.Context, sub *wykoj.Submission) error

	RegisterGrader(g base.Grader)
}

type Handler struct {
	ctx   context.Context
	store Store
	judge base.JudgeRunner

	wakeChan chan struct{}

	// reportMode makes the loop dispatch submissions and wait for the
	// backend to call back on the report endpoint instead of blocking on
	// the judge request.
	reportMode bool

	mu sync.Mutex
	// dispatched remembers report-mode submissions already sent to the
	// backend, so the ticker does not re-dispatch them while their report
	// is still in flight. Entries expire after the judge timeout.
	dispatched map[int]time.Time
	// inFlight holds at most one submission per (task, author) at a time.
	// The feeder hands out submissions in ascending id order, so holding
	// the pair until the earlier submission settles keeps first solves
	// landing on the earliest accepted submission during bulk rejudges.
	inFlight map[pairKey]int
}

type pairKey struct {
	taskID, userID int
}

func NewHandler(ctx context.Context, store Store, judge base.JudgeRunner) *Handler {
	openAction.Do(func() {
		graderLogger = slog.New(wykoj.GetSlogHandler(config.C.Common.Debug, &lumberjack.Logger{
			Filename:   path.Join(config.C.Common.LogDir, "grader.log"),
			MaxSize:    50, // MB
			MaxBackups: 4,
			Compress:   true,
		}))
	})

	return &Handler{
		ctx:   ctx,
		store: store,
		judge: judge,

		wakeChan:   make(chan struct{}, 1),
		reportMode: config.C.Judge.Mode == "report",
		dispatched: make(map[int]time.Time),
		inFlight:   make(map[pairKey]int),
	}
}

func (h *Handler) Wake() {
	select {
	case h.wakeChan <- struct{}{}:
	default:
	}
}

func (h *Handler) handle() error {
	for {
		select {
		case <-h.ctx.Done():
			if !errors.Is(h.ctx.Err(), context.Canceled) {
				return h.ctx.Err()
			}
			return nil
		case <-h.wakeChan:
			subs, err := h.store.Submissions(h.ctx, pendingSubs)
			if err != nil {
				slog.WarnContext(h.ctx, "Couldn't fetch pending submissions", slog.Any("err", err))
				continue
			}
			if len(subs) == 0 {
				continue
			}
			graderLogger.InfoContext(h.ctx, "Found pending submissions", slog.Int("count", len(subs)))
			var g errgroup.Group
			g.SetLimit(syncWorkers)
			for _, sub := range subs {
				if !h.acquire(sub) {
					continue
				}
				if h.reportMode {
					// Dispatching is quick, the pair stays held until
					// the report arrives.
					if err := h.executeSubmission(h.ctx, sub); err != nil {
						h.release(sub)
						graderLogger.WarnContext(h.ctx, "Couldn't run submission",
							slog.Int("submission_id", sub.ID), slog.Any("err", err))
					}
					continue
				}
				g.Go(func() error {
					defer h.release(sub)
					if err := h.executeSubmission(h.ctx, sub); err != nil {
						graderLogger.WarnContext(h.ctx, "Couldn't run submission",
							slog.Int("submission_id", sub.ID), slog.Any("err", err))
					}
					return nil
				})
			}
			g.Wait()
		}
	}
}

// acquire reserves a submission for judging. It refuses while the submission
// still waits for its report, and while an earlier submission by the same
// author to the same task is in flight.
func (h *Handler) acquire(sub *wykoj.Submission) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.dispatched[sub.ID]; ok {
		if time.Since(t) < config.C.Judge.JudgeTimeout() {
			return false
		}
		delete(h.dispatched, sub.ID)
	}
	key := pairKey{sub.TaskID, sub.UserID}
	if id, ok := h.inFlight[key]; ok && id != sub.ID {
		t, wasDispatched := h.dispatched[id]
		if !wasDispatched || time.Since(t) < config.C.Judge.JudgeTimeout() {
			return false
		}
		// The holder's report never came, let the pair move on.
		delete(h.dispatched, id)
	}
	h.inFlight[key] = sub.ID
	return true
}

func (h *Handler) markDispatched(id int) {
	h.mu.Lock()
	h.dispatched[id] = time.Now()
	h.mu.Unlock()
}

func (h *Handler) release(sub *wykoj.Submission) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.dispatched, sub.ID)
	key := pairKey{sub.TaskID, sub.UserID}
	if h.inFlight[key] == sub.ID {
		delete(h.inFlight, key)
	}
}

func (h *Handler) Start() error {
	h.store.RegisterGrader(h)

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.Wake()
			case <-h.ctx.Done():
				return
			}
		}
	}()

	if config.C.Cache.Host != "" {
		go h.listenRedis()
	}

	return h.handle()
}

// listenRedis turns messages on the wake channel into wakeups, so a separate
// frontend process can nudge the loop without waiting for the ticker.
func (h *Handler) listenRedis() {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.C.Cache.Host,
		Password: config.C.Cache.Password,
		DB:       config.C.Cache.DB,
	})
	defer rdb.Close()

	pubsub := rdb.Subscribe(h.ctx, base.WakeChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case _, more := <-ch:
			if !more {
				return
			}
			h.Wake()
		}
	}
}
