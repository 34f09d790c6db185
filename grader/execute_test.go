package grader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/wykstemteam/wykoj"
	"github.com/wykstemteam/wykoj/base"
	"github.com/wykstemteam/wykoj/internal/config"
)

type fakeStore struct {
	mu sync.Mutex

	subs  map[int]*wykoj.Submission
	tasks map[int]*wykoj.Task
	cfgs  map[string]*wykoj.TestConfig

	results []*wykoj.TestCaseResult

	firstSolves   map[string]bool
	pointsApplied []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subs:        map[int]*wykoj.Submission{},
		tasks:       map[int]*wykoj.Task{},
		cfgs:        map[string]*wykoj.TestConfig{},
		firstSolves: map[string]bool{},
	}
}

func (f *fakeStore) Submission(ctx context.Context, id int) (*wykoj.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return nil, wykoj.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeStore) Submissions(ctx context.Context, filter wykoj.SubmissionFilter) ([]*wykoj.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*wykoj.Submission
	for _, sub := range f.subs {
		if filter.Verdict != wykoj.VerdictNone && sub.Verdict != filter.Verdict {
			continue
		}
		copied := *sub
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeStore) Task(ctx context.Context, id int) (*wykoj.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, wykoj.ErrNotFound
	}
	return task, nil
}

func (f *fakeStore) TestConfig(ctx context.Context, taskID string) (*wykoj.TestConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.cfgs[taskID]
	if !ok {
		return nil, wykoj.ErrNotFound
	}
	return cfg, nil
}

func (f *fakeStore) UpdateSubmission(ctx context.Context, id int, upd wykoj.SubmissionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return wykoj.ErrNotFound
	}
	if upd.Verdict != wykoj.VerdictNone {
		sub.Verdict = upd.Verdict
	}
	if upd.Score != nil {
		sub.Score = *upd.Score
	}
	if upd.ClearSubtaskScores {
		sub.SubtaskScores = nil
	} else if upd.SubtaskScores != nil {
		sub.SubtaskScores = upd.SubtaskScores
	}
	if upd.ClearResource {
		sub.TimeUsed, sub.MemoryUsed = nil, nil
	} else {
		if upd.TimeUsed != nil {
			sub.TimeUsed = upd.TimeUsed
		}
		if upd.MemoryUsed != nil {
			sub.MemoryUsed = upd.MemoryUsed
		}
	}
	if upd.FirstSolve != nil {
		sub.FirstSolve = *upd.FirstSolve
	}
	return nil
}

func (f *fakeStore) CreateTestCaseResults(ctx context.Context, results []*wykoj.TestCaseResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Mirrors the storage contract: the batch replaces any rows a previous
	// judging attempt left behind for the same submissions.
	fresh := map[int]bool{}
	for _, r := range results {
		fresh[r.SubmissionID] = true
	}
	var kept []*wykoj.TestCaseResult
	for _, r := range f.results {
		if !fresh[r.SubmissionID] {
			kept = append(kept, r)
		}
	}
	f.results = append(kept, results...)
	return nil
}

func (f *fakeStore) ClaimFirstSolve(ctx context.Context, sub *wykoj.Submission) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d:%d", sub.TaskID, sub.UserID)
	if f.firstSolves[key] {
		return false, nil
	}
	f.firstSolves[key] = true
	f.subs[sub.ID].FirstSolve = true
	return true, nil
}

func (f *fakeStore) ApplyContestTaskPoints(ctx context.Context, sub *wykoj.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointsApplied = append(f.pointsApplied, sub.ID)
	return nil
}

func (f *fakeStore) RegisterGrader(g base.Grader) {}

type fakeJudge struct {
	report *wykoj.JudgeReport
	err    error

	mu         sync.Mutex
	dispatched []int
}

func (j *fakeJudge) Online(ctx context.Context) bool { return true }

func (j *fakeJudge) Submit(ctx context.Context, sub *wykoj.Submission, task *wykoj.Task, cfg *wykoj.TestConfig) (*wykoj.JudgeReport, error) {
	return j.report, j.err
}

func (j *fakeJudge) Dispatch(ctx context.Context, sub *wykoj.Submission, task *wykoj.Task, cfg *wykoj.TestConfig) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.dispatched = append(j.dispatched, sub.ID)
	return j.err
}

func setupPipeline(t *testing.T, mode string, judge *fakeJudge) (*Handler, *fakeStore) {
	t.Helper()
	config.C.Common.LogDir = t.TempDir()
	config.C.Judge.Mode = mode

	store := newFakeStore()
	store.tasks[7] = &wykoj.Task{ID: 7, TaskID: "b001", TimeLimit: 1, MemoryLimit: 256}
	store.cfgs["b001"] = &wykoj.TestConfig{Mode: wykoj.GradingPlain}
	store.subs[1] = &wykoj.Submission{ID: 1, TaskID: 7, UserID: 3, Language: "cpp", Code: "int main(){}", Verdict: wykoj.VerdictPending}

	return NewHandler(context.Background(), store, judge), store
}

func acceptedReport() *wykoj.JudgeReport {
	return &wykoj.JudgeReport{TestCaseResults: []wykoj.JudgeCaseResult{
		caseResult(1, 1, wykoj.VerdictAccepted, "100", 0.2, 1400),
		caseResult(1, 2, wykoj.VerdictAccepted, "100", 0.5, 900),
	}}
}

func TestExecuteSubmissionSync(t *testing.T) {
	h, store := setupPipeline(t, "sync", &fakeJudge{report: acceptedReport()})

	if err := h.executeSubmission(context.Background(), mustSub(t, store, 1)); err != nil {
		t.Fatal(err)
	}

	sub := store.subs[1]
	if sub.Verdict != wykoj.VerdictAccepted {
		t.Fatalf("verdict = %q", sub.Verdict)
	}
	if !sub.Score.Equal(dec("100")) {
		t.Fatalf("score = %v", sub.Score)
	}
	if sub.TimeUsed == nil || *sub.TimeUsed != 0.5 {
		t.Fatalf("time used = %v", sub.TimeUsed)
	}
	if sub.MemoryUsed == nil || *sub.MemoryUsed != 1400 {
		t.Fatalf("memory used = %v", sub.MemoryUsed)
	}
	if !sub.FirstSolve {
		t.Fatal("first solve not claimed")
	}
	if len(store.results) != 2 {
		t.Fatalf("stored %d results", len(store.results))
	}
	if len(store.pointsApplied) != 1 {
		t.Fatalf("contest points applied %d times", len(store.pointsApplied))
	}
}

func TestExecuteSubmissionJudgeFailure(t *testing.T) {
	h, store := setupPipeline(t, "sync", &fakeJudge{err: errors.New("connection refused")})

	if err := h.executeSubmission(context.Background(), mustSub(t, store, 1)); err == nil {
		t.Fatal("expected error")
	}
	if store.subs[1].Verdict != wykoj.VerdictSystemError {
		t.Fatalf("verdict = %q, want se", store.subs[1].Verdict)
	}
}

func TestExecuteSubmissionBareCompilationError(t *testing.T) {
	h, store := setupPipeline(t, "sync", &fakeJudge{report: &wykoj.JudgeReport{Verdict: wykoj.VerdictCompilationError}})

	if err := h.executeSubmission(context.Background(), mustSub(t, store, 1)); err != nil {
		t.Fatal(err)
	}
	sub := store.subs[1]
	if sub.Verdict != wykoj.VerdictCompilationError {
		t.Fatalf("verdict = %q", sub.Verdict)
	}
	if !sub.Score.IsZero() {
		t.Fatalf("score = %v", sub.Score)
	}
	if sub.FirstSolve {
		t.Fatal("compilation error must not claim first solve")
	}
	if len(store.results) != 0 {
		t.Fatalf("stored %d results", len(store.results))
	}
}

func TestReportModeRoundTrip(t *testing.T) {
	judge := &fakeJudge{}
	h, store := setupPipeline(t, "report", judge)

	if err := h.executeSubmission(context.Background(), mustSub(t, store, 1)); err != nil {
		t.Fatal(err)
	}
	if store.subs[1].Verdict != wykoj.VerdictPending {
		t.Fatalf("dispatch must leave the submission pending, got %q", store.subs[1].Verdict)
	}
	if len(judge.dispatched) != 1 {
		t.Fatalf("dispatched %d times", len(judge.dispatched))
	}
	if h.acquire(mustSub(t, store, 1)) {
		t.Fatal("dispatched submission should be skipped by the feeder")
	}

	if err := h.ProcessReport(context.Background(), 1, acceptedReport()); err != nil {
		t.Fatal(err)
	}
	if store.subs[1].Verdict != wykoj.VerdictAccepted {
		t.Fatalf("verdict = %q", store.subs[1].Verdict)
	}
	settled := mustSub(t, store, 1)
	if !h.acquire(settled) {
		t.Fatal("settled submission should no longer be held")
	}
	h.release(settled)

	// A backend retry of the same report must change nothing.
	if err := h.ProcessReport(context.Background(), 1, acceptedReport()); err != nil {
		t.Fatal(err)
	}
	if len(store.results) != 2 {
		t.Fatalf("duplicate report duplicated results: %d rows", len(store.results))
	}
	if len(store.pointsApplied) != 1 {
		t.Fatalf("duplicate report re-applied points: %d times", len(store.pointsApplied))
	}
}

// flakyStore fails a number of submission updates before recovering, like a
// database that is briefly unreachable while results are being persisted.
type flakyStore struct {
	*fakeStore
	failUpdates int
}

func (f *flakyStore) UpdateSubmission(ctx context.Context, id int, upd wykoj.SubmissionUpdate) error {
	if f.failUpdates > 0 {
		f.failUpdates--
		return errors.New("connection reset")
	}
	return f.fakeStore.UpdateSubmission(ctx, id, upd)
}

func TestReportRetryAfterFailedVerdictWrite(t *testing.T) {
	judge := &fakeJudge{}
	_, store := setupPipeline(t, "report", judge)
	flaky := &flakyStore{fakeStore: store, failUpdates: 2}
	h := NewHandler(context.Background(), flaky, judge)

	// Both the verdict write and the system-error fallback fail, leaving the
	// submission Pending with its result rows already stored.
	if err := h.ProcessReport(context.Background(), 1, acceptedReport()); err == nil {
		t.Fatal("expected error")
	}
	if store.subs[1].Verdict != wykoj.VerdictPending {
		t.Fatalf("verdict = %q, want pending", store.subs[1].Verdict)
	}
	if len(store.results) != 2 {
		t.Fatalf("stored %d results after failed attempt", len(store.results))
	}

	// The backend retries the identical report once the store recovers. It
	// must settle the submission without duplicating any rows or side effects.
	if err := h.ProcessReport(context.Background(), 1, acceptedReport()); err != nil {
		t.Fatal(err)
	}
	sub := store.subs[1]
	if sub.Verdict != wykoj.VerdictAccepted || !sub.Score.Equal(dec("100")) {
		t.Fatalf("verdict = %q, score = %v", sub.Verdict, sub.Score)
	}
	if len(store.results) != 2 {
		t.Fatalf("retried report duplicated results: %d rows", len(store.results))
	}
	if len(store.pointsApplied) != 1 {
		t.Fatalf("contest points applied %d times", len(store.pointsApplied))
	}
}

func TestReportModeSerializesPerAuthorTask(t *testing.T) {
	judge := &fakeJudge{}
	h, store := setupPipeline(t, "report", judge)
	store.subs[2] = &wykoj.Submission{ID: 2, TaskID: 7, UserID: 3, Language: "cpp", Code: "int main(){}", Verdict: wykoj.VerdictPending}
	store.subs[3] = &wykoj.Submission{ID: 3, TaskID: 7, UserID: 4, Language: "cpp", Code: "int main(){}", Verdict: wykoj.VerdictPending}

	first := mustSub(t, store, 1)
	if !h.acquire(first) {
		t.Fatal("first submission should be acquired")
	}
	if err := h.executeSubmission(context.Background(), first); err != nil {
		t.Fatal(err)
	}

	// A later submission by the same author to the same task must wait for
	// the first one's report, so the first solve lands on the lower id.
	if h.acquire(mustSub(t, store, 2)) {
		t.Fatal("second submission for the pair must wait for the first report")
	}
	// A different author is not held back.
	other := mustSub(t, store, 3)
	if !h.acquire(other) {
		t.Fatal("other author's submission should proceed")
	}
	h.release(other)

	if err := h.ProcessReport(context.Background(), 1, acceptedReport()); err != nil {
		t.Fatal(err)
	}
	if !store.subs[1].FirstSolve {
		t.Fatal("first solve should land on the earliest submission")
	}
	if !h.acquire(mustSub(t, store, 2)) {
		t.Fatal("pair should be free once the first submission settled")
	}
}

func TestProcessReportInvalidAggregation(t *testing.T) {
	h, store := setupPipeline(t, "report", &fakeJudge{})
	store.cfgs["b001"] = &wykoj.TestConfig{Mode: wykoj.GradingBatched, Points: []int{100}}

	report := &wykoj.JudgeReport{TestCaseResults: []wykoj.JudgeCaseResult{
		caseResult(5, 1, wykoj.VerdictAccepted, "100", 0.1, 100),
	}}
	if err := h.ProcessReport(context.Background(), 1, report); err == nil {
		t.Fatal("expected error")
	}
	if store.subs[1].Verdict != wykoj.VerdictSystemError {
		t.Fatalf("verdict = %q, want se", store.subs[1].Verdict)
	}
}

func mustSub(t *testing.T, store *fakeStore, id int) *wykoj.Submission {
	t.Helper()
	sub, err := store.Submission(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return sub
}
