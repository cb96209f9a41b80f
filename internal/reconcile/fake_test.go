package reconcile

import (
	"context"
	"sync"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// fakeAPI records every call and serves canned data.
type fakeAPI struct {
	calls        map[string]int
	errs         map[string]error
	summary      model.ReconciliationSummary
	suggestions  []model.MatchSuggestion
	unreconciled []model.Transaction
	reconciled   []model.Transaction
	duplicates   []model.DuplicateGroup
	lastIDs      []string
	lastPage     model.Page
	lastConfirm  model.ConfirmMatchRequest
	lastMinConf  float64
	found        int
	mu           sync.Mutex
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int), errs: make(map[string]error)}
}

func (f *fakeAPI) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.errs[name]
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) GetReconciliationSummary(context.Context, string) (model.ReconciliationSummary, error) {
	return f.summary, f.record("summary")
}

func (f *fakeAPI) GetSuggestions(context.Context, string) ([]model.MatchSuggestion, error) {
	return f.suggestions, f.record("suggestions")
}

func (f *fakeAPI) GetUnreconciled(_ context.Context, _ string, page model.Page) ([]model.Transaction, error) {
	f.mu.Lock()
	f.lastPage = page
	f.mu.Unlock()
	return f.unreconciled, f.record("unreconciled")
}

func (f *fakeAPI) GetReconciled(context.Context, string, model.Page) ([]model.Transaction, error) {
	return f.reconciled, f.record("reconciled")
}

func (f *fakeAPI) GetDuplicates(context.Context, string) ([]model.DuplicateGroup, error) {
	return f.duplicates, f.record("duplicates")
}

func (f *fakeAPI) ConfirmMatch(_ context.Context, _ string, req model.ConfirmMatchRequest) error {
	f.lastConfirm = req
	return f.record("confirm")
}

func (f *fakeAPI) RejectMatch(context.Context, string, model.RejectMatchRequest) error {
	return f.record("reject")
}

func (f *fakeAPI) AutoReconcile(_ context.Context, _ string, minConfidence float64) (model.AutoReconcileResponse, error) {
	f.lastMinConf = minConfidence
	return model.AutoReconcileResponse{SuggestionsFound: f.found}, f.record("auto")
}

func (f *fakeAPI) MarkReconciled(_ context.Context, _ string, ids []string) (model.MarkResponse, error) {
	f.lastIDs = ids
	return model.MarkResponse{UpdatedCount: len(ids)}, f.record("mark")
}

func (f *fakeAPI) MarkUnreconciled(_ context.Context, _ string, ids []string) (model.MarkResponse, error) {
	f.lastIDs = ids
	return model.MarkResponse{UpdatedCount: len(ids)}, f.record("unmark")
}

func (f *fakeAPI) DeleteTransaction(_ context.Context, _ string, id string) error {
	f.lastIDs = []string{id}
	return f.record("delete")
}

type fakeConfirmer struct {
	err      error
	messages []string
	answer   bool
}

func (c *fakeConfirmer) Confirm(_ context.Context, _, message string) (bool, error) {
	c.messages = append(c.messages, message)
	return c.answer, c.err
}

type recordingNotifier struct {
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *recordingNotifier) Error(msg string)   { n.errors = append(n.errors, msg) }
