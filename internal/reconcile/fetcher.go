package reconcile

import (
	"context"
	"sync/atomic"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/query"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/sourcegraph/conc"
)

// Fetcher exposes the five reconciliation reads as cached queries scoped to
// one business.
type Fetcher struct {
	api            service.ReconciliationAPI
	cache          *query.Cache
	businessID     string
	pageSize       int
	showReconciled atomic.Bool
}

// NewFetcher creates a fetcher. An empty businessID disables every query.
func NewFetcher(api service.ReconciliationAPI, cache *query.Cache, businessID string, pageSize int) *Fetcher {
	if pageSize <= 0 {
		pageSize = model.DefaultPageSize
	}
	return &Fetcher{
		api:        api,
		cache:      cache,
		businessID: businessID,
		pageSize:   pageSize,
	}
}

// BusinessID returns the scope of every query.
func (f *Fetcher) BusinessID() string {
	return f.businessID
}

// FirstPage returns the first page at the configured size.
func (f *Fetcher) FirstPage() model.Page {
	return model.Page{Limit: f.pageSize}
}

// ShowReconciled toggles the reconciled-transactions section. The reconciled
// query stays disabled until it is shown.
func (f *Fetcher) ShowReconciled(show bool) {
	f.showReconciled.Store(show)
}

// ReconciledVisible reports whether the reconciled section is shown.
func (f *Fetcher) ReconciledVisible() bool {
	return f.showReconciled.Load()
}

func (f *Fetcher) enabled() bool {
	return f.businessID != ""
}

// Summary returns the reconciliation counters.
func (f *Fetcher) Summary(ctx context.Context) query.Result[model.ReconciliationSummary] {
	return query.Fetch(ctx, f.cache, key(SummaryQuery, f.businessID, ""), f.enabled(),
		func(ctx context.Context) (model.ReconciliationSummary, error) {
			return f.api.GetReconciliationSummary(ctx, f.businessID)
		})
}

// Suggestions returns the live match suggestions.
func (f *Fetcher) Suggestions(ctx context.Context) query.Result[[]model.MatchSuggestion] {
	return query.Fetch(ctx, f.cache, key(SuggestionsQuery, f.businessID, ""), f.enabled(),
		func(ctx context.Context) ([]model.MatchSuggestion, error) {
			return f.api.GetSuggestions(ctx, f.businessID)
		})
}

// Unreconciled returns one page of unreconciled transactions.
func (f *Fetcher) Unreconciled(ctx context.Context, page model.Page) query.Result[[]model.Transaction] {
	page = f.normalize(page)
	return query.Fetch(ctx, f.cache, key(UnreconciledQuery, f.businessID, pageParams(page)), f.enabled(),
		func(ctx context.Context) ([]model.Transaction, error) {
			return f.api.GetUnreconciled(ctx, f.businessID, page)
		})
}

// Reconciled returns one page of reconciled transactions once the section is
// shown; until then the result is disabled and no request is made.
func (f *Fetcher) Reconciled(ctx context.Context, page model.Page) query.Result[[]model.Transaction] {
	page = f.normalize(page)
	enabled := f.enabled() && f.showReconciled.Load()
	return query.Fetch(ctx, f.cache, key(ReconciledQuery, f.businessID, pageParams(page)), enabled,
		func(ctx context.Context) ([]model.Transaction, error) {
			return f.api.GetReconciled(ctx, f.businessID, page)
		})
}

// Duplicates returns the groups of suspected duplicate transactions.
func (f *Fetcher) Duplicates(ctx context.Context) query.Result[[]model.DuplicateGroup] {
	return query.Fetch(ctx, f.cache, key(DuplicatesQuery, f.businessID, ""), f.enabled(),
		func(ctx context.Context) ([]model.DuplicateGroup, error) {
			return f.api.GetDuplicates(ctx, f.businessID)
		})
}

func (f *Fetcher) normalize(page model.Page) model.Page {
	if page.Limit <= 0 {
		page.Limit = f.pageSize
	}
	return page.Normalize()
}

// Snapshot holds the first page of every section. Each section carries its
// own status and error.
type Snapshot struct {
	Summary      query.Result[model.ReconciliationSummary]
	Suggestions  query.Result[[]model.MatchSuggestion]
	Unreconciled query.Result[[]model.Transaction]
	Reconciled   query.Result[[]model.Transaction]
	Duplicates   query.Result[[]model.DuplicateGroup]
}

// UnreconciledOnly returns the unreconciled transactions that have no live suggestion.
func (s Snapshot) UnreconciledOnly() []model.Transaction {
	return UnreconciledOnly(s.Unreconciled.Data, s.Suggestions.Data)
}

// Failed returns the errors of every section that failed.
func (s Snapshot) Failed() map[string]error {
	failed := make(map[string]error)
	add := func(name string, status query.Status, err error) {
		if status == query.StatusFailed {
			failed[name] = err
		}
	}
	add(SummaryQuery, s.Summary.Status, s.Summary.Err)
	add(SuggestionsQuery, s.Suggestions.Status, s.Suggestions.Err)
	add(UnreconciledQuery, s.Unreconciled.Status, s.Unreconciled.Err)
	add(ReconciledQuery, s.Reconciled.Status, s.Reconciled.Err)
	add(DuplicatesQuery, s.Duplicates.Status, s.Duplicates.Err)
	return failed
}

// Load issues all five queries concurrently. They resolve independently and
// one failure never hides the others.
func (f *Fetcher) Load(ctx context.Context) Snapshot {
	var snap Snapshot
	page := f.FirstPage()

	var wg conc.WaitGroup
	wg.Go(func() { snap.Summary = f.Summary(ctx) })
	wg.Go(func() { snap.Suggestions = f.Suggestions(ctx) })
	wg.Go(func() { snap.Unreconciled = f.Unreconciled(ctx, page) })
	wg.Go(func() { snap.Reconciled = f.Reconciled(ctx, page) })
	wg.Go(func() { snap.Duplicates = f.Duplicates(ctx) })
	wg.Wait()

	return snap
}

// UnreconciledOnly subtracts every transaction that already carries a
// suggestion, so no transaction is offered for two different actions.
func UnreconciledOnly(unreconciled []model.Transaction, suggestions []model.MatchSuggestion) []model.Transaction {
	suggested := make(map[model.ID]struct{}, len(suggestions))
	for _, s := range suggestions {
		suggested[s.Transaction.ID] = struct{}{}
	}

	out := make([]model.Transaction, 0, len(unreconciled))
	for _, t := range unreconciled {
		if _, ok := suggested[t.ID]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}
