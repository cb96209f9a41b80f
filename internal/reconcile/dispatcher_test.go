package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/api"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatcherFixture struct {
	api       *fakeAPI
	cache     *query.Cache
	confirmer *fakeConfirmer
	notifier  *recordingNotifier
	d         *Dispatcher
}

func newDispatcherFixture(answer bool) *dispatcherFixture {
	fx := &dispatcherFixture{
		api:       newFakeAPI(),
		cache:     newTestCache(),
		confirmer: &fakeConfirmer{answer: answer},
		notifier:  &recordingNotifier{},
	}
	fx.d = NewDispatcher(fx.api, fx.cache, fx.confirmer, fx.notifier, DispatcherConfig{BusinessID: "biz"})
	return fx
}

// seed fills every reconciliation query for biz and another business.
func (fx *dispatcherFixture) seed() {
	for _, name := range AllQueries {
		fx.cache.Set(query.Key{Name: name, Scope: "biz"}, "cached")
		fx.cache.Set(query.Key{Name: name, Scope: "other"}, "cached")
	}
}

func (fx *dispatcherFixture) cached(scope string) int {
	n := 0
	for _, name := range AllQueries {
		if _, ok := fx.cache.Get(query.Key{Name: name, Scope: scope}); ok {
			n++
		}
	}
	return n
}

func TestDispatcherSuccessInvalidatesAllQueries(t *testing.T) {
	suggestion := suggestionFor("s1", "t1")

	tests := []struct {
		name    string
		call    string
		run     func(context.Context, *Dispatcher) (Outcome, error)
		success string
	}{
		{
			name:    "confirm match",
			call:    "confirm",
			run:     func(ctx context.Context, d *Dispatcher) (Outcome, error) { return d.ConfirmMatch(ctx, suggestion) },
			success: "Match confirmed",
		},
		{
			name:    "reject match",
			call:    "reject",
			run:     func(ctx context.Context, d *Dispatcher) (Outcome, error) { return d.RejectMatch(ctx, "s1") },
			success: "Match rejected",
		},
		{
			name:    "mark reconciled",
			call:    "mark",
			run:     func(ctx context.Context, d *Dispatcher) (Outcome, error) { return d.MarkReconciled(ctx, []string{"t1", "t2"}) },
			success: "Marked 2 transactions as reconciled",
		},
		{
			name:    "mark unreconciled",
			call:    "unmark",
			run:     func(ctx context.Context, d *Dispatcher) (Outcome, error) { return d.MarkUnreconciled(ctx, []string{"t1"}) },
			success: "Marked 1 transaction as unreconciled",
		},
		{
			name: "delete transaction",
			call: "delete",
			run: func(ctx context.Context, d *Dispatcher) (Outcome, error) {
				return d.DeleteTransaction(ctx, model.Transaction{ID: "t9", VendorName: "Acme"})
			},
			success: "Transaction deleted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newDispatcherFixture(true)
			fx.seed()

			outcome, err := tt.run(context.Background(), fx.d)
			require.NoError(t, err)
			assert.Equal(t, StatusApplied, outcome.Status)
			assert.Equal(t, 1, fx.api.count(tt.call))
			assert.Zero(t, fx.cached("biz"), "every query for the business is invalidated")
			assert.Equal(t, len(AllQueries), fx.cached("other"), "other businesses are untouched")
			assert.Equal(t, []string{tt.success}, fx.notifier.successes)
			assert.Empty(t, fx.notifier.errors)
		})
	}
}

func TestDispatcherFailureKeepsCache(t *testing.T) {
	fx := newDispatcherFixture(true)
	fx.seed()
	fx.api.errs["confirm"] = &api.Error{StatusCode: 409, Message: "Transaction already reconciled"}

	_, err := fx.d.ConfirmMatch(context.Background(), suggestionFor("s1", "t1"))
	require.Error(t, err)
	assert.Equal(t, len(AllQueries), fx.cached("biz"))
	assert.Equal(t, []string{"Transaction already reconciled"}, fx.notifier.errors)
	assert.Empty(t, fx.notifier.successes)
}

func TestDispatcherFailureFallsBackToGenericMessage(t *testing.T) {
	fx := newDispatcherFixture(true)
	fx.api.errs["reject"] = errors.New("connection reset")

	_, err := fx.d.RejectMatch(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, []string{"Failed to reject match"}, fx.notifier.errors)
}

func TestConfirmMatchSendsSuggestionFields(t *testing.T) {
	fx := newDispatcherFixture(true)
	s := suggestionFor("s1", "t1")
	s.SuggestedMatch.MatchType = model.MatchBillPayment

	_, err := fx.d.ConfirmMatch(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, model.ConfirmMatchRequest{TransactionID: "t1", MatchID: "pay-s1", MatchType: model.MatchBillPayment}, fx.api.lastConfirm)
}

func TestConfirmMatchRejectsInvalidSuggestion(t *testing.T) {
	fx := newDispatcherFixture(true)
	_, err := fx.d.ConfirmMatch(context.Background(), model.MatchSuggestion{SuggestionID: "s1"})
	require.ErrorIs(t, err, model.ErrInvalidSuggestion)
	assert.Zero(t, fx.api.total())
}

func TestAutoReconcile(t *testing.T) {
	t.Run("matches found", func(t *testing.T) {
		fx := newDispatcherFixture(true)
		fx.api.found = 3

		outcome, err := fx.d.AutoReconcile(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, Outcome{Status: StatusApplied, Count: 3}, outcome)
		assert.InDelta(t, 0.9, fx.api.lastMinConf, 1e-9)
		assert.Equal(t, []string{"Auto-reconciled 3 transactions"}, fx.notifier.successes)
	})

	t.Run("nothing found is distinct from failure", func(t *testing.T) {
		fx := newDispatcherFixture(true)
		fx.seed()

		outcome, err := fx.d.AutoReconcile(context.Background(), 0.75)
		require.NoError(t, err)
		assert.Equal(t, StatusNoMatches, outcome.Status)
		assert.InDelta(t, 0.75, fx.api.lastMinConf, 1e-9)
		assert.Equal(t, []string{"No high-confidence matches found to auto-reconcile"}, fx.notifier.errors)
		assert.Zero(t, fx.cached("biz"))
	})

	t.Run("server failure", func(t *testing.T) {
		fx := newDispatcherFixture(true)
		fx.api.errs["auto"] = common.ErrServer

		_, err := fx.d.AutoReconcile(context.Background(), 0)
		require.ErrorIs(t, err, common.ErrServer)
		assert.Equal(t, []string{"Auto-reconcile failed"}, fx.notifier.errors)
	})
}

func TestMarkReconciledDeclined(t *testing.T) {
	fx := newDispatcherFixture(false)
	fx.seed()

	outcome, err := fx.d.MarkReconciled(context.Background(), []string{"t1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, outcome.Status)
	assert.Zero(t, fx.api.total(), "declining sends nothing")
	assert.Empty(t, fx.notifier.errors)
	assert.Empty(t, fx.notifier.successes)
	assert.Equal(t, len(AllQueries), fx.cached("biz"))
	require.Len(t, fx.confirmer.messages, 1)
	assert.Contains(t, fx.confirmer.messages[0], "bypasses payment matching")
}

func TestMarkReconciledNothingSelected(t *testing.T) {
	fx := newDispatcherFixture(true)
	_, err := fx.d.MarkReconciled(context.Background(), nil)
	require.ErrorIs(t, err, ErrNothingSelected)
	assert.Empty(t, fx.confirmer.messages)
	assert.Zero(t, fx.api.total())
}

func TestMarkSelectedClearsOnlyOnSuccess(t *testing.T) {
	fx := newDispatcherFixture(true)
	sel := NewSelection()
	sel.SelectAll([]string{"t1", "t2"})

	fx.api.errs["mark"] = common.ErrServer
	_, err := fx.d.MarkSelected(context.Background(), sel)
	require.Error(t, err)
	assert.Equal(t, 2, sel.Len(), "selection survives a failed attempt")

	delete(fx.api.errs, "mark")
	outcome, err := fx.d.MarkSelected(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Count)
	assert.Equal(t, []string{"t1", "t2"}, fx.api.lastIDs)
	assert.Zero(t, sel.Len())
}

func TestMarkSelectedDeclinedKeepsSelection(t *testing.T) {
	fx := newDispatcherFixture(false)
	sel := NewSelection()
	sel.Toggle("t1")

	outcome, err := fx.d.MarkSelected(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, outcome.Status)
	assert.Equal(t, 1, sel.Len())
}

func TestDeleteTransactionPromptNamesVendorAndID(t *testing.T) {
	fx := newDispatcherFixture(false)

	outcome, err := fx.d.DeleteTransaction(context.Background(), model.Transaction{ID: "t9", VendorName: "Acme Corp"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, outcome.Status)
	require.Len(t, fx.confirmer.messages, 1)
	assert.Contains(t, fx.confirmer.messages[0], "Acme Corp")
	assert.Contains(t, fx.confirmer.messages[0], "t9")
	assert.Zero(t, fx.api.count("delete"))
}

func TestConfirmerErrorSendsNothing(t *testing.T) {
	fx := newDispatcherFixture(true)
	fx.confirmer.err = context.Canceled

	_, err := fx.d.MarkReconciled(context.Background(), []string{"t1"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fx.api.total())
}

func TestDispatcherRequiresBusiness(t *testing.T) {
	fake := newFakeAPI()
	d := NewDispatcher(fake, newTestCache(), &fakeConfirmer{answer: true}, nil, DispatcherConfig{})
	_, err := d.RejectMatch(context.Background(), "s1")
	require.ErrorIs(t, err, common.ErrMissingConfig)
	assert.Zero(t, fake.total())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "applied", StatusApplied.String())
	assert.Equal(t, "cancelled", StatusCancelled.String())
	assert.Equal(t, "no matches", StatusNoMatches.String())
}
