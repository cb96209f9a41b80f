package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/query"
	"github.com/Veraticus/the-books-must-balance/internal/service"
)

// DefaultMinConfidence is the auto-reconcile threshold used when none is configured.
const DefaultMinConfidence = 0.9

// ErrNothingSelected is returned by bulk actions called with no transactions.
var ErrNothingSelected = errors.New("no transactions selected")

// Status is the non-error result of a write action.
type Status int

// Action statuses. A declined confirmation is StatusCancelled, never an error.
const (
	StatusApplied Status = iota
	StatusCancelled
	StatusNoMatches
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusCancelled:
		return "cancelled"
	case StatusNoMatches:
		return "no matches"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome describes a completed write. Count is the number of transactions or
// suggestions the server reported as affected.
type Outcome struct {
	Status Status
	Count  int
}

// Dispatcher issues reconciliation writes and invalidates every reconciliation
// read after each success.
type Dispatcher struct {
	api           service.ReconciliationAPI
	confirmer     service.Confirmer
	notifier      service.Notifier
	confirm       *query.Mutation
	reject        *query.Mutation
	auto          *query.Mutation
	mark          *query.Mutation
	unmark        *query.Mutation
	remove        *query.Mutation
	businessID    string
	minConfidence float64
}

// DispatcherConfig holds the per-business settings of a Dispatcher.
type DispatcherConfig struct {
	BusinessID    string
	MinConfidence float64
}

// NewDispatcher creates a dispatcher. A nil notifier discards messages.
func NewDispatcher(api service.ReconciliationAPI, cache *query.Cache, confirmer service.Confirmer, notifier service.Notifier, cfg DispatcherConfig) *Dispatcher {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	return &Dispatcher{
		api:           api,
		confirmer:     confirmer,
		notifier:      notifier,
		businessID:    cfg.BusinessID,
		minConfidence: cfg.MinConfidence,
		confirm:       query.NewMutation(cache, "confirm-match", AllQueries...),
		reject:        query.NewMutation(cache, "reject-match", AllQueries...),
		auto:          query.NewMutation(cache, "auto-reconcile", AllQueries...),
		mark:          query.NewMutation(cache, "mark-reconciled", AllQueries...),
		unmark:        query.NewMutation(cache, "mark-unreconciled", AllQueries...),
		remove:        query.NewMutation(cache, "delete-transaction", AllQueries...),
	}
}

// Pending reports whether any write is in flight.
func (d *Dispatcher) Pending() bool {
	for _, m := range []*query.Mutation{d.confirm, d.reject, d.auto, d.mark, d.unmark, d.remove} {
		if m.Pending() {
			return true
		}
	}
	return false
}

// ConfirmMatch accepts a suggestion, reconciling its transaction against the
// suggested payment or bill payment.
func (d *Dispatcher) ConfirmMatch(ctx context.Context, suggestion model.MatchSuggestion) (Outcome, error) {
	const fallback = "Failed to confirm match"
	if err := d.ready(); err != nil {
		return Outcome{}, err
	}
	if err := suggestion.Validate(); err != nil {
		return d.fail(err, fallback)
	}

	err := d.confirm.Run(ctx, d.businessID, func(ctx context.Context) error {
		return d.api.ConfirmMatch(ctx, d.businessID, suggestion.ConfirmRequest())
	})
	if err != nil {
		return d.fail(err, fallback)
	}

	d.notifier.Success("Match confirmed")
	return Outcome{Status: StatusApplied, Count: 1}, nil
}

// RejectMatch discards a suggestion for good.
func (d *Dispatcher) RejectMatch(ctx context.Context, suggestionID string) (Outcome, error) {
	const fallback = "Failed to reject match"
	if err := d.ready(); err != nil {
		return Outcome{}, err
	}
	if suggestionID == "" {
		return d.fail(fmt.Errorf("%w: missing suggestion id", model.ErrInvalidSuggestion), fallback)
	}

	err := d.reject.Run(ctx, d.businessID, func(ctx context.Context) error {
		return d.api.RejectMatch(ctx, d.businessID, model.RejectMatchRequest{SuggestionID: suggestionID})
	})
	if err != nil {
		return d.fail(err, fallback)
	}

	d.notifier.Success("Match rejected")
	return Outcome{Status: StatusApplied, Count: 1}, nil
}

// AutoReconcile asks the server to find new high-confidence matches. A
// non-positive minConfidence uses the configured threshold. Finding nothing
// is reported as StatusNoMatches, not as an error.
func (d *Dispatcher) AutoReconcile(ctx context.Context, minConfidence float64) (Outcome, error) {
	if err := d.ready(); err != nil {
		return Outcome{}, err
	}
	if minConfidence <= 0 {
		minConfidence = d.minConfidence
	}

	var resp model.AutoReconcileResponse
	err := d.auto.Run(ctx, d.businessID, func(ctx context.Context) error {
		var runErr error
		resp, runErr = d.api.AutoReconcile(ctx, d.businessID, minConfidence)
		return runErr
	})
	if err != nil {
		return d.fail(err, "Auto-reconcile failed")
	}

	if resp.SuggestionsFound == 0 {
		d.notifier.Error("No high-confidence matches found to auto-reconcile")
		return Outcome{Status: StatusNoMatches}, nil
	}

	d.notifier.Success(fmt.Sprintf("Auto-reconciled %s", plural(resp.SuggestionsFound, "transaction")))
	return Outcome{Status: StatusApplied, Count: resp.SuggestionsFound}, nil
}

// MarkReconciled reconciles transactions by hand after the user accepts a
// warning that doing so bypasses payment matching. Declining sends nothing.
func (d *Dispatcher) MarkReconciled(ctx context.Context, transactionIDs []string) (Outcome, error) {
	const fallback = "Failed to mark transactions as reconciled"
	if err := d.ready(); err != nil {
		return Outcome{}, err
	}
	if len(transactionIDs) == 0 {
		return Outcome{}, ErrNothingSelected
	}

	ok, err := d.ask(ctx, "Mark as reconciled",
		fmt.Sprintf("Manual reconciliation bypasses payment matching and should be reserved for transfers and adjustments. Mark %s as reconciled?",
			plural(len(transactionIDs), "transaction")))
	if err != nil || !ok {
		return Outcome{Status: StatusCancelled}, err
	}

	var resp model.MarkResponse
	err = d.mark.Run(ctx, d.businessID, func(ctx context.Context) error {
		var runErr error
		resp, runErr = d.api.MarkReconciled(ctx, d.businessID, transactionIDs)
		return runErr
	})
	if err != nil {
		return d.fail(err, fallback)
	}

	d.notifier.Success(fmt.Sprintf("Marked %s as reconciled", plural(resp.UpdatedCount, "transaction")))
	return Outcome{Status: StatusApplied, Count: resp.UpdatedCount}, nil
}

// MarkSelected marks the selected transactions as reconciled. The selection
// is cleared only when the write succeeds.
func (d *Dispatcher) MarkSelected(ctx context.Context, selection *Selection) (Outcome, error) {
	outcome, err := d.MarkReconciled(ctx, selection.IDs())
	if err == nil && outcome.Status == StatusApplied {
		selection.Clear()
	}
	return outcome, err
}

// MarkUnreconciled reverses manual or automatic reconciliation.
func (d *Dispatcher) MarkUnreconciled(ctx context.Context, transactionIDs []string) (Outcome, error) {
	if err := d.ready(); err != nil {
		return Outcome{}, err
	}
	if len(transactionIDs) == 0 {
		return Outcome{}, ErrNothingSelected
	}

	var resp model.MarkResponse
	err := d.unmark.Run(ctx, d.businessID, func(ctx context.Context) error {
		var runErr error
		resp, runErr = d.api.MarkUnreconciled(ctx, d.businessID, transactionIDs)
		return runErr
	})
	if err != nil {
		return d.fail(err, "Failed to mark transactions as unreconciled")
	}

	d.notifier.Success(fmt.Sprintf("Marked %s as unreconciled", plural(resp.UpdatedCount, "transaction")))
	return Outcome{Status: StatusApplied, Count: resp.UpdatedCount}, nil
}

// DeleteTransaction removes one side of a duplicate pair after the user
// confirms a prompt naming the vendor and id.
func (d *Dispatcher) DeleteTransaction(ctx context.Context, txn model.Transaction) (Outcome, error) {
	if err := d.ready(); err != nil {
		return Outcome{}, err
	}
	if txn.ID == "" {
		return Outcome{}, common.NewUserError("A transaction id is required.", nil)
	}

	ok, err := d.ask(ctx, "Delete transaction",
		fmt.Sprintf("Delete %s (id %s)? This cannot be undone.", txn.VendorName, txn.ID))
	if err != nil || !ok {
		return Outcome{Status: StatusCancelled}, err
	}

	err = d.remove.Run(ctx, d.businessID, func(ctx context.Context) error {
		return d.api.DeleteTransaction(ctx, d.businessID, string(txn.ID))
	})
	if err != nil {
		return d.fail(err, "Failed to delete transaction")
	}

	d.notifier.Success("Transaction deleted")
	return Outcome{Status: StatusApplied, Count: 1}, nil
}

func (d *Dispatcher) ready() error {
	if d.businessID == "" {
		return fmt.Errorf("%w: business id", common.ErrMissingConfig)
	}
	return nil
}

func (d *Dispatcher) ask(ctx context.Context, title, message string) (bool, error) {
	if d.confirmer == nil {
		return false, errors.New("no confirmer configured")
	}
	ok, err := d.confirmer.Confirm(ctx, title, message)
	if err != nil {
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	return ok, nil
}

// fail reports a write failure to the user and returns it. A duplicate
// submission is returned without a notification.
func (d *Dispatcher) fail(err error, fallback string) (Outcome, error) {
	if errors.Is(err, query.ErrInFlight) {
		return Outcome{}, err
	}
	common.LogError(err, fallback, common.Fields{"business_id": d.businessID})
	d.notifier.Error(common.UserMessage(err, fallback))
	return Outcome{}, err
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

type discardNotifier struct{}

func (discardNotifier) Success(string) {}
func (discardNotifier) Error(string)   {}
