package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MatchType identifies the kind of counterparty record a suggestion points at.
type MatchType string

// Match types understood by the reconciliation API.
const (
	MatchPayment     MatchType = "payment"
	MatchBillPayment MatchType = "bill_payment"
)

// IsValid reports whether m is a known match type.
func (m MatchType) IsValid() bool {
	return m == MatchPayment || m == MatchBillPayment
}

// Label is the display name of the counterparty kind.
func (m MatchType) Label() string {
	switch m {
	case MatchPayment:
		return "Customer payment"
	case MatchBillPayment:
		return "Bill payment"
	default:
		return string(m)
	}
}

// ConfidenceLevel buckets a match confidence for display.
type ConfidenceLevel string

// Confidence levels.
const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

var (
	highConfidence   = decimal.RequireFromString("0.8")
	mediumConfidence = decimal.RequireFromString("0.5")
)

// ReconciliationSummary holds the reconciliation counters for a business.
type ReconciliationSummary struct {
	TotalTransactions int `json:"total_transactions"`
	Reconciled        int `json:"reconciled"`
	Unreconciled      int `json:"unreconciled"`
	SuggestedMatches  int `json:"suggested_matches"`
}

// SuggestedMatch is the counterparty side of a suggestion.
type SuggestedMatch struct {
	MatchID      ID        `json:"match_id"`
	MatchType    MatchType `json:"match_type"`
	Counterparty string    `json:"counterparty"`
	Amount       string    `json:"amount"`
	Date         string    `json:"date"`
	Reference    *string   `json:"reference"`
}

// MatchSuggestion proposes pairing one transaction with one payment or bill payment.
type MatchSuggestion struct {
	SuggestionID   ID              `json:"suggestion_id"`
	Transaction    Transaction     `json:"transaction"`
	SuggestedMatch SuggestedMatch  `json:"suggested_match"`
	Confidence     decimal.Decimal `json:"confidence"`
	MatchReason    string          `json:"match_reason"`
}

// Level returns the display bucket of the suggestion's confidence.
func (s MatchSuggestion) Level() ConfidenceLevel {
	switch {
	case s.Confidence.GreaterThanOrEqual(highConfidence):
		return ConfidenceHigh
	case s.Confidence.GreaterThanOrEqual(mediumConfidence):
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Percent renders the confidence as a whole percentage.
func (s MatchSuggestion) Percent() string {
	return s.Confidence.Mul(decimal.NewFromInt(100)).StringFixed(0) + "%"
}

// ConfirmRequest builds the confirm body for this suggestion.
func (s MatchSuggestion) ConfirmRequest() ConfirmMatchRequest {
	return ConfirmMatchRequest{
		TransactionID: s.Transaction.ID,
		MatchID:       s.SuggestedMatch.MatchID,
		MatchType:     s.SuggestedMatch.MatchType,
	}
}

// Validate checks the fields needed to act on a suggestion.
func (s MatchSuggestion) Validate() error {
	if s.SuggestionID == "" {
		return fmt.Errorf("%w: missing suggestion id", ErrInvalidSuggestion)
	}
	if s.Transaction.ID == "" {
		return fmt.Errorf("%w: missing transaction id", ErrInvalidSuggestion)
	}
	if s.SuggestedMatch.MatchID == "" {
		return fmt.Errorf("%w: missing match id", ErrInvalidSuggestion)
	}
	if !s.SuggestedMatch.MatchType.IsValid() {
		return fmt.Errorf("%w: unknown match type %q", ErrInvalidSuggestion, s.SuggestedMatch.MatchType)
	}
	if s.Confidence.IsNegative() || s.Confidence.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: confidence %s outside [0,1]", ErrInvalidSuggestion, s.Confidence)
	}
	return nil
}

// DuplicateGroup is a set of transactions sharing date, amount and vendor.
type DuplicateGroup struct {
	TransactionDate string        `json:"transaction_date"`
	Amount          string        `json:"amount"`
	VendorName      string        `json:"vendor_name"`
	Transactions    []Transaction `json:"transactions"`
}

// Validate checks that a group has at least two members.
func (g DuplicateGroup) Validate() error {
	if len(g.Transactions) < 2 {
		return fmt.Errorf("%w: group has %d members", ErrInvalidDuplicateGroup, len(g.Transactions))
	}
	return nil
}

// Extras returns every member except the one to keep. The first member is kept
// when keepID is empty or not in the group.
func (g DuplicateGroup) Extras(keepID string) []Transaction {
	keep := 0
	for i, t := range g.Transactions {
		if string(t.ID) == keepID {
			keep = i
			break
		}
	}
	extras := make([]Transaction, 0, len(g.Transactions))
	for i, t := range g.Transactions {
		if i != keep {
			extras = append(extras, t)
		}
	}
	return extras
}

// ConfirmMatchRequest is the body of POST .../reconciliation/confirm.
type ConfirmMatchRequest struct {
	TransactionID ID        `json:"transaction_id"`
	MatchID       ID        `json:"match_id"`
	MatchType     MatchType `json:"match_type"`
}

// RejectMatchRequest is the body of POST .../reconciliation/reject.
type RejectMatchRequest struct {
	SuggestionID string `json:"suggestion_id"`
}

// AutoReconcileRequest is the body of POST .../reconciliation/auto.
type AutoReconcileRequest struct {
	MinConfidence float64 `json:"min_confidence"`
}

// AutoReconcileResponse reports how many new suggestions the server found.
type AutoReconcileResponse struct {
	SuggestionsFound int `json:"suggestions_found"`
}

// MarkRequest is the body of mark-reconciled and mark-unreconciled.
type MarkRequest struct {
	TransactionIDs []string `json:"transaction_ids"`
}

// MarkResponse reports how many transactions changed.
type MarkResponse struct {
	UpdatedCount int `json:"updated_count"`
}

// Page is a limit/offset window over a list endpoint.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 100

// Normalize fills in the default limit and clamps a negative offset.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
