package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle status of a ledger transaction.
type TransactionStatus string

// Transaction lifecycle statuses, in workflow order.
const (
	StatusDraft      TransactionStatus = "draft"
	StatusProcessing TransactionStatus = "processing"
	StatusInboxUser  TransactionStatus = "inbox_user"
	StatusInboxFirm  TransactionStatus = "inbox_firm"
	StatusReady      TransactionStatus = "ready"
	StatusPosted     TransactionStatus = "posted"
)

var validStatuses = map[TransactionStatus]bool{
	StatusDraft:      true,
	StatusProcessing: true,
	StatusInboxUser:  true,
	StatusInboxFirm:  true,
	StatusReady:      true,
	StatusPosted:     true,
}

// IsValid reports whether s is one of the known statuses.
func (s TransactionStatus) IsValid() bool {
	return validStatuses[s]
}

// DateLayout is the ISO date layout used by the API for transaction dates.
const DateLayout = "2006-01-02"

// Transaction represents a single bank-ledger line as returned by the API.
// Amount is kept as the decimal string the server sent; a negative amount is an outflow.
type Transaction struct {
	ID                  ID                `json:"id"`
	VendorName          string            `json:"vendor_name"`
	Amount              string            `json:"amount"`
	Currency            string            `json:"currency,omitempty"`
	Description         *string           `json:"description"`
	TransactionDate     string            `json:"transaction_date"`
	Category            *string           `json:"category"`
	Classification      *string           `json:"classification"`
	Status              TransactionStatus `json:"status"`
	Reconciled          bool              `json:"reconciled"`
	AIConfidence        float64           `json:"ai_confidence,omitempty"`
	AISuggestedCategory *string           `json:"ai_suggested_category,omitempty"`
	BusinessID          ID                `json:"business_id,omitempty"`
	ImportSource        *string           `json:"import_source"`
	ImportBatchID       *string           `json:"import_batch_id"`
	CreatedAt           *time.Time        `json:"created_at,omitempty"`
	UpdatedAt           *time.Time        `json:"updated_at,omitempty"`
}

// AmountDecimal parses the transaction amount.
func (t Transaction) AmountDecimal() (decimal.Decimal, error) {
	return ParseAmount(t.Amount)
}

// IsOutflow reports whether money left the account. Unparseable amounts are not outflows.
func (t Transaction) IsOutflow() bool {
	d, err := t.AmountDecimal()
	if err != nil {
		return false
	}
	return d.IsNegative()
}

// Date parses the transaction date.
func (t Transaction) Date() (time.Time, error) {
	return time.Parse(DateLayout, t.TransactionDate)
}

// Label renders a short human description used in prompts.
func (t Transaction) Label() string {
	return fmt.Sprintf("%s %s on %s (id %s)", t.VendorName, t.Amount, t.TransactionDate, t.ID)
}

// ParseAmount parses a free-form decimal amount string without rounding.
func ParseAmount(amount string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return d, nil
}

// StringValue dereferences an optional string.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// TransactionIDs returns the ids of the given transactions in order.
func TransactionIDs(transactions []Transaction) []string {
	ids := make([]string, 0, len(transactions))
	for _, t := range transactions {
		ids = append(ids, string(t.ID))
	}
	return ids
}

// BulkStatusRequest moves many transactions to one status, by batch or by id.
type BulkStatusRequest struct {
	BatchID        string            `json:"batch_id,omitempty"`
	TransactionIDs []string          `json:"transaction_ids,omitempty"`
	Status         TransactionStatus `json:"status"`
}

// BulkStatusResponse reports the outcome of a bulk status update.
type BulkStatusResponse struct {
	UpdatedCount int           `json:"updated_count"`
	Transactions []Transaction `json:"transactions"`
}
