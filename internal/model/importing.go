package model

import (
	"errors"
	"fmt"
	"strings"
)

// Model validation errors.
var (
	ErrInvalidSuggestion     = errors.New("invalid match suggestion")
	ErrInvalidDuplicateGroup = errors.New("invalid duplicate group")
	ErrInvalidRow            = errors.New("invalid parsed row")
)

// FileType is a statement format accepted by the import endpoints.
type FileType string

// Accepted statement formats.
const (
	FileTypeCSV FileType = "csv"
	FileTypePDF FileType = "pdf"
)

// FileTypeFromName derives the statement format from a file name's extension.
func FileTypeFromName(name string) (FileType, bool) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "", false
	}
	switch FileType(strings.ToLower(name[idx+1:])) {
	case FileTypeCSV:
		return FileTypeCSV, true
	case FileTypePDF:
		return FileTypePDF, true
	default:
		return "", false
	}
}

// Classification values for imported transactions.
const (
	ClassBusinessIncome    = "business_income"
	ClassTransferIn        = "transfer_in"
	ClassOwnerContribution = "owner_contribution"
	ClassRefund            = "refund"
	ClassPersonal          = "personal"
	ClassBusinessExpense   = "business_expense"
	ClassTransferOut       = "transfer_out"
	ClassOwnerDraw         = "owner_draw"
)

// CreditClassifications are valid for money coming in.
var CreditClassifications = []string{
	ClassBusinessIncome, ClassTransferIn, ClassOwnerContribution, ClassRefund, ClassPersonal,
}

// DebitClassifications are valid for money going out.
var DebitClassifications = []string{
	ClassBusinessExpense, ClassTransferOut, ClassOwnerDraw, ClassPersonal,
}

// IsKnownClassification reports whether c is a credit or debit classification.
func IsKnownClassification(c string) bool {
	for _, v := range CreditClassifications {
		if v == c {
			return true
		}
	}
	for _, v := range DebitClassifications {
		if v == c {
			return true
		}
	}
	return false
}

// ParsedRow is one editable staging row produced by parsing a statement.
type ParsedRow struct {
	RowIndex               int     `json:"row_index"`
	TransactionDate        string  `json:"transaction_date"`
	VendorName             string  `json:"vendor_name"`
	Amount                 string  `json:"amount"`
	Description            *string `json:"description"`
	Category               *string `json:"category"`
	Classification         *string `json:"classification"`
	AIConfidence           float64 `json:"ai_confidence"`
	IsDuplicate            bool    `json:"is_duplicate"`
	DuplicateTransactionID *ID     `json:"duplicate_transaction_id"`
}

// EffectiveClassification returns the row's classification, defaulting by the
// sign of the amount when none is set.
func (r ParsedRow) EffectiveClassification() string {
	if c := StringValue(r.Classification); c != "" {
		return c
	}
	d, err := ParseAmount(r.Amount)
	if err == nil && d.IsNegative() {
		return ClassBusinessExpense
	}
	return ClassBusinessIncome
}

// ImportItem converts the row to the confirm payload. The AI-suggested category
// is only sent when the row carries a positive AI confidence.
func (r ParsedRow) ImportItem() ImportItem {
	item := ImportItem{
		TransactionDate: r.TransactionDate,
		VendorName:      r.VendorName,
		Amount:          r.Amount,
		Description:     StringValue(r.Description),
		Category:        StringValue(r.Category),
		Classification:  StringValue(r.Classification),
	}
	if r.AIConfidence > 0 {
		item.AISuggestedCategory = StringValue(r.Category)
		item.AIConfidence = r.AIConfidence
	}
	return item
}

// ParseResult is the outcome of parsing an uploaded statement.
type ParseResult struct {
	FileType        FileType    `json:"file_type"`
	FileName        string      `json:"file_name"`
	StatementPeriod *string     `json:"statement_period"`
	AccountInfo     *string     `json:"account_info"`
	Transactions    []ParsedRow `json:"transactions"`
	TotalCount      int         `json:"total_count"`
	DuplicateCount  int         `json:"duplicate_count"`
	ParseWarnings   []string    `json:"parse_warnings"`
}

// JobStatus is the state of an asynchronous server job.
type JobStatus string

// Job statuses.
const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal reports whether the job will not change state again.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobHandle is returned when the server parses a statement asynchronously.
type JobHandle struct {
	JobID        int64  `json:"job_id"`
	CeleryTaskID string `json:"celery_task_id,omitempty"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

// ImportJob is the polled status of an asynchronous parse.
type ImportJob struct {
	JobID           int64        `json:"job_id"`
	JobType         string       `json:"job_type"`
	Status          JobStatus    `json:"status"`
	Progress        int          `json:"progress"`
	ProgressMessage *string      `json:"progress_message"`
	ResultData      *ParseResult `json:"result_data"`
	ErrorMessage    *string      `json:"error_message"`
	RetryCount      int          `json:"retry_count"`
}

// ParseOutcome holds exactly one of a synchronous result or an async job handle.
type ParseOutcome struct {
	Result *ParseResult
	Job    *JobHandle
}

// Validate checks that exactly one branch is populated.
func (o ParseOutcome) Validate() error {
	if (o.Result == nil) == (o.Job == nil) {
		return fmt.Errorf("parse outcome must carry exactly one of result or job")
	}
	return nil
}

// ImportItem is one row sent to the import confirm endpoint.
type ImportItem struct {
	TransactionDate     string  `json:"transaction_date"`
	VendorName          string  `json:"vendor_name"`
	Amount              string  `json:"amount"`
	Description         string  `json:"description,omitempty"`
	Category            string  `json:"category,omitempty"`
	Classification      string  `json:"classification,omitempty"`
	AISuggestedCategory string  `json:"ai_suggested_category,omitempty"`
	AIConfidence        float64 `json:"ai_confidence,omitempty"`
}

// ImportConfirmRequest is the body of POST .../transactions/import/confirm.
type ImportConfirmRequest struct {
	FileType     FileType     `json:"file_type"`
	Transactions []ImportItem `json:"transactions"`
}

// ImportConfirmResponse reports the created batch.
type ImportConfirmResponse struct {
	ImportedCount     int           `json:"imported_count"`
	SkippedDuplicates int           `json:"skipped_duplicates"`
	BatchID           string        `json:"batch_id"`
	Transactions      []Transaction `json:"transactions"`
}
