// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"io"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// CredentialStore holds the bearer token for the API. Token returns an empty
// string, not an error, when no token has been stored.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// AuthAPI covers the account endpoints the client needs to bootstrap a session.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (model.TokenResponse, error)
	CurrentUser(ctx context.Context) (model.User, error)
}

// ReconciliationAPI defines the reconciliation and duplicate endpoints.
type ReconciliationAPI interface {
	// Read side
	GetReconciliationSummary(ctx context.Context, businessID string) (model.ReconciliationSummary, error)
	GetSuggestions(ctx context.Context, businessID string) ([]model.MatchSuggestion, error)
	GetUnreconciled(ctx context.Context, businessID string, page model.Page) ([]model.Transaction, error)
	GetReconciled(ctx context.Context, businessID string, page model.Page) ([]model.Transaction, error)
	GetDuplicates(ctx context.Context, businessID string) ([]model.DuplicateGroup, error)

	// Write side
	ConfirmMatch(ctx context.Context, businessID string, req model.ConfirmMatchRequest) error
	RejectMatch(ctx context.Context, businessID string, req model.RejectMatchRequest) error
	AutoReconcile(ctx context.Context, businessID string, minConfidence float64) (model.AutoReconcileResponse, error)
	MarkReconciled(ctx context.Context, businessID string, transactionIDs []string) (model.MarkResponse, error)
	MarkUnreconciled(ctx context.Context, businessID string, transactionIDs []string) (model.MarkResponse, error)
	DeleteTransaction(ctx context.Context, businessID, transactionID string) error
}

// ImportAPI defines the statement import endpoints.
type ImportAPI interface {
	ParseImport(ctx context.Context, businessID, fileName string, file io.Reader) (model.ParseOutcome, error)
	GetJob(ctx context.Context, businessID string, jobID int64) (model.ImportJob, error)
	ConfirmImport(ctx context.Context, businessID string, req model.ImportConfirmRequest) (model.ImportConfirmResponse, error)
	BulkUpdateStatus(ctx context.Context, businessID string, req model.BulkStatusRequest) (model.BulkStatusResponse, error)
}

// Confirmer asks the user a blocking yes/no question. A "no" is a normal
// answer, not an error; errors are reserved for I/O failures and cancellation.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// Notifier surfaces transient success and failure messages.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
