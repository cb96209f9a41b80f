package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

func pageQuery(page model.Page) url.Values {
	page = page.Normalize()
	q := url.Values{}
	q.Set("limit", strconv.Itoa(page.Limit))
	q.Set("offset", strconv.Itoa(page.Offset))
	return q
}

// GetReconciliationSummary fetches the reconciliation counters.
func (c *Client) GetReconciliationSummary(ctx context.Context, businessID string) (model.ReconciliationSummary, error) {
	var summary model.ReconciliationSummary
	err := c.doJSON(ctx, http.MethodGet, businessPath(businessID, "reconciliation", "summary"), nil, nil, &summary)
	return summary, err
}

// GetSuggestions fetches the live match suggestions.
func (c *Client) GetSuggestions(ctx context.Context, businessID string) ([]model.MatchSuggestion, error) {
	var suggestions []model.MatchSuggestion
	err := c.doJSON(ctx, http.MethodGet, businessPath(businessID, "reconciliation", "suggestions"), nil, nil, &suggestions)
	return suggestions, err
}

// GetUnreconciled fetches one page of unreconciled transactions.
func (c *Client) GetUnreconciled(ctx context.Context, businessID string, page model.Page) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := c.doJSON(ctx, http.MethodGet, businessPath(businessID, "reconciliation", "unreconciled"), pageQuery(page), nil, &txns)
	return txns, err
}

// GetReconciled fetches one page of reconciled transactions.
func (c *Client) GetReconciled(ctx context.Context, businessID string, page model.Page) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := c.doJSON(ctx, http.MethodGet, businessPath(businessID, "reconciliation", "reconciled"), pageQuery(page), nil, &txns)
	return txns, err
}

// GetDuplicates fetches suspected duplicate groups.
func (c *Client) GetDuplicates(ctx context.Context, businessID string) ([]model.DuplicateGroup, error) {
	var groups []model.DuplicateGroup
	err := c.doJSON(ctx, http.MethodGet, businessPath(businessID, "transactions", "duplicates"), nil, nil, &groups)
	return groups, err
}

// ConfirmMatch accepts a suggestion.
func (c *Client) ConfirmMatch(ctx context.Context, businessID string, req model.ConfirmMatchRequest) error {
	return c.doJSON(ctx, http.MethodPost, businessPath(businessID, "reconciliation", "confirm"), nil, req, nil)
}

// RejectMatch discards a suggestion.
func (c *Client) RejectMatch(ctx context.Context, businessID string, req model.RejectMatchRequest) error {
	return c.doJSON(ctx, http.MethodPost, businessPath(businessID, "reconciliation", "reject"), nil, req, nil)
}

// AutoReconcile asks the server to look for new high-confidence pairs.
func (c *Client) AutoReconcile(ctx context.Context, businessID string, minConfidence float64) (model.AutoReconcileResponse, error) {
	var resp model.AutoReconcileResponse
	err := c.doJSON(ctx, http.MethodPost, businessPath(businessID, "reconciliation", "auto"), nil,
		model.AutoReconcileRequest{MinConfidence: minConfidence}, &resp)
	return resp, err
}

// MarkReconciled manually reconciles transactions.
func (c *Client) MarkReconciled(ctx context.Context, businessID string, transactionIDs []string) (model.MarkResponse, error) {
	var resp model.MarkResponse
	err := c.doJSON(ctx, http.MethodPost, businessPath(businessID, "reconciliation", "mark-reconciled"), nil,
		model.MarkRequest{TransactionIDs: transactionIDs}, &resp)
	return resp, err
}

// MarkUnreconciled reverses reconciliation.
func (c *Client) MarkUnreconciled(ctx context.Context, businessID string, transactionIDs []string) (model.MarkResponse, error) {
	var resp model.MarkResponse
	err := c.doJSON(ctx, http.MethodPost, businessPath(businessID, "reconciliation", "mark-unreconciled"), nil,
		model.MarkRequest{TransactionIDs: transactionIDs}, &resp)
	return resp, err
}

// DeleteTransaction permanently removes a transaction.
func (c *Client) DeleteTransaction(ctx context.Context, businessID, transactionID string) error {
	return c.doJSON(ctx, http.MethodDelete, businessPath(businessID, "transactions", transactionID), nil, nil, nil)
}
