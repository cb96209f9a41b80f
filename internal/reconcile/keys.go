// Package reconcile implements the bank-reconciliation review workflow: the
// cached read queries, the write actions that invalidate them, and the bulk
// selection set.
package reconcile

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/query"
)

// Query names shared by the fetcher and every write that invalidates it.
const (
	SummaryQuery      = "reconciliation-summary"
	SuggestionsQuery  = "reconciliation-suggestions"
	UnreconciledQuery = "reconciliation-unreconciled"
	ReconciledQuery   = "reconciliation-reconciled"
	DuplicatesQuery   = "transaction-duplicates"
)

// AllQueries lists every read a reconciliation write must invalidate.
var AllQueries = []string{
	SummaryQuery,
	SuggestionsQuery,
	UnreconciledQuery,
	ReconciledQuery,
	DuplicatesQuery,
}

func pageParams(page model.Page) string {
	return fmt.Sprintf("limit=%d&offset=%d", page.Limit, page.Offset)
}

func key(name, businessID, params string) query.Key {
	return query.Key{Name: name, Scope: businessID, Params: params}
}
