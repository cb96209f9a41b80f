package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/reconcile"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiPrefix = "/api/v1/businesses/{businessID}"

// setup points the commands at a fake API and stores a token.
func setup(t *testing.T, r chi.Router) {
	t.Helper()
	srv := httptest.NewServer(requireToken(t, r))
	t.Cleanup(srv.Close)

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("api.base_url", srv.URL+"/api/v1")
	viper.Set("api.business_id", "biz")
	viper.Set("auth.store_path", filepath.Join(t.TempDir(), "credentials.db"))

	_, err := run(t, authSetTokenCmd(), "tok")
	require.NoError(t, err)
}

func requireToken(t *testing.T, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
		assert.Equal(t, "biz", chi.URLParam(req, "businessID"))
		next.ServeHTTP(w, req)
	})
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestImportUnattended(t *testing.T) {
	var posted atomic.Bool
	r := chi.NewRouter()
	r.Post(apiPrefix+"/transactions/import/parse", func(w http.ResponseWriter, req *http.Request) {
		_, header, err := req.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "march.csv", header.Filename)
		writeJSON(t, w, model.ParseResult{
			FileType: model.FileTypeCSV,
			FileName: "march.csv",
			Transactions: []model.ParsedRow{
				{RowIndex: 0, TransactionDate: "2025-03-01", VendorName: "Client A", Amount: "900.00"},
				{RowIndex: 1, TransactionDate: "2025-03-02", VendorName: "Staples", Amount: "-12.00", IsDuplicate: true},
				{RowIndex: 2, TransactionDate: "2025-03-03", VendorName: "Cafe", Amount: "-4.50"},
			},
			TotalCount:     3,
			DuplicateCount: 1,
		})
	})
	r.Post(apiPrefix+"/transactions/import/confirm", func(w http.ResponseWriter, req *http.Request) {
		var body model.ImportConfirmRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, model.FileTypeCSV, body.FileType)
		require.Len(t, body.Transactions, 2)
		assert.Equal(t, "Client A", body.Transactions[0].VendorName)
		assert.Equal(t, "Cafe", body.Transactions[1].VendorName)
		writeJSON(t, w, model.ImportConfirmResponse{ImportedCount: 2, BatchID: "b1"})
	})
	r.Patch(apiPrefix+"/transactions/bulk-status", func(w http.ResponseWriter, req *http.Request) {
		var body model.BulkStatusRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "b1", body.BatchID)
		assert.Equal(t, model.StatusPosted, body.Status)
		posted.Store(true)
		writeJSON(t, w, model.BulkStatusResponse{UpdatedCount: 2})
	})
	setup(t, r)

	path := filepath.Join(t.TempDir(), "march.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,description,amount\n"), 0o600))

	out, err := run(t, importCmd(), path, "--yes", "--deselect-duplicates", "--post")
	require.NoError(t, err)

	assert.Contains(t, out, "Left out 1 likely duplicate(s)")
	assert.Contains(t, out, "Imported 2 transaction(s) in batch b1")
	assert.Contains(t, out, "Posted 2 transaction(s)")
	assert.True(t, posted.Load())
}

func TestImportRejectsUnsupportedFileLocally(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.HandleFunc("/*", func(http.ResponseWriter, *http.Request) { calls.Add(1) })
	setup(t, r)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	_, err := run(t, importCmd(), path, "--yes")
	require.Error(t, err)
	assert.Equal(t, "Please upload a .csv or .pdf file.", common.UserMessage(err, ""))
	assert.Zero(t, calls.Load())
}

func suggestionJSON() []model.MatchSuggestion {
	var s []model.MatchSuggestion
	_ = json.Unmarshal([]byte(`[{
		"suggestion_id": "s1",
		"transaction": {"id": "t1", "vendor_name": "Client A", "amount": "900.00", "transaction_date": "2025-03-01", "status": "posted"},
		"suggested_match": {"match_id": "p1", "match_type": "payment", "counterparty": "Client A", "amount": "900.00", "date": "2025-03-01"},
		"confidence": "0.97",
		"match_reason": "Exact amount and date"
	}]`), &s)
	return s
}

func TestReconcileAuto(t *testing.T) {
	tests := []struct {
		name        string
		suggestions []model.MatchSuggestion
		wantOut     string
		wantAuto    bool
	}{
		{
			name:    "no suggestions skips the request",
			wantOut: "No suggested matches to auto-reconcile.",
		},
		{
			name:        "suggestions trigger auto-reconcile",
			suggestions: suggestionJSON(),
			wantOut:     "Auto-reconciled 1 transaction",
			wantAuto:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var autoCalls atomic.Int32
			r := chi.NewRouter()
			r.Get(apiPrefix+"/reconciliation/suggestions", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, append([]model.MatchSuggestion{}, tt.suggestions...))
			})
			r.Post(apiPrefix+"/reconciliation/auto", func(w http.ResponseWriter, req *http.Request) {
				autoCalls.Add(1)
				var body model.AutoReconcileRequest
				require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
				assert.InDelta(t, 0.9, body.MinConfidence, 1e-9)
				writeJSON(t, w, model.AutoReconcileResponse{SuggestionsFound: 1})
			})
			setup(t, r)

			out, err := run(t, reconcileAutoCmd())
			require.NoError(t, err)
			assert.Contains(t, out, tt.wantOut)
			assert.Equal(t, tt.wantAuto, autoCalls.Load() == 1)
		})
	}
}

func TestReconcileConfirmUnknownSuggestion(t *testing.T) {
	r := chi.NewRouter()
	r.Get(apiPrefix+"/reconciliation/suggestions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, suggestionJSON())
	})
	setup(t, r)

	_, err := run(t, reconcileConfirmCmd(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suggested match with id missing")
}

func TestReconcileRejectFailureIsReportedOnce(t *testing.T) {
	r := chi.NewRouter()
	r.Post(apiPrefix+"/reconciliation/reject", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"Suggestion already resolved"}`)
	})
	setup(t, r)

	out, err := run(t, reconcileRejectCmd(), "s1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, cli.ErrorIcon+" Suggestion already resolved")
}

func TestDuplicatesKeepDeletesTheRest(t *testing.T) {
	var deleted []string
	r := chi.NewRouter()
	r.Get(apiPrefix+"/transactions/duplicates", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []model.DuplicateGroup{{
			TransactionDate: "2025-03-02",
			VendorName:      "Staples",
			Amount:          "-12.00",
			Transactions: []model.Transaction{
				{ID: "a", VendorName: "Staples"},
				{ID: "b", VendorName: "Staples"},
				{ID: "c", VendorName: "Staples"},
			},
		}})
	})
	r.Delete(apiPrefix+"/transactions/{id}", func(w http.ResponseWriter, req *http.Request) {
		deleted = append(deleted, chi.URLParam(req, "id"))
		w.WriteHeader(http.StatusNoContent)
	})
	setup(t, r)

	out, err := run(t, duplicatesKeepCmd(), "b", "--yes")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, deleted)
	assert.Contains(t, out, "Kept b, deleted 2 of 2 duplicate(s).")
}

func TestDescribeUser(t *testing.T) {
	user := model.User{Email: "ann@example.com", Role: "owner", BusinessID: model.IDPtr("biz-1")}

	assert.Contains(t, describeUser(user, ""), "Business: biz-1")
	assert.Contains(t, describeUser(user, "biz-2"), "Business: biz-2 (configured)")
	assert.Contains(t, describeUser(model.User{Email: "x"}, ""), "Business: none")
}

func TestStatementOpener(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "april.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("date,description,amount\n"), 0o600))
	badOFX := filepath.Join(dir, "april.qfx")
	require.NoError(t, os.WriteFile(badOFX, []byte("not ofx"), 0o600))

	open := statementOpener(context.Background())

	src, err := open(csvPath)
	require.NoError(t, err)
	assert.Equal(t, csvPath, src.Name)
	assert.Equal(t, int64(len("date,description,amount\n")), src.Size)

	_, err = open(badOFX)
	require.Error(t, err)
	assert.Equal(t, "Could not read the OFX statement.", common.UserMessage(err, ""))

	_, err = open(dir)
	assert.Error(t, err)
}

func TestReportedOnlyMarksShownFailures(t *testing.T) {
	a := &app{notifier: &trackingNotifier{Notifier: cli.NewPrompter(bytes.NewReader(nil), io.Discard)}}

	err := a.reported(reconcile.Outcome{}, errors.New("boom"))
	assert.NotErrorIs(t, err, errReported)

	a.notifier.Error("Failed")
	err = a.reported(reconcile.Outcome{}, errors.New("boom"))
	assert.ErrorIs(t, err, errReported)

	assert.NoError(t, a.reported(reconcile.Outcome{Status: reconcile.StatusApplied}, nil))
}

func TestReconcileMarkRefusesWithoutSuggestions(t *testing.T) {
	var marks atomic.Int32
	r := chi.NewRouter()
	r.Get(apiPrefix+"/reconciliation/summary", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, model.ReconciliationSummary{})
	})
	r.Get(apiPrefix+"/reconciliation/unreconciled", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []model.Transaction{{ID: "t1"}, {ID: "t2"}})
	})
	r.Get(apiPrefix+"/reconciliation/suggestions", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"Suggestions unavailable"}`)
	})
	r.Get(apiPrefix+"/transactions/duplicates", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []model.DuplicateGroup{})
	})
	r.Post(apiPrefix+"/reconciliation/mark-reconciled", func(w http.ResponseWriter, _ *http.Request) {
		marks.Add(1)
		writeJSON(t, w, model.MarkResponse{UpdatedCount: 2})
	})
	setup(t, r)

	_, err := run(t, reconcileMarkCmd(), "--all", "--yes")
	require.Error(t, err)
	assert.Equal(t, "Suggestions unavailable", common.UserMessage(err, ""))
	assert.Zero(t, marks.Load(), "nothing is marked while suggestions are unknown")
}
