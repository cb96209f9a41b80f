package importer

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

type fakeImportAPI struct {
	parseErr    error
	confirmErr  error
	postErr     error
	outcome     model.ParseOutcome
	jobs        []model.ImportJob
	jobErrs     []error
	confirmReqs []model.ImportConfirmRequest
	postReqs    []model.BulkStatusRequest
	confirmResp model.ImportConfirmResponse
	postGate    chan struct{}
	postStarted chan struct{}
	parseGate   chan struct{}
	parsed      []string
	polls       int
	mu          sync.Mutex
}

func (f *fakeImportAPI) ParseImport(ctx context.Context, _ string, fileName string, file io.Reader) (model.ParseOutcome, error) {
	if f.parseGate != nil {
		select {
		case <-f.parseGate:
		case <-ctx.Done():
			return model.ParseOutcome{}, ctx.Err()
		}
	}
	body, _ := io.ReadAll(file)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parsed = append(f.parsed, fileName+":"+string(body))
	return f.outcome, f.parseErr
}

// GetJob serves jobs in order, repeating the last one; jobErrs[i] fails poll i.
func (f *fakeImportAPI) GetJob(_ context.Context, _ string, _ int64) (model.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	f.polls++
	if i < len(f.jobErrs) && f.jobErrs[i] != nil {
		return model.ImportJob{}, f.jobErrs[i]
	}
	if len(f.jobs) == 0 {
		return model.ImportJob{Status: model.JobRunning}, nil
	}
	if i >= len(f.jobs) {
		i = len(f.jobs) - 1
	}
	return f.jobs[i], nil
}

func (f *fakeImportAPI) ConfirmImport(_ context.Context, _ string, req model.ImportConfirmRequest) (model.ImportConfirmResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmReqs = append(f.confirmReqs, req)
	if f.confirmErr != nil {
		return model.ImportConfirmResponse{}, f.confirmErr
	}
	resp := f.confirmResp
	if resp.BatchID == "" {
		resp = model.ImportConfirmResponse{ImportedCount: len(req.Transactions), BatchID: "batch-1"}
	}
	return resp, nil
}

func (f *fakeImportAPI) BulkUpdateStatus(_ context.Context, _ string, req model.BulkStatusRequest) (model.BulkStatusResponse, error) {
	f.mu.Lock()
	f.postReqs = append(f.postReqs, req)
	gate, started := f.postGate, f.postStarted
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	return model.BulkStatusResponse{UpdatedCount: 1}, f.postErr
}

func (f *fakeImportAPI) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func (f *fakeImportAPI) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.parsed) + f.polls + len(f.confirmReqs) + len(f.postReqs)
}

func openString(s string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}

// fiveRows is a five-row statement whose third row is a likely duplicate.
func fiveRows() model.ParseResult {
	rows := []model.ParsedRow{
		{RowIndex: 0, TransactionDate: "2025-01-02", VendorName: "Client A", Amount: "1200.00"},
		{RowIndex: 1, TransactionDate: "2025-01-03", VendorName: "Office Depot", Amount: "-45.10"},
		{RowIndex: 2, TransactionDate: "2025-01-03", VendorName: "Office Depot", Amount: "-45.10", IsDuplicate: true},
		{RowIndex: 3, TransactionDate: "2025-01-05", VendorName: "Savings", Amount: "-500", Classification: model.StringPtr(model.ClassTransferOut)},
		{RowIndex: 4, TransactionDate: "2025-01-09", VendorName: "Cafe", Amount: "-3.333", Category: model.StringPtr("Meals"), AIConfidence: 0.7},
	}
	return model.ParseResult{FileType: model.FileTypeCSV, FileName: "jan.csv", Transactions: rows, TotalCount: 5, DuplicateCount: 1}
}
