package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// ParseImport uploads a statement for parsing. The server either parses it
// inline or hands back a job to poll; the outcome carries exactly one of the two.
func (c *Client) ParseImport(ctx context.Context, businessID, fileName string, file io.Reader) (model.ParseOutcome, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return model.ParseOutcome{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return model.ParseOutcome{}, fmt.Errorf("failed to read statement: %w", err)
	}
	if err := writer.Close(); err != nil {
		return model.ParseOutcome{}, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	path := businessPath(businessID, "transactions", "import", "parse")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), &body)
	if err != nil {
		return model.ParseOutcome{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var raw json.RawMessage
	if err := c.send(c.authed, req, path, &raw); err != nil {
		return model.ParseOutcome{}, err
	}
	return decodeParseOutcome(raw)
}

func decodeParseOutcome(raw json.RawMessage) (model.ParseOutcome, error) {
	var probe struct {
		JobID *int64 `json:"job_id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return model.ParseOutcome{}, fmt.Errorf("failed to decode parse response: %w", err)
	}

	if probe.JobID != nil {
		var job model.JobHandle
		if err := json.Unmarshal(raw, &job); err != nil {
			return model.ParseOutcome{}, fmt.Errorf("failed to decode job handle: %w", err)
		}
		return model.ParseOutcome{Job: &job}, nil
	}

	var result model.ParseResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return model.ParseOutcome{}, fmt.Errorf("failed to decode parse result: %w", err)
	}
	return model.ParseOutcome{Result: &result}, nil
}

// GetJob fetches the status of an asynchronous parse job.
func (c *Client) GetJob(ctx context.Context, businessID string, jobID int64) (model.ImportJob, error) {
	var job model.ImportJob
	path := businessPath(businessID, "transactions", "jobs", strconv.FormatInt(jobID, 10))
	err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &job)
	return job, err
}

// ConfirmImport creates transactions for the selected rows as one batch.
func (c *Client) ConfirmImport(ctx context.Context, businessID string, req model.ImportConfirmRequest) (model.ImportConfirmResponse, error) {
	var resp model.ImportConfirmResponse
	err := c.doJSON(ctx, http.MethodPost, businessPath(businessID, "transactions", "import", "confirm"), nil, req, &resp)
	return resp, err
}

// BulkUpdateStatus moves a batch or a list of transactions to a new status.
func (c *Client) BulkUpdateStatus(ctx context.Context, businessID string, req model.BulkStatusRequest) (model.BulkStatusResponse, error) {
	var resp model.BulkStatusResponse
	err := c.doJSON(ctx, http.MethodPatch, businessPath(businessID, "transactions", "bulk-status"), nil, req, &resp)
	return resp, err
}
