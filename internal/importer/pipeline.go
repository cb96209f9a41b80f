package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/query"
	"github.com/Veraticus/the-books-must-balance/internal/service"
)

// DefaultPollInterval is how often an asynchronous parse job is polled.
const DefaultPollInterval = 2 * time.Second

// Pipeline errors.
var (
	ErrClosed          = errors.New("import pipeline closed")
	ErrNoBatch         = errors.New("no imported batch to post")
	ErrNothingSelected = errors.New("no rows selected for import")
)

const (
	msgParsingCSV   = "Parsing CSV..."
	msgUploadingPDF = "Uploading PDF for OCR processing..."
	msgQueuedPDF    = "PDF queued for OCR processing..."
	msgProcessing   = "Processing..."
	msgJobFailed    = "PDF processing failed. Please try again."
	msgParseFailed  = "Failed to parse file"
	msgImportFailed = "Failed to import transactions"
	msgPostFailed   = "Failed to post transactions"
	msgCancelled    = "Import cancelled."
)

// Config configures a Pipeline.
type Config struct {
	// Cache, when set, has Invalidates dropped for the business after a
	// successful confirm or post.
	Cache        *query.Cache
	BusinessID   string
	Invalidates  []string
	PollInterval time.Duration
	MaxFileSize  int64
}

// Snapshot is a point-in-time view of the wizard.
type Snapshot struct {
	Result   *model.ImportConfirmResponse
	FileName string
	FileType model.FileType
	Message  string
	Error    string
	Warnings []string
	State    State
	Progress int
	Posting  bool
	Posted   bool
}

// Pipeline drives one import session through upload, processing, preview and
// success. Parsing and polling run in the background; every exit from
// processing tears the poller down and discards its late results.
type Pipeline struct {
	api          service.ImportAPI
	confirm      *query.Mutation
	post         *query.Mutation
	cancel       context.CancelFunc
	settled      chan struct{}
	preview      *Preview
	result       *model.ImportConfirmResponse
	listeners    map[int]func(Snapshot)
	businessID   string
	fileName     string
	fileType     model.FileType
	message      string
	errMsg       string
	warnings     []string
	pollInterval time.Duration
	maxFileSize  int64
	gen          uint64
	state        State
	progress     int
	nextListener int
	mu           sync.Mutex
	listenersMu  sync.Mutex
	posted       bool
	closed       bool
}

// NewPipeline creates a pipeline in the upload step.
func NewPipeline(api service.ImportAPI, cfg Config) *Pipeline {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	cache := cfg.Cache
	if cache == nil {
		cache = query.NewCache(0)
	}
	return &Pipeline{
		api:          api,
		businessID:   cfg.BusinessID,
		pollInterval: cfg.PollInterval,
		maxFileSize:  cfg.MaxFileSize,
		confirm:      query.NewMutation(cache, "import-confirm", cfg.Invalidates...),
		post:         query.NewMutation(cache, "import-post", cfg.Invalidates...),
		listeners:    make(map[int]func(Snapshot)),
		state:        StateUpload,
	}
}

// OnChange registers fn to receive a snapshot after every change. The
// returned function removes it.
func (p *Pipeline) OnChange(fn func(Snapshot)) func() {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn
	return func() {
		p.listenersMu.Lock()
		defer p.listenersMu.Unlock()
		delete(p.listeners, id)
	}
}

// Snapshot returns the current view of the wizard.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// State returns the current step.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Preview returns the editable rows while in the preview step, nil otherwise.
func (p *Pipeline) Preview() *Preview {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePreview {
		return nil
	}
	return p.preview
}

// SelectFile validates a statement and starts parsing it. A rejected file
// leaves the wizard in upload with an inline error and sends nothing. ctx
// bounds the upload and any polling that follows.
func (p *Pipeline) SelectFile(ctx context.Context, name string, size int64, open func() (io.ReadCloser, error)) error {
	fileType, validationErr := ValidateFile(name, size, p.maxFileSize)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.state != StateUpload {
		err := checkTransition(p.state, StateProcessing)
		p.mu.Unlock()
		return err
	}
	if p.businessID == "" {
		p.mu.Unlock()
		return fmt.Errorf("%w: business id", common.ErrMissingConfig)
	}
	if validationErr != nil {
		p.errMsg = common.UserMessage(validationErr, validationErr.Error())
		snap := p.snapshotLocked()
		p.mu.Unlock()
		p.emit(snap)
		return validationErr
	}

	if err := p.enter(StateProcessing); err != nil {
		p.mu.Unlock()
		return err
	}
	p.fileName = filepath.Base(name)
	p.fileType = fileType
	p.errMsg = ""
	p.progress = 0
	p.message = msgParsingCSV
	if fileType == model.FileTypePDF {
		p.message = msgUploadingPDF
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.settled = make(chan struct{})
	gen := p.gen
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(snap)
	go p.parse(runCtx, gen, name, open)
	return nil
}

// Wait blocks until the wizard leaves processing or ctx is done.
func (p *Pipeline) Wait(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	settled := p.settled
	processing := p.state == StateProcessing
	p.mu.Unlock()

	if processing && settled != nil {
		select {
		case <-settled:
		case <-ctx.Done():
			return p.Snapshot(), ctx.Err()
		}
	}
	return p.Snapshot(), nil
}

// Confirm imports the selected rows, with their edits, as one batch.
func (p *Pipeline) Confirm(ctx context.Context) (model.ImportConfirmResponse, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return model.ImportConfirmResponse{}, ErrClosed
	}
	if p.state != StatePreview {
		err := checkTransition(p.state, StateSuccess)
		p.mu.Unlock()
		return model.ImportConfirmResponse{}, err
	}
	preview := p.preview
	p.mu.Unlock()

	items := preview.Items()
	if len(items) == 0 {
		return model.ImportConfirmResponse{}, common.NewUserError("Select at least one transaction to import.", ErrNothingSelected)
	}

	var resp model.ImportConfirmResponse
	err := p.confirm.Run(ctx, p.businessID, func(ctx context.Context) error {
		var runErr error
		resp, runErr = p.api.ConfirmImport(ctx, p.businessID, model.ImportConfirmRequest{
			FileType:     preview.FileType(),
			Transactions: items,
		})
		return runErr
	})
	if err != nil {
		if !errors.Is(err, query.ErrInFlight) {
			p.setError(err, msgImportFailed)
		}
		return resp, err
	}

	p.mu.Lock()
	if p.state != StatePreview || p.preview != preview {
		p.mu.Unlock()
		return resp, nil
	}
	if err := p.enter(StateSuccess); err != nil {
		p.mu.Unlock()
		return resp, err
	}
	p.result = &resp
	p.preview = nil
	p.errMsg = ""
	snap := p.snapshotLocked()
	p.mu.Unlock()

	common.LogInfo("Imported statement", common.Fields{
		"file":    snap.FileName,
		"batch":   resp.BatchID,
		"count":   resp.ImportedCount,
		"skipped": resp.SkippedDuplicates,
	})
	p.emit(snap)
	return resp, nil
}

// PostAll moves every transaction of the imported batch to posted. It does
// not change the wizard step. A second call while one is in flight returns
// query.ErrInFlight without a request.
func (p *Pipeline) PostAll(ctx context.Context) (model.BulkStatusResponse, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return model.BulkStatusResponse{}, ErrClosed
	}
	if p.state != StateSuccess || p.result == nil || p.result.BatchID == "" {
		p.mu.Unlock()
		return model.BulkStatusResponse{}, ErrNoBatch
	}
	batchID := p.result.BatchID
	p.mu.Unlock()

	var resp model.BulkStatusResponse
	err := p.post.Run(ctx, p.businessID, func(ctx context.Context) error {
		p.emit(p.Snapshot())
		var runErr error
		resp, runErr = p.api.BulkUpdateStatus(ctx, p.businessID, model.BulkStatusRequest{
			BatchID: batchID,
			Status:  model.StatusPosted,
		})
		return runErr
	})
	if err != nil {
		if !errors.Is(err, query.ErrInFlight) {
			p.setError(err, msgPostFailed)
		}
		return resp, err
	}

	p.mu.Lock()
	if p.state == StateSuccess && p.result != nil && p.result.BatchID == batchID {
		p.posted = true
		p.errMsg = ""
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(snap)
	return resp, nil
}

// Reset returns to the upload step, dropping the current file, preview and
// result. Any outstanding poll is stopped.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.state != StateUpload {
		if err := p.enter(StateUpload); err != nil {
			p.mu.Unlock()
			return err
		}
	}
	p.errMsg = ""
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(snap)
	return nil
}

// Close stops any outstanding poll and rejects further actions.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.teardown()
	p.closed = true
	p.state = StateUpload

	p.listenersMu.Lock()
	p.listeners = make(map[int]func(Snapshot))
	p.listenersMu.Unlock()
}

func (p *Pipeline) parse(ctx context.Context, gen uint64, name string, open func() (io.ReadCloser, error)) {
	outcome, err := p.upload(ctx, name, open)
	if err != nil {
		msg := common.UserMessage(err, msgParseFailed)
		if ctx.Err() != nil {
			msg = msgCancelled
		}
		p.fail(gen, msg, err)
		return
	}

	if outcome.Result != nil {
		p.finish(gen, *outcome.Result)
		return
	}

	p.mu.Lock()
	if !p.current(gen) {
		p.mu.Unlock()
		return
	}
	p.message = msgQueuedPDF
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(snap)
	p.poll(ctx, gen, outcome.Job.JobID)
}

func (p *Pipeline) upload(ctx context.Context, name string, open func() (io.ReadCloser, error)) (model.ParseOutcome, error) {
	rc, err := open()
	if err != nil {
		return model.ParseOutcome{}, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			common.LogWarn("Failed to close statement", common.Fields{"file": name, "error": closeErr.Error()})
		}
	}()

	outcome, err := p.api.ParseImport(ctx, p.businessID, name, rc)
	if err != nil {
		return model.ParseOutcome{}, err
	}
	if err := outcome.Validate(); err != nil {
		return model.ParseOutcome{}, err
	}
	return outcome, nil
}

// poll fetches job status once per tick until the job is terminal, the
// pipeline moves on, or ctx is done. Failed polls are retried on the next tick.
func (p *Pipeline) poll(ctx context.Context, gen uint64, jobID int64) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.fail(gen, msgCancelled, ctx.Err())
			return
		case <-ticker.C:
		}

		job, err := p.api.GetJob(ctx, p.businessID, jobID)
		if err != nil {
			if ctx.Err() != nil {
				p.fail(gen, msgCancelled, ctx.Err())
				return
			}
			common.LogWarn("Import job poll failed", common.Fields{"job_id": jobID, "error": err.Error()})
			continue
		}
		if p.applyJob(gen, job) {
			return
		}
	}
}

// applyJob records a polled job status and reports whether polling is over.
func (p *Pipeline) applyJob(gen uint64, job model.ImportJob) bool {
	p.mu.Lock()
	if !p.current(gen) {
		p.mu.Unlock()
		return true
	}

	p.progress = job.Progress
	p.message = model.StringValue(job.ProgressMessage)
	if p.message == "" {
		p.message = msgProcessing
	}

	switch {
	case job.Status == model.JobCompleted && job.ResultData != nil:
		p.mu.Unlock()
		p.finish(gen, *job.ResultData)
		return true
	case job.Status.IsTerminal():
		msg := model.StringValue(job.ErrorMessage)
		if msg == "" {
			msg = msgJobFailed
		}
		p.mu.Unlock()
		p.fail(gen, msg, fmt.Errorf("import job %d %s", job.JobID, job.Status))
		return true
	}

	snap := p.snapshotLocked()
	p.mu.Unlock()
	p.emit(snap)
	return false
}

func (p *Pipeline) finish(gen uint64, result model.ParseResult) {
	p.mu.Lock()
	if !p.current(gen) {
		p.mu.Unlock()
		return
	}
	if err := p.enter(StatePreview); err != nil {
		p.mu.Unlock()
		return
	}
	p.preview = NewPreview(result)
	p.warnings = result.ParseWarnings
	p.progress = 100
	p.message = ""
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(snap)
}

func (p *Pipeline) fail(gen uint64, msg string, err error) {
	p.mu.Lock()
	if !p.current(gen) {
		p.mu.Unlock()
		return
	}
	common.LogError(err, "Statement parse failed", common.Fields{"file": p.fileName})
	if enterErr := p.enter(StateUpload); enterErr != nil {
		p.mu.Unlock()
		return
	}
	p.errMsg = msg
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(snap)
}

func (p *Pipeline) setError(err error, fallback string) {
	common.LogError(err, fallback, common.Fields{"business_id": p.businessID})
	p.mu.Lock()
	p.errMsg = common.UserMessage(err, fallback)
	snap := p.snapshotLocked()
	p.mu.Unlock()
	p.emit(snap)
}

// current reports whether a background callback for gen may still act.
func (p *Pipeline) current(gen uint64) bool {
	return !p.closed && p.state == StateProcessing && p.gen == gen
}

// enter moves to state to. Callers hold p.mu.
func (p *Pipeline) enter(to State) error {
	if err := checkTransition(p.state, to); err != nil {
		return err
	}
	if p.state == StateProcessing {
		p.teardown()
	}
	if to == StateUpload {
		p.preview = nil
		p.result = nil
		p.posted = false
		p.warnings = nil
		p.progress = 0
		p.message = ""
	}
	p.state = to
	return nil
}

// teardown invalidates every background callback and stops the poller.
// Callers hold p.mu.
func (p *Pipeline) teardown() {
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.settled != nil {
		close(p.settled)
		p.settled = nil
	}
}

func (p *Pipeline) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:    p.state,
		FileName: p.fileName,
		FileType: p.fileType,
		Message:  p.message,
		Progress: p.progress,
		Error:    p.errMsg,
		Warnings: p.warnings,
		Posting:  p.post.Pending(),
		Posted:   p.posted,
	}
	if p.result != nil {
		result := *p.result
		snap.Result = &result
	}
	return snap
}

func (p *Pipeline) emit(snap Snapshot) {
	p.listenersMu.Lock()
	fns := make([]func(Snapshot), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
