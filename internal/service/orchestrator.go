package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ambergate/sellerops/internal/domain"
	"github.com/ambergate/sellerops/internal/logger"
	"github.com/ambergate/sellerops/internal/processor"
	"github.com/ambergate/sellerops/internal/report"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/ambergate/sellerops/internal/spapi"
	"github.com/google/uuid"
)

// ErrNotTerminal is returned when requeue is asked for a job that is still
// in flight.
var ErrNotTerminal = errors.New("job is not in a terminal status")

// ReportClient is the upstream surface the orchestrator needs. Satisfied
// by *spapi.Client; tests substitute fakes.
type ReportClient interface {
	CreateReport(ctx context.Context, reportType string, marketplaceIDs []string, options map[string]string, start, end *time.Time) (string, error)
	GetReport(ctx context.Context, reportID string) (*spapi.ReportStatus, error)
	GetReportDocument(ctx context.Context, documentID string) (*spapi.ReportDocument, error)
	DownloadDocument(ctx context.Context, doc *spapi.ReportDocument) ([]byte, error)
}

// StuckAlerter receives exactly one notification per job that has waited
// past the stuck threshold.
type StuckAlerter interface {
	AlertStuck(ctx context.Context, job *domain.ReportJob, waited time.Duration)
}

// DebugArchiver captures a raw report document when ingestion fails, so
// operators can diagnose parse problems. Optional.
type DebugArchiver interface {
	Capture(ctx context.Context, jobID string, data []byte) (string, error)
}

// logAlerter is the default StuckAlerter: a warning log line.
type logAlerter struct {
	log *logger.Logger
}

func (a *logAlerter) AlertStuck(_ context.Context, job *domain.ReportJob, waited time.Duration) {
	a.log.WithFields(logger.Fields{
		logger.FieldJobID:      job.ID,
		logger.FieldReportType: job.ReportType,
		"external_report_id":   job.ExternalReportID,
		"waited":               waited.String(),
	}).Warn("Report job stuck past wait threshold")
}

// OrchestratorConfig tunes queue/poll behavior.
type OrchestratorConfig struct {
	Provider       string        // identity stamped on created jobs
	DefaultRegion  string        // used when queue callers pass no region
	BackoffBase    time.Duration // first retry delay
	BackoffCap     time.Duration // maximum retry delay
	StuckThreshold time.Duration // wait before the one-shot stuck alert
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "sp_api_seller"
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Minute
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Minute
	}
	if c.StuckThreshold <= 0 {
		c.StuckThreshold = 2 * time.Hour
	}
}

// Orchestrator drives the report job state machine: queue with dedup, poll
// with capped exponential backoff, document fetch, and processor dispatch.
// It runs to completion within one CLI invocation; concurrency across
// overlapping invocations is handled through persisted state plus the
// idempotent upserts and document-hash guard downstream.
type Orchestrator struct {
	jobs     *repository.ReportJobRepository
	client   ReportClient
	registry *processor.Registry
	alerter  StuckAlerter
	archiver DebugArchiver
	cfg      OrchestratorConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewOrchestrator creates a new Orchestrator.
// Parameters:
//   - jobs: report job repository.
//   - client: upstream report client.
//   - registry: processor registry, resolved per job at poll time.
//   - alerter: stuck-job alerter; nil installs a log-based one.
//   - archiver: debug capture archive; nil disables capture.
//   - cfg: orchestration tuning.
//   - log: logger.
// Returns:
//   - *Orchestrator: orchestrator instance.
func NewOrchestrator(
	jobs *repository.ReportJobRepository,
	client ReportClient,
	registry *processor.Registry,
	alerter StuckAlerter,
	archiver DebugArchiver,
	cfg OrchestratorConfig,
	log *logger.Logger,
) *Orchestrator {
	cfg.applyDefaults()
	if alerter == nil {
		alerter = &logAlerter{log: log}
	}
	return &Orchestrator{
		jobs:     jobs,
		client:   client,
		registry: registry,
		alerter:  alerter,
		archiver: archiver,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// QueueParams describes one queue invocation.
type QueueParams struct {
	ReportType    string
	Marketplaces  []string // empty means one account-wide job
	Region        string
	ReportOptions map[string]string
	Processor     string
	Start, End    *time.Time

	// Caller already created the upstream report: seed it and skip the
	// create-request call.
	ExternalReportID   string
	ExternalDocumentID string

	PollAfter time.Duration // delay before the first poll
}

// QueueResult aggregates one queue invocation.
type QueueResult struct {
	Created  int
	Existing int
	Failed   int
	Jobs     []*domain.ReportJob
}

// Queue creates report jobs for the given scope, one per marketplace (or a
// single account-wide job), skipping scopes that already have a
// non-terminal job in flight. An upstream creation failure for one
// marketplace never aborts the rest of the batch.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - params: queue parameters.
// Returns:
//   - *QueueResult: created/existing/failed counts and created jobs.
//   - error: non-nil only for invalid parameters or storage failures.
func (o *Orchestrator) Queue(ctx context.Context, params QueueParams) (*QueueResult, error) {
	if params.ReportType == "" {
		return nil, fmt.Errorf("report type is required")
	}
	if params.Processor == "" {
		return nil, fmt.Errorf("processor is required")
	}
	region := params.Region
	if region == "" {
		region = o.cfg.DefaultRegion
	}
	if params.PollAfter <= 0 {
		params.PollAfter = time.Minute
	}

	fingerprint := report.ScopeFingerprint(params.Marketplaces, params.Start, params.End, params.ReportOptions)
	scope := buildScope(params)

	marketplaces := params.Marketplaces
	if len(marketplaces) == 0 {
		// One account-wide job; empty marketplace id in the identity tuple
		marketplaces = []string{""}
	}

	result := &QueueResult{}
	now := o.now().UTC()

	for _, marketplace := range marketplaces {
		existing, err := o.jobs.FindActiveDuplicate(ctx, o.cfg.Provider, params.Processor, marketplace, params.ReportType, fingerprint)
		if err != nil {
			return nil, fmt.Errorf("duplicate lookup failed: %w", err)
		}
		if existing != nil {
			result.Existing++
			o.log.WithFields(logger.Fields{
				logger.FieldJobID:       existing.ID,
				logger.FieldReportType:  params.ReportType,
				logger.FieldMarketplace: marketplace,
			}).Info("Report job already in flight, skipping")
			continue
		}

		externalReportID := params.ExternalReportID
		if externalReportID == "" {
			var createMarketplaces []string
			if marketplace != "" {
				createMarketplaces = []string{marketplace}
			}
			externalReportID, err = o.client.CreateReport(ctx, params.ReportType, createMarketplaces, params.ReportOptions, params.Start, params.End)
			if err != nil {
				result.Failed++
				o.log.WithError(err).WithFields(logger.Fields{
					logger.FieldReportType:  params.ReportType,
					logger.FieldMarketplace: marketplace,
				}).Error("Upstream report creation failed")
				continue
			}
		}

		job := &domain.ReportJob{
			ID:                 uuid.New().String(),
			Provider:           o.cfg.Provider,
			Processor:          params.Processor,
			Region:             region,
			MarketplaceID:      marketplace,
			ReportType:         params.ReportType,
			ScopeFingerprint:   fingerprint,
			Scope:              scope,
			ReportOptions:      domain.StringMap(params.ReportOptions),
			DataStartTime:      params.Start,
			DataEndTime:        params.End,
			ExternalReportID:   externalReportID,
			ExternalDocumentID: params.ExternalDocumentID,
			Status:             domain.ReportJobQueued,
			RequestedAt:        now,
			NextPollAt:         now.Add(params.PollAfter),
		}
		if err := o.jobs.Create(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to persist report job: %w", err)
		}
		result.Created++
		result.Jobs = append(result.Jobs, job)

		o.log.WithFields(logger.Fields{
			logger.FieldJobID:       job.ID,
			logger.FieldProcessor:   job.Processor,
			logger.FieldReportType:  job.ReportType,
			logger.FieldMarketplace: job.MarketplaceID,
			"external_report_id":    job.ExternalReportID,
		}).Info("Report job queued")
	}

	return result, nil
}

func buildScope(params QueueParams) domain.StringMap {
	scope := domain.StringMap{}
	if len(params.Marketplaces) > 0 {
		b, _ := json.Marshal(params.Marketplaces)
		scope["marketplaces"] = string(b)
	}
	if params.Start != nil {
		scope["start"] = params.Start.UTC().Format(time.RFC3339)
	}
	if params.End != nil {
		scope["end"] = params.End.UTC().Format(time.RFC3339)
	}
	for k, v := range params.ReportOptions {
		scope["opt:"+k] = v
	}
	return scope
}

// PollResult aggregates one poll invocation.
type PollResult struct {
	Checked     int
	Processed   int
	Failed      int
	Outstanding int64
}

// Poll scans up to limit due jobs, checks their upstream status, ingests
// completed documents, and reschedules the rest with exponential backoff.
// One job's failure never aborts the batch.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of jobs to check this invocation.
//   - filter: optional identity filters.
// Returns:
//   - *PollResult: checked/processed/failed counts plus remaining
//     non-terminal jobs matching the filter.
//   - error: non-nil only for storage-level failures.
func (o *Orchestrator) Poll(ctx context.Context, limit int, filter repository.PollFilter) (*PollResult, error) {
	if limit <= 0 {
		limit = 50
	}
	if filter.Provider == "" {
		filter.Provider = o.cfg.Provider
	}

	due, err := o.jobs.SelectPollable(ctx, o.now().UTC(), limit, filter)
	if err != nil {
		return nil, fmt.Errorf("pollable selection failed: %w", err)
	}

	result := &PollResult{}
	for i := range due {
		job := &due[i]

		claimed, err := o.jobs.ClaimInProgress(ctx, job.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to claim job %s: %w", job.ID, err)
		}
		if !claimed {
			continue
		}
		job.Status = domain.ReportJobInProgress

		result.Checked++
		o.pollOne(ctx, job, result)
	}

	result.Outstanding, err = o.jobs.CountOutstanding(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("outstanding count failed: %w", err)
	}
	return result, nil
}

// pollOne advances one claimed job. All failure paths persist the job and
// return; nothing propagates to the batch.
func (o *Orchestrator) pollOne(ctx context.Context, job *domain.ReportJob, result *PollResult) {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldJobID:      job.ID,
		logger.FieldProcessor:  job.Processor,
		logger.FieldReportType: job.ReportType,
	})
	now := o.now().UTC()

	o.checkStuck(ctx, job, now)

	// A requeued job starts without an upstream report; create it on the
	// first poll touch
	if job.ExternalReportID == "" {
		var marketplaces []string
		if job.MarketplaceID != "" {
			marketplaces = []string{job.MarketplaceID}
		}
		reportID, err := o.client.CreateReport(ctx, job.ReportType, marketplaces, job.ReportOptions, job.DataStartTime, job.DataEndTime)
		if err != nil {
			o.reschedule(ctx, job, now, fmt.Sprintf("upstream create failed: %v", err))
			return
		}
		job.ExternalReportID = reportID
	}

	status, err := o.client.GetReport(ctx, job.ExternalReportID)
	if err != nil {
		// Transient by taxonomy: rate limits and upstream 5xx stay
		// non-terminal and back off
		o.reschedule(ctx, job, now, fmt.Sprintf("status poll failed: %v", err))
		return
	}

	switch status.ProcessingStatus {
	case spapi.ReportStatusInQueue, spapi.ReportStatusInProgress:
		o.reschedule(ctx, job, now, "")

	case spapi.ReportStatusCancelled, spapi.ReportStatusFatal:
		o.fail(ctx, job, now, fmt.Sprintf("upstream report %s: %s", job.ExternalReportID, status.ProcessingStatus))
		result.Failed++

	case spapi.ReportStatusDone:
		if o.ingest(ctx, job, status, now) {
			result.Processed++
		} else {
			result.Failed++
		}

	default:
		o.fail(ctx, job, now, fmt.Sprintf("unrecognized upstream status %q", status.ProcessingStatus))
		result.Failed++
	}
}

// ingest downloads and processes a completed report. Returns true when the
// job reached completed.
func (o *Orchestrator) ingest(ctx context.Context, job *domain.ReportJob, status *spapi.ReportStatus, now time.Time) bool {
	documentID := status.ReportDocumentID
	if documentID == "" {
		documentID = job.ExternalDocumentID
	}
	if documentID == "" {
		o.fail(ctx, job, now, "upstream reported DONE without a document id")
		return false
	}
	job.ExternalDocumentID = documentID

	doc, err := o.client.GetReportDocument(ctx, documentID)
	if err != nil {
		o.fail(ctx, job, now, fmt.Sprintf("document lookup failed: %v", err))
		return false
	}

	urlHash := report.URLFingerprint(doc.URL)
	if urlHash != "" && urlHash == job.DocumentURLSHA256 {
		// Same document as a previous delivery; redelivery guard
		logger.CtxInfo(ctx, "Document already ingested, completing with zero new rows")
		o.complete(ctx, job, now, 0, 0, nil)
		return true
	}

	data, err := o.client.DownloadDocument(ctx, doc)
	if err != nil {
		o.fail(ctx, job, now, fmt.Sprintf("document download failed: %v", err))
		return false
	}

	rows, err := report.ParseDocument(data)
	if err != nil {
		o.capture(ctx, job, data)
		o.fail(ctx, job, now, fmt.Sprintf("document parse failed: %v", err))
		return false
	}

	proc, err := o.registry.Lookup(job.Processor)
	if err != nil {
		o.fail(ctx, job, now, err.Error())
		return false
	}

	procResult, err := proc.Process(ctx, job, rows)
	if err != nil {
		o.capture(ctx, job, data)
		o.fail(ctx, job, now, fmt.Sprintf("processor %s failed: %v", job.Processor, err))
		return false
	}

	job.DocumentURLSHA256 = urlHash
	o.complete(ctx, job, now, len(rows), procResult.RowsIngested, procResult)

	fields := logger.Fields{
		"rows_parsed":   len(rows),
		"rows_ingested": procResult.RowsIngested,
	}
	for k, v := range procResult.Extra {
		fields[k] = v
	}
	o.log.WithFields(fields).WithField(logger.FieldJobID, job.ID).Info("Report job completed")
	return true
}

// reschedule keeps a job non-terminal and pushes next_poll_at out with
// capped exponential backoff.
func (o *Orchestrator) reschedule(ctx context.Context, job *domain.ReportJob, now time.Time, transientErr string) {
	job.AttemptCount++
	polled := now
	job.LastPolledAt = &polled
	job.NextPollAt = now.Add(backoffDelay(o.cfg.BackoffBase, o.cfg.BackoffCap, job.AttemptCount))
	if transientErr != "" {
		job.LastError = transientErr
	}
	if err := o.jobs.Update(ctx, job); err != nil {
		logger.CtxError(ctx, "Failed to persist reschedule: %v", err)
	}
}

func (o *Orchestrator) fail(ctx context.Context, job *domain.ReportJob, now time.Time, reason string) {
	polled := now
	job.LastPolledAt = &polled
	job.CompletedAt = &polled
	job.Status = domain.ReportJobFailed
	job.LastError = reason
	if err := o.jobs.Update(ctx, job); err != nil {
		logger.CtxError(ctx, "Failed to persist failure: %v", err)
	}
	logger.CtxError(ctx, "Report job failed: %s", reason)
}

func (o *Orchestrator) complete(ctx context.Context, job *domain.ReportJob, now time.Time, parsed, ingested int, procResult *processor.Result) {
	polled := now
	job.LastPolledAt = &polled
	job.CompletedAt = &polled
	job.Status = domain.ReportJobCompleted
	job.RowsParsed = parsed
	job.RowsIngested = ingested
	job.LastError = ""
	if procResult != nil && (len(procResult.Extra) > 0 || len(procResult.Samples) > 0) {
		if payload, err := json.Marshal(map[string]interface{}{
			"counters": procResult.Extra,
			"samples":  procResult.Samples,
		}); err == nil {
			job.DebugPayload = string(payload)
		}
	}
	if err := o.jobs.Update(ctx, job); err != nil {
		logger.CtxError(ctx, "Failed to persist completion: %v", err)
	}
}

// checkStuck fires the one-shot stuck alert when a job has waited past the
// threshold. stuck_alerted_at gates repeat alerts on later polls.
func (o *Orchestrator) checkStuck(ctx context.Context, job *domain.ReportJob, now time.Time) {
	if job.StuckAlertedAt != nil {
		return
	}
	waited := now.Sub(job.RequestedAt)
	if waited < o.cfg.StuckThreshold {
		return
	}
	o.alerter.AlertStuck(ctx, job, waited)
	alerted := now
	job.StuckAlertedAt = &alerted
	if err := o.jobs.Update(ctx, job); err != nil {
		logger.CtxError(ctx, "Failed to persist stuck alert marker: %v", err)
	}
}

// capture offloads a raw document to the debug archive, recording the key
// in debug_payload. Best effort.
func (o *Orchestrator) capture(ctx context.Context, job *domain.ReportJob, data []byte) {
	if o.archiver == nil {
		return
	}
	key, err := o.archiver.Capture(ctx, job.ID, data)
	if err != nil {
		logger.CtxWarn(ctx, "Debug capture failed: %v", err)
		return
	}
	payload, _ := json.Marshal(map[string]string{"document_archive_key": key})
	job.DebugPayload = string(payload)
}

// Requeue creates a fresh queued job from a terminal one, leaving the
// original untouched as the audit record. The new job has no upstream
// report yet; the first poll creates it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: terminal job to copy.
//   - pollAfter: delay before the new job's first poll.
// Returns:
//   - *domain.ReportJob: the new queued job.
//   - error: ErrNotTerminal when the original is still in flight.
func (o *Orchestrator) Requeue(ctx context.Context, jobID string, pollAfter time.Duration) (*domain.ReportJob, error) {
	original, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !original.Status.IsTerminal() {
		return nil, ErrNotTerminal
	}
	if pollAfter <= 0 {
		pollAfter = time.Minute
	}

	now := o.now().UTC()
	job := &domain.ReportJob{
		ID:               uuid.New().String(),
		Provider:         original.Provider,
		Processor:        original.Processor,
		Region:           original.Region,
		MarketplaceID:    original.MarketplaceID,
		ReportType:       original.ReportType,
		ScopeFingerprint: original.ScopeFingerprint,
		Scope:            original.Scope,
		ReportOptions:    original.ReportOptions,
		DataStartTime:    original.DataStartTime,
		DataEndTime:      original.DataEndTime,
		Status:           domain.ReportJobQueued,
		RequestedAt:      now,
		NextPollAt:       now.Add(pollAfter),
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist requeued job: %w", err)
	}

	o.log.WithFields(logger.Fields{
		logger.FieldJobID: job.ID,
		"original_job_id": original.ID,
	}).Info("Report job requeued")
	return job, nil
}

// backoffDelay computes base * 2^(attempt-1) capped at cap. attempt is the
// 1-based count after the increment.
func backoffDelay(base, cap time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	if delay > cap {
		return cap
	}
	return delay
}
