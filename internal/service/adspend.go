package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ambergate/sellerops/internal/adsapi"
	"github.com/ambergate/sellerops/internal/domain"
	"github.com/ambergate/sellerops/internal/logger"
	"github.com/ambergate/sellerops/internal/report"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/google/uuid"
)

// AdsClient is the upstream surface the ad spend sync needs. Satisfied by
// *adsapi.Client.
type AdsClient interface {
	CreateReport(ctx context.Context, profileID string, spec *adsapi.CreateReportSpec) (string, error)
	GetReport(ctx context.Context, profileID, reportID string) (*adsapi.ReportStatus, error)
	DownloadReport(ctx context.Context, url string) ([]byte, error)
}

// AdSpendService runs the Ads-report variant of the poll/backoff/dedup
// pattern: same state machine as the orchestrator, against the Ads API's
// different upstream shape and the ads_report_requests telemetry fields.
type AdSpendService struct {
	requests *repository.AdsReportRepository
	spend    *repository.AdSpendRepository
	client   AdsClient
	cfg      OrchestratorConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewAdSpendService creates a new AdSpendService.
// Parameters:
//   - requests: ads report request repository.
//   - spend: daily spend repository.
//   - client: ads reporting client.
//   - cfg: shared backoff/stuck tuning.
//   - log: logger.
// Returns:
//   - *AdSpendService: service instance.
func NewAdSpendService(
	requests *repository.AdsReportRepository,
	spend *repository.AdSpendRepository,
	client AdsClient,
	cfg OrchestratorConfig,
	log *logger.Logger,
) *AdSpendService {
	cfg.applyDefaults()
	return &AdSpendService{
		requests: requests,
		spend:    spend,
		client:   client,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// QueueSpendParams describes one spend report request.
type QueueSpendParams struct {
	ProfileID string
	Region    string
	AdProduct string // e.g. SPONSORED_PRODUCTS
	Currency  string
	StartDate string // YYYY-MM-DD
	EndDate   string
	PollAfter time.Duration
}

const adsSpendReportType = "spCampaigns"

// QueueSpendReport queues a daily campaign spend report for one profile,
// deduplicating against non-terminal requests for the same scope.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - params: request parameters.
// Returns:
//   - *domain.AdsReportRequest: created or existing request.
//   - bool: true when a new request was created.
//   - error: non-nil if creation fails.
func (s *AdSpendService) QueueSpendReport(ctx context.Context, params QueueSpendParams) (*domain.AdsReportRequest, bool, error) {
	if params.ProfileID == "" {
		return nil, false, fmt.Errorf("profile id is required")
	}
	if params.AdProduct == "" {
		params.AdProduct = "SPONSORED_PRODUCTS"
	}
	if params.PollAfter <= 0 {
		params.PollAfter = time.Minute
	}

	fingerprint := report.ContentHash(params.ProfileID, params.AdProduct, adsSpendReportType, params.StartDate, params.EndDate)

	existing, err := s.requests.FindActiveDuplicate(ctx, params.ProfileID, params.AdProduct, adsSpendReportType, fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("duplicate lookup failed: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	reportID, err := s.client.CreateReport(ctx, params.ProfileID, &adsapi.CreateReportSpec{
		AdProduct:  params.AdProduct,
		ReportType: adsSpendReportType,
		StartDate:  params.StartDate,
		EndDate:    params.EndDate,
		GroupBy:    []string{"campaign"},
		Columns:    []string{"campaignId", "campaignName", "date", "cost", "impressions", "clicks"},
	})
	if err != nil {
		return nil, false, fmt.Errorf("ads report creation failed: %w", err)
	}

	now := s.now().UTC()
	req := &domain.AdsReportRequest{
		ID:               uuid.New().String(),
		ProfileID:        params.ProfileID,
		Region:           params.Region,
		AdProduct:        params.AdProduct,
		ReportType:       adsSpendReportType,
		Currency:         params.Currency,
		ScopeFingerprint: fingerprint,
		DataStartDate:    params.StartDate,
		DataEndDate:      params.EndDate,
		ExternalReportID: reportID,
		Status:           domain.ReportJobQueued,
		RequestedAt:      now,
		NextPollAt:       now.Add(params.PollAfter),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, false, fmt.Errorf("failed to persist ads report request: %w", err)
	}

	s.log.WithFields(logger.Fields{
		logger.FieldJobID: req.ID,
		"profile_id":      req.ProfileID,
		"ad_product":      req.AdProduct,
	}).Info("Ads spend report queued")
	return req, true, nil
}

// PollSpendReports scans due ads report requests, ingests completed ones,
// and reschedules the rest with the shared backoff curve.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of requests to check.
// Returns:
//   - *PollResult: checked/processed/failed counts plus remaining
//     non-terminal requests.
//   - error: non-nil only for storage-level failures.
func (s *AdSpendService) PollSpendReports(ctx context.Context, limit int) (*PollResult, error) {
	if limit <= 0 {
		limit = 50
	}

	due, err := s.requests.SelectPollable(ctx, s.now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("pollable selection failed: %w", err)
	}

	result := &PollResult{}
	for i := range due {
		req := &due[i]
		result.Checked++
		s.pollOne(ctx, req, result)
	}

	result.Outstanding, err = s.requests.CountOutstanding(ctx)
	if err != nil {
		return nil, fmt.Errorf("outstanding count failed: %w", err)
	}
	return result, nil
}

func (s *AdSpendService) pollOne(ctx context.Context, req *domain.AdsReportRequest, result *PollResult) {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldJobID: req.ID,
		"profile_id":      req.ProfileID,
	})
	now := s.now().UTC()

	s.checkStuck(ctx, req, now)

	status, err := s.client.GetReport(ctx, req.ProfileID, req.ExternalReportID)
	if status != nil {
		req.LastHTTPStatus = status.HTTPStatus
		req.LastRequestID = status.RequestID
	}
	if err != nil {
		s.reschedule(ctx, req, now, fmt.Sprintf("status poll failed: %v", err))
		return
	}

	switch status.Status {
	case adsapi.ReportStatusPending, adsapi.ReportStatusProcessing:
		s.reschedule(ctx, req, now, "")

	case adsapi.ReportStatusFailed:
		reason := status.FailureReason
		if reason == "" {
			reason = "upstream report failed"
		}
		s.fail(ctx, req, now, reason)
		result.Failed++

	case adsapi.ReportStatusCompleted:
		if s.ingest(ctx, req, status, now) {
			result.Processed++
		} else {
			result.Failed++
		}

	default:
		s.fail(ctx, req, now, fmt.Sprintf("unrecognized upstream status %q", status.Status))
		result.Failed++
	}
}

// spendRow is one row of a GZIP_JSON campaign spend report.
type spendRow struct {
	CampaignID   json.Number `json:"campaignId"`
	CampaignName string      `json:"campaignName"`
	Date         string      `json:"date"`
	Cost         json.Number `json:"cost"`
	Impressions  int64       `json:"impressions"`
	Clicks       int64       `json:"clicks"`
}

func (s *AdSpendService) ingest(ctx context.Context, req *domain.AdsReportRequest, status *adsapi.ReportStatus, now time.Time) bool {
	if status.URL == "" {
		s.fail(ctx, req, now, "upstream reported COMPLETED without a download URL")
		return false
	}

	urlHash := report.URLFingerprint(status.URL)
	if urlHash == req.DocumentURLSHA256 {
		logger.CtxInfo(ctx, "Spend report already ingested, completing with zero new rows")
		s.complete(ctx, req, now, 0, 0)
		return true
	}

	data, err := s.client.DownloadReport(ctx, status.URL)
	if err != nil {
		s.fail(ctx, req, now, fmt.Sprintf("report download failed: %v", err))
		return false
	}

	var rows []spendRow
	if err := json.Unmarshal(data, &rows); err != nil {
		s.fail(ctx, req, now, fmt.Sprintf("report parse failed: %v", err))
		return false
	}

	ingested := 0
	for _, row := range rows {
		if row.CampaignID.String() == "" || row.Date == "" {
			continue
		}
		spend := &domain.AdSpendDaily{
			ID:           uuid.New().String(),
			ProfileID:    req.ProfileID,
			CampaignID:   row.CampaignID.String(),
			Date:         row.Date,
			CampaignName: row.CampaignName,
			AdProduct:    req.AdProduct,
			Spend:        row.Cost.String(),
			Currency:     req.Currency,
			Impressions:  row.Impressions,
			Clicks:       row.Clicks,
		}
		if err := s.spend.Upsert(ctx, spend); err != nil {
			s.fail(ctx, req, now, fmt.Sprintf("spend upsert failed: %v", err))
			return false
		}
		ingested++
	}

	req.DocumentURLSHA256 = urlHash
	s.complete(ctx, req, now, len(rows), ingested)
	return true
}

func (s *AdSpendService) reschedule(ctx context.Context, req *domain.AdsReportRequest, now time.Time, transientErr string) {
	req.RetryCount++
	polled := now
	req.LastPolledAt = &polled
	req.NextPollAt = now.Add(backoffDelay(s.cfg.BackoffBase, s.cfg.BackoffCap, req.RetryCount))
	if transientErr != "" {
		req.LastError = transientErr
	}
	if err := s.requests.Update(ctx, req); err != nil {
		logger.CtxError(ctx, "Failed to persist reschedule: %v", err)
	}
}

func (s *AdSpendService) fail(ctx context.Context, req *domain.AdsReportRequest, now time.Time, reason string) {
	polled := now
	req.LastPolledAt = &polled
	req.CompletedAt = &polled
	req.Status = domain.ReportJobFailed
	req.LastError = reason
	if err := s.requests.Update(ctx, req); err != nil {
		logger.CtxError(ctx, "Failed to persist failure: %v", err)
	}
	logger.CtxError(ctx, "Ads spend report failed: %s", reason)
}

func (s *AdSpendService) complete(ctx context.Context, req *domain.AdsReportRequest, now time.Time, parsed, ingested int) {
	polled := now
	req.LastPolledAt = &polled
	req.CompletedAt = &polled
	req.Status = domain.ReportJobCompleted
	req.RowsParsed = parsed
	req.RowsIngested = ingested
	req.LastError = ""
	if err := s.requests.Update(ctx, req); err != nil {
		logger.CtxError(ctx, "Failed to persist completion: %v", err)
	}
}

func (s *AdSpendService) checkStuck(ctx context.Context, req *domain.AdsReportRequest, now time.Time) {
	if req.StuckAlertedAt != nil {
		return
	}
	waited := now.Sub(req.RequestedAt)
	if waited < s.cfg.StuckThreshold {
		return
	}
	s.log.WithFields(logger.Fields{
		logger.FieldJobID: req.ID,
		"profile_id":      req.ProfileID,
		"waited":          waited.String(),
	}).Warn("Ads spend report stuck past wait threshold")
	alerted := now
	req.StuckAlertedAt = &alerted
	if err := s.requests.Update(ctx, req); err != nil {
		logger.CtxError(ctx, "Failed to persist stuck alert marker: %v", err)
	}
}
