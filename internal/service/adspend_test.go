package service

import (
	"context"
	"testing"
	"time"

	"github.com/ambergate/sellerops/internal/adsapi"
	"github.com/ambergate/sellerops/internal/domain"
	"github.com/ambergate/sellerops/internal/logger"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeAdsClient struct {
	createID    string
	createCalls int

	status    *adsapi.ReportStatus
	statusErr error

	data        []byte
	downloadErr error
}

func (f *fakeAdsClient) CreateReport(_ context.Context, _ string, _ *adsapi.CreateReportSpec) (string, error) {
	f.createCalls++
	return f.createID, nil
}

func (f *fakeAdsClient) GetReport(_ context.Context, _, _ string) (*adsapi.ReportStatus, error) {
	if f.statusErr != nil {
		return f.status, f.statusErr
	}
	return f.status, nil
}

func (f *fakeAdsClient) DownloadReport(_ context.Context, _ string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.data, nil
}

func newTestAdSpend(t *testing.T, db *gorm.DB, client AdsClient) *AdSpendService {
	t.Helper()
	return NewAdSpendService(
		repository.NewAdsReportRepository(db),
		repository.NewAdSpendRepository(db),
		client,
		OrchestratorConfig{},
		logger.NewDefault(),
	)
}

func TestQueueSpendReportDedup(t *testing.T) {
	db := newTestDB(t)
	client := &fakeAdsClient{createID: "ads-report-1"}
	s := newTestAdSpend(t, db, client)
	ctx := context.Background()

	params := QueueSpendParams{
		ProfileID: "profile-1",
		StartDate: "2026-08-28",
		EndDate:   "2026-08-28",
	}

	first, created, err := s.QueueSpendReport(ctx, params)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "SPONSORED_PRODUCTS", first.AdProduct, "ad product defaults")

	second, created, err := s.QueueSpendReport(ctx, params)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, client.createCalls)

	// A different window is a new request
	params.StartDate, params.EndDate = "2026-08-27", "2026-08-27"
	_, created, err = s.QueueSpendReport(ctx, params)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestQueueSpendReportRequiresProfile(t *testing.T) {
	db := newTestDB(t)
	s := newTestAdSpend(t, db, &fakeAdsClient{})

	_, _, err := s.QueueSpendReport(context.Background(), QueueSpendParams{StartDate: "2026-08-28", EndDate: "2026-08-28"})
	assert.Error(t, err)
}

func TestPollSpendReportsFullCycle(t *testing.T) {
	db := newTestDB(t)
	client := &fakeAdsClient{
		createID: "ads-report-1",
		status: &adsapi.ReportStatus{
			ReportID:   "ads-report-1",
			Status:     adsapi.ReportStatusCompleted,
			URL:        "https://ads.example.com/report-1.json",
			HTTPStatus: 200,
			RequestID:  "req-abc",
		},
		data: []byte(`[
			{"campaignId": 111, "campaignName": "Brand A", "date": "2026-08-28", "cost": 12.34, "impressions": 1000, "clicks": 25},
			{"campaignId": 222, "campaignName": "Brand B", "date": "2026-08-28", "cost": 0.5, "impressions": 40, "clicks": 1},
			{"campaignName": "no id, dropped", "date": "2026-08-28"}
		]`),
	}
	s := newTestAdSpend(t, db, client)
	ctx := context.Background()

	req, created, err := s.QueueSpendReport(ctx, QueueSpendParams{
		ProfileID: "profile-1",
		Currency:  "USD",
		StartDate: "2026-08-28",
		EndDate:   "2026-08-28",
		PollAfter: time.Second,
	})
	require.NoError(t, err)
	require.True(t, created)

	s.now = func() time.Time { return time.Now().Add(time.Minute) }

	result, err := s.PollSpendReports(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Processed)
	assert.EqualValues(t, 0, result.Outstanding)

	refetched, err := repository.NewAdsReportRepository(db).GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportJobCompleted, refetched.Status)
	assert.Equal(t, 3, refetched.RowsParsed)
	assert.Equal(t, 2, refetched.RowsIngested)
	assert.Equal(t, 200, refetched.LastHTTPStatus)
	assert.Equal(t, "req-abc", refetched.LastRequestID)

	rows, err := repository.NewAdSpendRepository(db).ListByProfile(ctx, "profile-1", "", "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestPollSpendReportsUpsertIdempotent(t *testing.T) {
	db := newTestDB(t)
	spendRepo := repository.NewAdSpendRepository(db)
	ctx := context.Background()

	row := &domain.AdSpendDaily{
		ID:         "spend-1",
		ProfileID:  "profile-1",
		CampaignID: "111",
		Date:       "2026-08-28",
		Spend:      "12.34",
	}
	require.NoError(t, spendRepo.Upsert(ctx, row))

	// Same (profile, campaign, date) with fresher numbers replaces in place
	update := &domain.AdSpendDaily{
		ID:         "spend-2",
		ProfileID:  "profile-1",
		CampaignID: "111",
		Date:       "2026-08-28",
		Spend:      "15.00",
	}
	require.NoError(t, spendRepo.Upsert(ctx, update))

	rows, err := spendRepo.ListByProfile(ctx, "profile-1", "", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "15.00", rows[0].Spend)
}

func TestPollSpendReportsFailure(t *testing.T) {
	db := newTestDB(t)
	client := &fakeAdsClient{
		createID: "ads-report-1",
		status: &adsapi.ReportStatus{
			Status:        adsapi.ReportStatusFailed,
			FailureReason: "report window too large",
			HTTPStatus:    400,
		},
	}
	s := newTestAdSpend(t, db, client)
	ctx := context.Background()

	req, _, err := s.QueueSpendReport(ctx, QueueSpendParams{
		ProfileID: "profile-1",
		StartDate: "2026-08-28",
		EndDate:   "2026-08-28",
		PollAfter: time.Second,
	})
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(time.Minute) }

	result, err := s.PollSpendReports(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	refetched, err := repository.NewAdsReportRepository(db).GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportJobFailed, refetched.Status)
	assert.Equal(t, "report window too large", refetched.LastError)
	assert.Equal(t, 400, refetched.LastHTTPStatus)
}

func TestPollSpendReportsRetryTelemetry(t *testing.T) {
	db := newTestDB(t)
	client := &fakeAdsClient{
		createID: "ads-report-1",
		status:   &adsapi.ReportStatus{Status: adsapi.ReportStatusProcessing, HTTPStatus: 200, RequestID: "req-1"},
	}
	s := newTestAdSpend(t, db, client)
	ctx := context.Background()

	req, _, err := s.QueueSpendReport(ctx, QueueSpendParams{
		ProfileID: "profile-1",
		StartDate: "2026-08-28",
		EndDate:   "2026-08-28",
		PollAfter: time.Second,
	})
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(time.Minute) }
	_, err = s.PollSpendReports(ctx, 10)
	require.NoError(t, err)

	refetched, err := repository.NewAdsReportRepository(db).GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refetched.RetryCount)
	assert.Equal(t, "req-1", refetched.LastRequestID)
	assert.False(t, refetched.Status.IsTerminal())
}
