package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ambergate/sellerops/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A pooled :memory: handle is a different database per connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func seedJob(t *testing.T, repo *ReportJobRepository, id string, status domain.ReportJobStatus, nextPoll time.Time) *domain.ReportJob {
	t.Helper()
	job := &domain.ReportJob{
		ID:               id,
		Provider:         "sp_api_seller",
		Processor:        "marketplace_listings",
		Region:           "na",
		MarketplaceID:    "ATVPDKIKX0DER",
		ReportType:       "GET_MERCHANT_LISTINGS_ALL_DATA",
		ScopeFingerprint: "fp-" + id,
		Status:           status,
		RequestedAt:      time.Now().UTC().Add(-time.Hour),
		NextPollAt:       nextPoll,
	}
	require.NoError(t, repo.Create(context.Background(), job))
	return job
}

func TestFindActiveDuplicate(t *testing.T) {
	repo := NewReportJobRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	queued := seedJob(t, repo, "job-queued", domain.ReportJobQueued, now)

	dup, err := repo.FindActiveDuplicate(ctx, queued.Provider, queued.Processor, queued.MarketplaceID, queued.ReportType, queued.ScopeFingerprint)
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, queued.ID, dup.ID)

	// A different fingerprint is not a duplicate
	dup, err = repo.FindActiveDuplicate(ctx, queued.Provider, queued.Processor, queued.MarketplaceID, queued.ReportType, "other-fp")
	require.NoError(t, err)
	assert.Nil(t, dup)

	// Terminal jobs never block a new queue
	queued.Status = domain.ReportJobCompleted
	require.NoError(t, repo.Update(ctx, queued))
	dup, err = repo.FindActiveDuplicate(ctx, queued.Provider, queued.Processor, queued.MarketplaceID, queued.ReportType, queued.ScopeFingerprint)
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestSelectPollableOrderAndCutoff(t *testing.T) {
	repo := NewReportJobRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	seedJob(t, repo, "due-late", domain.ReportJobQueued, now.Add(-time.Minute))
	seedJob(t, repo, "due-early", domain.ReportJobInProgress, now.Add(-time.Hour))
	seedJob(t, repo, "not-due", domain.ReportJobQueued, now.Add(time.Hour))
	seedJob(t, repo, "terminal", domain.ReportJobFailed, now.Add(-time.Hour))

	due, err := repo.SelectPollable(ctx, now, 10, PollFilter{})
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "due-early", due[0].ID, "longest-waiting job comes first")
	assert.Equal(t, "due-late", due[1].ID)

	// Limit respected
	due, err = repo.SelectPollable(ctx, now, 1, PollFilter{})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due-early", due[0].ID)
}

func TestSelectPollableFilter(t *testing.T) {
	repo := NewReportJobRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	match := seedJob(t, repo, "match", domain.ReportJobQueued, now.Add(-time.Minute))
	other := seedJob(t, repo, "other-processor", domain.ReportJobQueued, now.Add(-time.Minute))
	other.Processor = "us_fc_inventory"
	require.NoError(t, repo.Update(ctx, other))

	due, err := repo.SelectPollable(ctx, now, 10, PollFilter{Processor: match.Processor})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, match.ID, due[0].ID)

	count, err := repo.CountOutstanding(ctx, PollFilter{Processor: "us_fc_inventory"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestClaimInProgressGuard(t *testing.T) {
	repo := NewReportJobRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	job := seedJob(t, repo, "claimable", domain.ReportJobQueued, now)

	claimed, err := repo.ClaimInProgress(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	refetched, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportJobInProgress, refetched.Status)

	// Terminal jobs cannot be resurrected by a racing poller
	refetched.Status = domain.ReportJobCompleted
	require.NoError(t, repo.Update(ctx, refetched))

	claimed, err = repo.ClaimInProgress(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	refetched, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportJobCompleted, refetched.Status)
}

func TestScopeRoundTrip(t *testing.T) {
	repo := NewReportJobRepository(newTestDB(t))
	ctx := context.Background()

	job := seedJob(t, repo, "with-scope", domain.ReportJobQueued, time.Now().UTC())
	job.Scope = domain.StringMap{"marketplaces": `["ATVPDKIKX0DER"]`, "opt:custom": "true"}
	job.ReportOptions = domain.StringMap{"custom": "true"}
	require.NoError(t, repo.Update(ctx, job))

	refetched, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "true", refetched.ReportOptions["custom"])
	assert.Equal(t, `["ATVPDKIKX0DER"]`, refetched.Scope["marketplaces"])
}
