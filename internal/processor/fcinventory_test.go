package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ambergate/sellerops/internal/domain"
	"github.com/ambergate/sellerops/internal/logger"
	"github.com/ambergate/sellerops/internal/report"
	"github.com/ambergate/sellerops/internal/repository"
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

	require.NoError(t, repository.Migrate(db))
	return db
}

func TestValidFcCode(t *testing.T) {
	testCases := []struct {
		code string
		want bool
	}{
		{"ONT8", true},
		{"LAS1", true},
		{"TEB9", true},
		{"SMF32", true},
		{"US", false},     // bare country token
		{"USA", false},    // too short anyway, also a token
		{"EU", false},     // region rollup token
		{"ABCD", false},   // no digit
		{"1234", false},   // no letter
		{"ONT", false},    // too short
		{"ONT8999", false}, // too long
		{"ON-8", false},   // non-alphanumeric
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			if got := ValidFcCode(tc.code); got != tc.want {
				t.Errorf("ValidFcCode(%q) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

type fakeDirectory struct {
	touched map[string]int
	err     error
}

func (d *fakeDirectory) Touch(_ context.Context, code string, _ time.Time) error {
	if d.touched == nil {
		d.touched = make(map[string]int)
	}
	d.touched[code]++
	return d.err
}

func fcJob() *domain.ReportJob {
	return &domain.ReportJob{
		ID:            "job-1",
		MarketplaceID: "ATVPDKIKX0DER",
		ReportType:    FcInventoryReportType,
	}
}

func TestFcInventoryProcessIgnoresOtherReportTypes(t *testing.T) {
	db := newTestDB(t)
	p := NewFcInventoryProcessor(repository.NewFcInventoryRepository(db), nil, logger.NewDefault())

	job := fcJob()
	job.ReportType = "GET_LEDGER_SUMMARY_VIEW_DATA"

	result, err := p.Process(context.Background(), job, []report.Row{
		{"fulfillment-center-id": "ONT8", "seller-sku": "SKU1", "quantity": "5"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowsIngested, "only the inventory report type carries rows")
}

func TestFcInventoryProcessLatestSnapshotOnly(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewFcInventoryRepository(db)
	p := NewFcInventoryProcessor(repo, nil, logger.NewDefault())
	ctx := context.Background()

	rows := []report.Row{
		{"snapshot-date": "2026-08-27", "fulfillment-center-id": "ONT8", "seller-sku": "SKU1", "fnsku": "X001", "quantity": "3"},
		{"snapshot-date": "2026-08-28", "fulfillment-center-id": "ONT8", "seller-sku": "SKU1", "fnsku": "X001", "quantity": "7"},
		{"snapshot-date": "2026-08-28", "fulfillment-center-id": "LAS1", "seller-sku": "SKU1", "fnsku": "X001", "quantity": "2"},
	}

	result, err := p.Process(ctx, fcJob(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsIngested)
	assert.Equal(t, 1, result.Extra["rows_stale"])

	items, err := repo.List(ctx, "ATVPDKIKX0DER", "ONT8", 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity, "stale snapshot must not overwrite the latest one")
	assert.Equal(t, "2026-08-28", items[0].SnapshotDate)
}

func TestFcInventoryProcessRejectsBogusFcCodes(t *testing.T) {
	db := newTestDB(t)
	p := NewFcInventoryProcessor(repository.NewFcInventoryRepository(db), nil, logger.NewDefault())

	rows := []report.Row{
		{"fulfillment-center-id": "US", "seller-sku": "SKU1", "quantity": "100"},   // country rollup line
		{"fulfillment-center-id": "Total", "seller-sku": "SKU1", "quantity": "10"}, // subtotal line
		{"fulfillment-center-id": "ont8", "seller-sku": "SKU1", "quantity": "5"},   // valid, lowercase
	}

	result, err := p.Process(context.Background(), fcJob(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsIngested)
	assert.Equal(t, 2, result.Extra["rows_missing_fc"])
	assert.Len(t, result.Samples, 2)
}

func TestFcInventoryProcessIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewFcInventoryRepository(db)
	p := NewFcInventoryProcessor(repo, nil, logger.NewDefault())
	ctx := context.Background()

	rows := []report.Row{
		{"snapshot-date": "2026-08-28", "fulfillment-center-id": "ONT8", "seller-sku": "SKU1", "fnsku": "X001", "item-condition": "New", "quantity": "7"},
	}

	for i := 0; i < 2; i++ {
		result, err := p.Process(ctx, fcJob(), rows)
		require.NoError(t, err)
		assert.Equal(t, 1, result.RowsIngested)
	}

	count, err := repo.Count(ctx, "ATVPDKIKX0DER")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "redelivery must not create duplicate positions")
}

func TestFcInventoryProcessQuantityFallback(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewFcInventoryRepository(db)
	p := NewFcInventoryProcessor(repo, nil, logger.NewDefault())
	ctx := context.Background()

	rows := []report.Row{
		// No recognized primary column; "available" pattern carries the value
		{"fulfillment-center-id": "ONT8", "seller-sku": "SKU1", "available": "50"},
	}

	result, err := p.Process(ctx, fcJob(), rows)
	require.NoError(t, err)
	require.Equal(t, 1, result.RowsIngested)

	items, err := repo.List(ctx, "ATVPDKIKX0DER", "ONT8", 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 50, items[0].Quantity)
}

func TestFcInventoryDirectoryTouchOncePerFc(t *testing.T) {
	db := newTestDB(t)
	dir := &fakeDirectory{}
	p := NewFcInventoryProcessor(repository.NewFcInventoryRepository(db), dir, logger.NewDefault())

	rows := []report.Row{
		{"fulfillment-center-id": "ONT8", "seller-sku": "SKU1", "quantity": "1"},
		{"fulfillment-center-id": "ONT8", "seller-sku": "SKU2", "quantity": "2"},
		{"fulfillment-center-id": "LAS1", "seller-sku": "SKU1", "quantity": "3"},
	}

	_, err := p.Process(context.Background(), fcJob(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, dir.touched["ONT8"])
	assert.Equal(t, 1, dir.touched["LAS1"])
}

func TestFcInventoryDirectoryFailureIsNonFatal(t *testing.T) {
	db := newTestDB(t)
	dir := &fakeDirectory{err: errors.New("directory down")}
	p := NewFcInventoryProcessor(repository.NewFcInventoryRepository(db), dir, logger.NewDefault())

	result, err := p.Process(context.Background(), fcJob(), []report.Row{
		{"fulfillment-center-id": "ONT8", "seller-sku": "SKU1", "quantity": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsIngested)
	assert.Equal(t, 1, result.Extra["directory_failures"])
}
