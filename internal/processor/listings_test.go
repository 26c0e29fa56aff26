package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/ambergate/sellerops/internal/domain"
	"github.com/ambergate/sellerops/internal/logger"
	"github.com/ambergate/sellerops/internal/report"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBootstrap struct {
	registered []string
	err        error
}

func (b *fakeBootstrap) RegisterASIN(_ context.Context, _, asin, _ string) error {
	b.registered = append(b.registered, asin)
	return b.err
}

func listingsJob() *domain.ReportJob {
	return &domain.ReportJob{
		ID:            "job-1",
		MarketplaceID: "ATVPDKIKX0DER",
		ReportType:    "GET_MERCHANT_LISTINGS_ALL_DATA",
	}
}

func TestListingsProcess(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewListingRepository(db)
	p := NewListingsProcessor(repo, nil, logger.NewDefault())
	ctx := context.Background()

	rows := []report.Row{
		{
			"seller-sku":          "SKU1",
			"asin1":               "B000X",
			"item-name":           "Widget",
			"status":              "Active",
			"price":               "19.99",
			"quantity":            "12",
			"fulfillment-channel": "AMAZON_NA",
			"parent-child":        "child",
		},
		{"asin1": "B000Y", "item-name": "Orphan row"}, // no SKU
	}

	result, err := p.Process(ctx, listingsJob(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsIngested)
	assert.Equal(t, 1, result.Extra["rows_missing_sku"])
	assert.Len(t, result.Samples, 1)

	listing, err := repo.GetBySKU(ctx, "ATVPDKIKX0DER", "SKU1")
	require.NoError(t, err)
	assert.Equal(t, "B000X", listing.ASIN)
	assert.Equal(t, "Widget", listing.Title)
	assert.Equal(t, "Active", listing.ListingStatus)
	assert.Equal(t, 12, listing.Quantity)
	assert.Equal(t, "child", listing.VariationRole)
}

func TestListingsProcessIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewListingRepository(db)
	p := NewListingsProcessor(repo, nil, logger.NewDefault())
	ctx := context.Background()

	rows := []report.Row{
		{"seller-sku": "SKU1", "asin1": "B000X", "quantity": "12"},
	}
	for i := 0; i < 2; i++ {
		_, err := p.Process(ctx, listingsJob(), rows)
		require.NoError(t, err)
	}

	count, err := repo.Count(ctx, "ATVPDKIKX0DER")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// Same SKU in a different marketplace is a distinct listing
	otherJob := listingsJob()
	otherJob.MarketplaceID = "A1F83G8C2ARO7P"
	_, err = p.Process(ctx, otherJob, rows)
	require.NoError(t, err)

	count, err = repo.Count(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestListingsProcessHeaderVariants(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewListingRepository(db)
	p := NewListingsProcessor(repo, nil, logger.NewDefault())
	ctx := context.Background()

	// Older header dialect: underscores and alternate names
	rows := []report.Row{
		{"seller_sku": "SKU2", "asin": "B000Z", "product-name": "Old dialect", "listing_status": "Inactive"},
	}
	result, err := p.Process(ctx, listingsJob(), rows)
	require.NoError(t, err)
	require.Equal(t, 1, result.RowsIngested)

	listing, err := repo.GetBySKU(ctx, "ATVPDKIKX0DER", "SKU2")
	require.NoError(t, err)
	assert.Equal(t, "B000Z", listing.ASIN)
	assert.Equal(t, "Old dialect", listing.Title)
	assert.Equal(t, "Inactive", listing.ListingStatus)
}

func TestListingsBootstrapFailureIsNonFatal(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewListingRepository(db)
	bootstrap := &fakeBootstrap{err: errors.New("catalog service down")}
	p := NewListingsProcessor(repo, bootstrap, logger.NewDefault())
	ctx := context.Background()

	result, err := p.Process(ctx, listingsJob(), []report.Row{
		{"seller-sku": "SKU1", "asin1": "B000X"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsIngested, "listing upsert must survive bootstrap failure")
	assert.Equal(t, 1, result.Extra["bootstrap_failures"])

	_, err = repo.GetBySKU(ctx, "ATVPDKIKX0DER", "SKU1")
	assert.NoError(t, err)
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry(map[string]Processor{
		"marketplace_listings": NewListingsProcessor(nil, nil, logger.NewDefault()),
	})

	if _, err := registry.Lookup("marketplace_listings"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := registry.Lookup("nope")
	if !errors.Is(err, ErrUnknownProcessor) {
		t.Errorf("expected ErrUnknownProcessor, got %v", err)
	}

	keys := registry.Keys()
	if len(keys) != 1 || keys[0] != "marketplace_listings" {
		t.Errorf("unexpected keys: %v", keys)
	}
}
