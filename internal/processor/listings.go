package processor

import (
	"context"
	"time"

	"github.com/ambergate/sellerops/internal/domain"
	"github.com/ambergate/sellerops/internal/logger"
	"github.com/ambergate/sellerops/internal/report"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/google/uuid"
)

// CatalogBootstrap registers a product projection for an ASIN the first
// time a listing report surfaces it. Implemented elsewhere in the
// back office; the processor only needs the hook.
type CatalogBootstrap interface {
	RegisterASIN(ctx context.Context, marketplaceID, asin, sellerSKU string) error
}

// ListingsProcessor ingests merchant listings report rows into
// marketplace_listings, keyed by marketplace + SKU.
type ListingsProcessor struct {
	listings  *repository.ListingRepository
	bootstrap CatalogBootstrap
	log       *logger.Logger
}

// NewListingsProcessor creates a new ListingsProcessor.
// Parameters:
//   - listings: listing repository.
//   - bootstrap: catalog bootstrap hook; nil disables ASIN registration.
//   - log: logger for row-level diagnostics.
// Returns:
//   - *ListingsProcessor: processor instance.
func NewListingsProcessor(listings *repository.ListingRepository, bootstrap CatalogBootstrap, log *logger.Logger) *ListingsProcessor {
	return &ListingsProcessor{listings: listings, bootstrap: bootstrap, log: log}
}

// Historical column-name variants per logical field. Merchant listings
// reports have shipped all of these at some point; treat the lists as data.
var (
	listingSKUAliases      = []string{"seller-sku", "seller_sku", "sku"}
	listingASINAliases     = []string{"asin1", "asin", "product-id"}
	listingTitleAliases    = []string{"item-name", "item_name", "product-name", "title"}
	listingStatusAliases   = []string{"status", "listing-status", "listing_status"}
	listingPriceAliases    = []string{"price", "item-price", "listing-price"}
	listingQuantityAliases = []string{"quantity", "quantity-available", "afn-fulfillable-quantity"}
	listingChannelAliases  = []string{"fulfillment-channel", "fulfilment-channel", "fulfillment_channel"}
	listingRelationAliases = []string{"parent-child", "relationship-type", "relationship_type"}
)

// Process upserts one listing per row. Rows without a SKU are counted as
// rows_missing_sku and skipped; everything else is best-effort normalized.
func (p *ListingsProcessor) Process(ctx context.Context, job *domain.ReportJob, rows []report.Row) (*Result, error) {
	result := &Result{}
	now := time.Now().UTC()

	for _, row := range rows {
		view := report.NewRowView(row)

		sku, ok := view.Pick(listingSKUAliases...)
		if !ok {
			result.AddExtra("rows_missing_sku", 1)
			if len(result.Samples) < sampleLimit {
				result.Samples = append(result.Samples, row)
			}
			continue
		}

		asin, _ := view.Pick(listingASINAliases...)
		title, _ := view.Pick(listingTitleAliases...)
		status, _ := view.Pick(listingStatusAliases...)
		price, _ := view.Pick(listingPriceAliases...)
		channel, _ := view.Pick(listingChannelAliases...)

		quantity := 0
		if raw, ok := view.Pick(listingQuantityAliases...); ok {
			if n, ok := report.ParseQuantity(raw); ok {
				quantity = n
			}
		}

		listing := &domain.MarketplaceListing{
			ID:                 uuid.New().String(),
			MarketplaceID:      job.MarketplaceID,
			SellerSKU:          sku,
			ASIN:               asin,
			Title:              title,
			ListingStatus:      status,
			Price:              price,
			Quantity:           quantity,
			FulfillmentChannel: channel,
			VariationRole:      variationRole(view),
			RawRow:             domain.StringMap(view.Raw()),
			LastSeenAt:         now,
		}

		if err := p.listings.Upsert(ctx, listing); err != nil {
			return nil, err
		}
		result.RowsIngested++

		if asin != "" && p.bootstrap != nil {
			if err := p.bootstrap.RegisterASIN(ctx, job.MarketplaceID, asin, sku); err != nil {
				// Bootstrap failure shouldn't undo the listing upsert;
				// count it and move on
				result.AddExtra("bootstrap_failures", 1)
				p.log.WithError(err).WithFields(logger.Fields{
					"marketplace_id": job.MarketplaceID,
					"asin":           asin,
				}).Warn("Catalog bootstrap failed for ASIN")
			}
		}
	}

	return result, nil
}

// variationRole maps the parent-child / relationship-type column onto
// "parent", "child", or empty for standalone listings.
func variationRole(view report.RowView) string {
	raw, ok := view.Pick(listingRelationAliases...)
	if !ok {
		return ""
	}
	switch normalizeToken(raw) {
	case "parent":
		return "parent"
	case "child", "variation", "variation_child":
		return "child"
	default:
		return ""
	}
}
