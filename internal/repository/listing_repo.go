package repository

import (
	"context"

	"github.com/ambergate/sellerops/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListingRepository handles marketplace listing data operations.
type ListingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new ListingRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ListingRepository: repository instance bound to db.
func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Upsert creates or updates a listing keyed by marketplace + SKU.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - listing: listing record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *ListingRepository) Upsert(ctx context.Context, listing *domain.MarketplaceListing) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "marketplace_id"}, {Name: "seller_sku"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"asin", "title", "listing_status", "price", "quantity",
			"fulfillment_channel", "variation_role", "raw_row", "last_seen_at", "updated_at",
		}),
	}).Create(listing).Error
}

// GetBySKU retrieves a listing by marketplace and SKU.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - marketplaceID: marketplace identifier.
//   - sellerSKU: seller SKU.
// Returns:
//   - *domain.MarketplaceListing: listing record if found.
//   - error: non-nil if lookup fails.
func (r *ListingRepository) GetBySKU(ctx context.Context, marketplaceID, sellerSKU string) (*domain.MarketplaceListing, error) {
	var listing domain.MarketplaceListing
	if err := r.db.WithContext(ctx).
		First(&listing, "marketplace_id = ? AND seller_sku = ?", marketplaceID, sellerSKU).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// List retrieves listings with optional marketplace and status filters.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - marketplaceID: marketplace to filter by; empty means all.
//   - status: listing status to filter by; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.MarketplaceListing: matching listings.
//   - error: non-nil if the query fails.
func (r *ListingRepository) List(ctx context.Context, marketplaceID, status string, limit, offset int) ([]domain.MarketplaceListing, error) {
	var listings []domain.MarketplaceListing
	query := r.db.WithContext(ctx)
	if marketplaceID != "" {
		query = query.Where("marketplace_id = ?", marketplaceID)
	}
	if status != "" {
		query = query.Where("listing_status = ?", status)
	}
	if err := query.
		Order("seller_sku ASC").
		Limit(limit).
		Offset(offset).
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// Count counts listings for a marketplace; empty marketplace counts all.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - marketplaceID: marketplace to filter by; empty means all.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *ListingRepository) Count(ctx context.Context, marketplaceID string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.MarketplaceListing{})
	if marketplaceID != "" {
		query = query.Where("marketplace_id = ?", marketplaceID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
