package repository

import (
	"context"

	"github.com/ambergate/sellerops/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FcInventoryRepository handles fulfillment-center inventory operations.
type FcInventoryRepository struct {
	db *gorm.DB
}

// NewFcInventoryRepository creates a new FcInventoryRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *FcInventoryRepository: repository instance bound to db.
func NewFcInventoryRepository(db *gorm.DB) *FcInventoryRepository {
	return &FcInventoryRepository{db: db}
}

// Upsert creates or updates an inventory position keyed by
// marketplace + FC + SKU + FNSKU + condition.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - inv: inventory record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *FcInventoryRepository) Upsert(ctx context.Context, inv *domain.FcInventory) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "marketplace_id"},
			{Name: "fulfillment_center_id"},
			{Name: "seller_sku"},
			{Name: "fnsku"},
			{Name: "item_condition"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"quantity", "snapshot_date", "raw_row", "last_seen_at", "updated_at",
		}),
	}).Create(inv).Error
}

// List retrieves inventory positions with optional filters.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - marketplaceID: marketplace to filter by; empty means all.
//   - fcCode: fulfillment center code to filter by; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.FcInventory: matching inventory records.
//   - error: non-nil if the query fails.
func (r *FcInventoryRepository) List(ctx context.Context, marketplaceID, fcCode string, limit, offset int) ([]domain.FcInventory, error) {
	var items []domain.FcInventory
	query := r.db.WithContext(ctx)
	if marketplaceID != "" {
		query = query.Where("marketplace_id = ?", marketplaceID)
	}
	if fcCode != "" {
		query = query.Where("fulfillment_center_id = ?", fcCode)
	}
	if err := query.
		Order("fulfillment_center_id ASC, seller_sku ASC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Count counts inventory positions for a marketplace; empty counts all.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - marketplaceID: marketplace to filter by; empty means all.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *FcInventoryRepository) Count(ctx context.Context, marketplaceID string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.FcInventory{})
	if marketplaceID != "" {
		query = query.Where("marketplace_id = ?", marketplaceID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
