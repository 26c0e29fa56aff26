package repository

import (
	"context"

	"github.com/ambergate/sellerops/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeeRepository handles normalized fee transaction lines.
type FeeRepository struct {
	db *gorm.DB
}

// NewFeeRepository creates a new FeeRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *FeeRepository: repository instance bound to db.
func NewFeeRepository(db *gorm.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// InsertIgnoreDuplicate inserts a fee line unless its content hash already
// exists. Sync windows overlap on purpose, so colliding lines are expected
// and silently skipped.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fee: normalized fee line with ContentHash set.
// Returns:
//   - bool: true when a new row was written.
//   - error: non-nil if the insert fails.
func (r *FeeRepository) InsertIgnoreDuplicate(ctx context.Context, fee *domain.FeeTransaction) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_hash"}},
		DoNothing: true,
	}).Create(fee)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountByMarketplace counts fee lines for a marketplace; empty counts all.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - marketplaceID: marketplace to filter by; empty means all.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *FeeRepository) CountByMarketplace(ctx context.Context, marketplaceID string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.FeeTransaction{})
	if marketplaceID != "" {
		query = query.Where("marketplace_id = ?", marketplaceID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
