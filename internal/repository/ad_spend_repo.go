package repository

import (
	"context"

	"github.com/ambergate/sellerops/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdSpendRepository handles daily ad spend rows.
type AdSpendRepository struct {
	db *gorm.DB
}

// NewAdSpendRepository creates a new AdSpendRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *AdSpendRepository: repository instance bound to db.
func NewAdSpendRepository(db *gorm.DB) *AdSpendRepository {
	return &AdSpendRepository{db: db}
}

// Upsert creates or updates a spend row keyed by profile + campaign + date.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - row: spend row to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *AdSpendRepository) Upsert(ctx context.Context, row *domain.AdSpendDaily) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "profile_id"}, {Name: "campaign_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"campaign_name", "ad_product", "spend", "currency",
			"impressions", "clicks", "updated_at",
		}),
	}).Create(row).Error
}

// ListByProfile retrieves spend rows for a profile within a date range.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - profileID: ads profile identifier.
//   - startDate, endDate: inclusive YYYY-MM-DD bounds; empty means open.
// Returns:
//   - []domain.AdSpendDaily: matching spend rows ordered by date.
//   - error: non-nil if the query fails.
func (r *AdSpendRepository) ListByProfile(ctx context.Context, profileID, startDate, endDate string) ([]domain.AdSpendDaily, error) {
	var rows []domain.AdSpendDaily
	query := r.db.WithContext(ctx).Where("profile_id = ?", profileID)
	if startDate != "" {
		query = query.Where("date >= ?", startDate)
	}
	if endDate != "" {
		query = query.Where("date <= ?", endDate)
	}
	if err := query.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
