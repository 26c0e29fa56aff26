package repository

import (
	"context"
	"time"

	"github.com/ambergate/sellerops/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FcLocationRepository maintains the fulfillment-center code directory.
type FcLocationRepository struct {
	db *gorm.DB
}

// NewFcLocationRepository creates a new FcLocationRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *FcLocationRepository: repository instance bound to db.
func NewFcLocationRepository(db *gorm.DB) *FcLocationRepository {
	return &FcLocationRepository{db: db}
}

// Touch registers a sighting of an FC code, creating the directory entry
// on first sight and bumping last_seen on subsequent ones. City and state
// are filled in later by the location enrichment collaborator; Touch never
// overwrites them.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - code: uppercased fulfillment center code.
//   - seenAt: sighting timestamp.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *FcLocationRepository) Touch(ctx context.Context, code string, seenAt time.Time) error {
	loc := &domain.FcLocation{
		Code:      code,
		FirstSeen: seenAt,
		LastSeen:  seenAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen", "updated_at"}),
	}).Create(loc).Error
}

// List retrieves all known FC directory entries.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.FcLocation: directory entries ordered by code.
//   - error: non-nil if the query fails.
func (r *FcLocationRepository) List(ctx context.Context) ([]domain.FcLocation, error) {
	var locations []domain.FcLocation
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}
