package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ambergate/sellerops/internal/domain"
	"gorm.io/gorm"
)

// AdsReportRepository handles Amazon Ads report request persistence.
type AdsReportRepository struct {
	db *gorm.DB
}

// NewAdsReportRepository creates a new AdsReportRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *AdsReportRepository: repository instance bound to db.
func NewAdsReportRepository(db *gorm.DB) *AdsReportRepository {
	return &AdsReportRepository{db: db}
}

// Create inserts a new ads report request record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: report request to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *AdsReportRepository) Create(ctx context.Context, req *domain.AdsReportRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// Update persists all fields of an existing ads report request.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: report request with updated fields.
// Returns:
//   - error: non-nil if the update fails.
func (r *AdsReportRepository) Update(ctx context.Context, req *domain.AdsReportRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// GetByID retrieves an ads report request by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: request ID.
// Returns:
//   - *domain.AdsReportRequest: request record if found.
//   - error: non-nil if lookup fails.
func (r *AdsReportRepository) GetByID(ctx context.Context, id string) (*domain.AdsReportRequest, error) {
	var req domain.AdsReportRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindActiveDuplicate returns the non-terminal request matching the dedup
// identity tuple, or nil when none is in flight.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - profileID, adProduct, reportType: identity fields.
//   - fingerprint: canonical scope fingerprint.
// Returns:
//   - *domain.AdsReportRequest: active duplicate or nil.
//   - error: non-nil if the lookup fails.
func (r *AdsReportRepository) FindActiveDuplicate(ctx context.Context, profileID, adProduct, reportType, fingerprint string) (*domain.AdsReportRequest, error) {
	var req domain.AdsReportRequest
	err := r.db.WithContext(ctx).
		Where("profile_id = ? AND ad_product = ? AND report_type = ? AND scope_fingerprint = ?",
			profileID, adProduct, reportType, fingerprint).
		Where("status IN ?", domain.NonTerminalStatuses).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// SelectPollable returns up to limit non-terminal requests due for polling,
// oldest next_poll_at first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - now: poll cutoff.
//   - limit: maximum number of requests to return.
// Returns:
//   - []domain.AdsReportRequest: requests due for polling.
//   - error: non-nil if the query fails.
func (r *AdsReportRepository) SelectPollable(ctx context.Context, now time.Time, limit int) ([]domain.AdsReportRequest, error) {
	var reqs []domain.AdsReportRequest
	if err := r.db.WithContext(ctx).
		Where("status IN ?", domain.NonTerminalStatuses).
		Where("next_poll_at <= ?", now).
		Order("next_poll_at ASC").
		Limit(limit).
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// CountOutstanding counts non-terminal ads report requests.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of non-terminal requests.
//   - error: non-nil if the query fails.
func (r *AdsReportRepository) CountOutstanding(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.AdsReportRequest{}).
		Where("status IN ?", domain.NonTerminalStatuses).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
