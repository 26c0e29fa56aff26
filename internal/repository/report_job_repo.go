package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ambergate/sellerops/internal/domain"
	"gorm.io/gorm"
)

// ReportJobRepository handles report job persistence.
type ReportJobRepository struct {
	db *gorm.DB
}

// NewReportJobRepository creates a new ReportJobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ReportJobRepository: repository instance bound to db.
func NewReportJobRepository(db *gorm.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

// PollFilter narrows job selection for polling and outstanding counts.
// Zero-value fields are ignored.
type PollFilter struct {
	Provider      string
	Processor     string
	Region        string
	MarketplaceID string
	ReportType    string
}

func (r *ReportJobRepository) applyFilter(query *gorm.DB, filter PollFilter) *gorm.DB {
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.Processor != "" {
		query = query.Where("processor = ?", filter.Processor)
	}
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}
	if filter.MarketplaceID != "" {
		query = query.Where("marketplace_id = ?", filter.MarketplaceID)
	}
	if filter.ReportType != "" {
		query = query.Where("report_type = ?", filter.ReportType)
	}
	return query
}

// Create inserts a new report job record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: report job to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ReportJobRepository) Create(ctx context.Context, job *domain.ReportJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Update persists all fields of an existing report job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: report job with updated fields.
// Returns:
//   - error: non-nil if the update fails.
func (r *ReportJobRepository) Update(ctx context.Context, job *domain.ReportJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// GetByID retrieves a report job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: report job ID.
// Returns:
//   - *domain.ReportJob: job record if found.
//   - error: non-nil if lookup fails.
func (r *ReportJobRepository) GetByID(ctx context.Context, id string) (*domain.ReportJob, error) {
	var job domain.ReportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindActiveDuplicate returns the non-terminal job matching the dedup
// identity tuple, or nil when no duplicate is in flight.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - provider, processor, marketplaceID, reportType: identity fields.
//   - fingerprint: canonical scope fingerprint.
// Returns:
//   - *domain.ReportJob: active duplicate or nil.
//   - error: non-nil if the lookup fails.
func (r *ReportJobRepository) FindActiveDuplicate(ctx context.Context, provider, processor, marketplaceID, reportType, fingerprint string) (*domain.ReportJob, error) {
	var job domain.ReportJob
	err := r.db.WithContext(ctx).
		Where("provider = ? AND processor = ? AND marketplace_id = ? AND report_type = ? AND scope_fingerprint = ?",
			provider, processor, marketplaceID, reportType, fingerprint).
		Where("status IN ?", domain.NonTerminalStatuses).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// SelectPollable returns up to limit non-terminal jobs due for polling,
// oldest next_poll_at first so the longest-waiting job is checked first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - now: poll cutoff; jobs with next_poll_at after now are skipped.
//   - limit: maximum number of jobs to return.
//   - filter: optional identity filters.
// Returns:
//   - []domain.ReportJob: jobs due for polling.
//   - error: non-nil if the query fails.
func (r *ReportJobRepository) SelectPollable(ctx context.Context, now time.Time, limit int, filter PollFilter) ([]domain.ReportJob, error) {
	var jobs []domain.ReportJob
	query := r.applyFilter(r.db.WithContext(ctx), filter).
		Where("status IN ?", domain.NonTerminalStatuses).
		Where("next_poll_at <= ?", now).
		Order("next_poll_at ASC").
		Limit(limit)
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ClaimInProgress transitions a job to in_progress with a guarded
// single-statement update. Overlapping poll invocations can still race
// between select and claim; the guard keeps a terminal job from being
// resurrected, and document-hash plus idempotent upserts cover the rest.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: report job ID.
// Returns:
//   - bool: true when this caller performed the transition.
//   - error: non-nil if the update fails.
func (r *ReportJobRepository) ClaimInProgress(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.ReportJob{}).
		Where("id = ? AND status IN ?", id, domain.NonTerminalStatuses).
		Update("status", domain.ReportJobInProgress)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountOutstanding counts non-terminal jobs matching the filter.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filter: optional identity filters.
// Returns:
//   - int64: number of non-terminal jobs.
//   - error: non-nil if the query fails.
func (r *ReportJobRepository) CountOutstanding(ctx context.Context, filter PollFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&domain.ReportJob{}), filter).
		Where("status IN ?", domain.NonTerminalStatuses)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// List retrieves jobs for the back-office API with optional status filter
// and pagination, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: status to filter by; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.ReportJob: matching jobs.
//   - error: non-nil if the query fails.
func (r *ReportJobRepository) List(ctx context.Context, status domain.ReportJobStatus, limit, offset int) ([]domain.ReportJob, error) {
	var jobs []domain.ReportJob
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.
		Order("requested_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// CountByStatus counts jobs by status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: job status to count.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *ReportJobRepository) CountByStatus(ctx context.Context, status domain.ReportJobStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ReportJob{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
