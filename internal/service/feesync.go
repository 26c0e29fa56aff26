package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ambergate/sellerops/internal/domain"
	"github.com/ambergate/sellerops/internal/logger"
	"github.com/ambergate/sellerops/internal/report"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/ambergate/sellerops/internal/spapi"
	"github.com/google/uuid"
)

// FinanceClient is the upstream surface fee sync needs. Satisfied by
// *spapi.Client.
type FinanceClient interface {
	ListFinancialEvents(ctx context.Context, start, end time.Time, nextToken string) (*spapi.FinancialEventsPage, error)
}

// FeeSyncService pulls finance events over a posted-date window and
// ingests normalized fee lines. Sync windows are expected to overlap for
// coverage; the content-hash key on fee_transactions absorbs the overlap.
type FeeSyncService struct {
	fees   *repository.FeeRepository
	client FinanceClient
	log    *logger.Logger
}

// NewFeeSyncService creates a new FeeSyncService.
// Parameters:
//   - fees: fee transaction repository.
//   - client: finance events client.
//   - log: logger.
// Returns:
//   - *FeeSyncService: service instance.
func NewFeeSyncService(fees *repository.FeeRepository, client FinanceClient, log *logger.Logger) *FeeSyncService {
	return &FeeSyncService{fees: fees, client: client, log: log}
}

// FeeSyncStats aggregates one sync invocation.
type FeeSyncStats struct {
	Fetched    int
	Ingested   int
	Duplicates int
	Pages      int
}

// Sync pulls all finance event pages in the window and upserts fee lines.
// A page fetch failure stops the sync at that point but keeps what was
// already ingested; re-running the same window is safe.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - start, end: posted-date window.
// Returns:
//   - *FeeSyncStats: fetched/ingested/duplicate counts.
//   - error: non-nil if a page fetch or insert fails.
func (s *FeeSyncService) Sync(ctx context.Context, start, end time.Time) (*FeeSyncStats, error) {
	stats := &FeeSyncStats{}
	nextToken := ""

	for {
		page, err := s.client.ListFinancialEvents(ctx, start, end, nextToken)
		if err != nil {
			return stats, fmt.Errorf("finance events page %d failed: %w", stats.Pages+1, err)
		}
		stats.Pages++
		stats.Fetched += len(page.Events)

		for _, ev := range page.Events {
			fee := &domain.FeeTransaction{
				ID:            uuid.New().String(),
				MarketplaceID: ev.MarketplaceID,
				SellerSKU:     ev.SellerSKU,
				OrderID:       ev.OrderID,
				FeeType:       ev.FeeType,
				Amount:        ev.Amount,
				Currency:      ev.Currency,
				PostedAt:      ev.PostedAt,
			}
			fee.ContentHash = report.ContentHash(
				ev.MarketplaceID, ev.SellerSKU, ev.OrderID, ev.FeeType,
				ev.Amount, ev.Currency, ev.PostedAt.UTC().Format(time.RFC3339),
			)

			inserted, err := s.fees.InsertIgnoreDuplicate(ctx, fee)
			if err != nil {
				return stats, fmt.Errorf("fee insert failed: %w", err)
			}
			if inserted {
				stats.Ingested++
			} else {
				stats.Duplicates++
			}
		}

		if page.NextToken == "" {
			break
		}
		nextToken = page.NextToken
	}

	s.log.WithFields(logger.Fields{
		"fetched":    stats.Fetched,
		"ingested":   stats.Ingested,
		"duplicates": stats.Duplicates,
		"pages":      stats.Pages,
	}).Info("Fee sync completed")
	return stats, nil
}
