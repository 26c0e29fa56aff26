package handler

import (
	"net/http"

	"github.com/ambergate/sellerops/internal/domain"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/gin-gonic/gin"
)

// StatsHandler serves aggregate counts for the dashboard landing page.
type StatsHandler struct {
	jobs      *repository.ReportJobRepository
	listings  *repository.ListingRepository
	inventory *repository.FcInventoryRepository
	fees      *repository.FeeRepository
}

// NewStatsHandler creates a new StatsHandler.
// Parameters:
//   - jobs: report job repository.
//   - listings: listing repository.
//   - inventory: FC inventory repository.
//   - fees: fee repository.
// Returns:
//   - *StatsHandler: handler instance.
func NewStatsHandler(
	jobs *repository.ReportJobRepository,
	listings *repository.ListingRepository,
	inventory *repository.FcInventoryRepository,
	fees *repository.FeeRepository,
) *StatsHandler {
	return &StatsHandler{jobs: jobs, listings: listings, inventory: inventory, fees: fees}
}

// GetStats returns aggregate counts across jobs and domain tables.
func (h *StatsHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	jobCounts := make(map[string]int64, 4)
	for _, status := range []domain.ReportJobStatus{
		domain.ReportJobQueued,
		domain.ReportJobInProgress,
		domain.ReportJobCompleted,
		domain.ReportJobFailed,
	} {
		count, err := h.jobs.CountByStatus(ctx, status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count jobs"})
			return
		}
		jobCounts[string(status)] = count
	}

	listingCount, err := h.listings.Count(ctx, c.Query("marketplace_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count listings"})
		return
	}
	inventoryCount, err := h.inventory.Count(ctx, c.Query("marketplace_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count inventory"})
		return
	}
	feeCount, err := h.fees.CountByMarketplace(ctx, c.Query("marketplace_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count fees"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":      jobCounts,
		"listings":  listingCount,
		"inventory": inventoryCount,
		"fees":      feeCount,
	})
}
