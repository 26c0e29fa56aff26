package handler

import (
	"errors"
	"net/http"

	"github.com/ambergate/sellerops/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CatalogHandler serves the listing and FC inventory views.
type CatalogHandler struct {
	listings  *repository.ListingRepository
	inventory *repository.FcInventoryRepository
	locations *repository.FcLocationRepository
}

// NewCatalogHandler creates a new CatalogHandler.
// Parameters:
//   - listings: listing repository.
//   - inventory: FC inventory repository.
//   - locations: FC location repository.
// Returns:
//   - *CatalogHandler: handler instance.
func NewCatalogHandler(
	listings *repository.ListingRepository,
	inventory *repository.FcInventoryRepository,
	locations *repository.FcLocationRepository,
) *CatalogHandler {
	return &CatalogHandler{listings: listings, inventory: inventory, locations: locations}
}

// ListListings returns marketplace listings.
// Query params: marketplace_id, status, limit, offset.
func (h *CatalogHandler) ListListings(c *gin.Context) {
	listings, err := h.listings.List(
		c.Request.Context(),
		c.Query("marketplace_id"),
		c.Query("status"),
		intQuery(c, "limit", 50),
		intQuery(c, "offset", 0),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings, "count": len(listings)})
}

// GetListing returns one listing by marketplace and SKU.
func (h *CatalogHandler) GetListing(c *gin.Context) {
	listing, err := h.listings.GetBySKU(c.Request.Context(), c.Param("marketplace"), c.Param("sku"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load listing"})
		return
	}
	c.JSON(http.StatusOK, listing)
}

// ListInventory returns FC inventory positions.
// Query params: marketplace_id, fc, limit, offset.
func (h *CatalogHandler) ListInventory(c *gin.Context) {
	items, err := h.inventory.List(
		c.Request.Context(),
		c.Query("marketplace_id"),
		c.Query("fc"),
		intQuery(c, "limit", 50),
		intQuery(c, "offset", 0),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list inventory"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": items, "count": len(items)})
}

// ListFcLocations returns the FC code directory.
func (h *CatalogHandler) ListFcLocations(c *gin.Context) {
	locations, err := h.locations.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list FC locations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations, "count": len(locations)})
}
