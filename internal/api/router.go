package api

import (
	"github.com/ambergate/sellerops/internal/api/handler"
	"github.com/ambergate/sellerops/internal/api/middleware"
	"github.com/ambergate/sellerops/internal/logger"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/ambergate/sellerops/internal/service"
	"github.com/gin-gonic/gin"
)

// Deps bundles everything the router needs.
type Deps struct {
	Jobs         *repository.ReportJobRepository
	Listings     *repository.ListingRepository
	Inventory    *repository.FcInventoryRepository
	Locations    *repository.FcLocationRepository
	Fees         *repository.FeeRepository
	Orchestrator *service.Orchestrator
	Logger       *logger.Logger
	CORS         middleware.CORSConfig
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, mode string) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORS(deps.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	jobHandler := handler.NewJobHandler(deps.Jobs, deps.Orchestrator)
	catalogHandler := handler.NewCatalogHandler(deps.Listings, deps.Inventory, deps.Locations)
	statsHandler := handler.NewStatsHandler(deps.Jobs, deps.Listings, deps.Inventory, deps.Fees)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Report jobs
		v1.GET("/jobs", jobHandler.ListJobs)
		v1.GET("/jobs/:id", jobHandler.GetJob)
		v1.POST("/jobs/:id/requeue", jobHandler.RequeueJob)

		// Listings
		v1.GET("/listings", catalogHandler.ListListings)
		v1.GET("/listings/:marketplace/:sku", catalogHandler.GetListing)

		// FC inventory
		v1.GET("/inventory", catalogHandler.ListInventory)
		v1.GET("/fc-locations", catalogHandler.ListFcLocations)

		// Stats
		v1.GET("/stats", statsHandler.GetStats)
	}

	return r
}
