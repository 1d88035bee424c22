package routes

import (
	"net/http"

	"github.com/address-normalizer/app/controllers"
	"github.com/gin-gonic/gin"
)

// SetupAPIRoutes registers the versioned API surface.
func SetupAPIRoutes(router *gin.Engine, normalizeController *controllers.NormalizeController, adminController *controllers.AdminController) {
	v1 := router.Group("/api/v1")
	{
		addresses := v1.Group("/addresses")
		{
			addresses.POST("/normalize", normalizeController.NormalizeAddress)
			addresses.POST("/normalize/batch", normalizeController.BatchNormalize)
		}

		phones := v1.Group("/phones")
		{
			phones.POST("/normalize", normalizeController.NormalizePhone)
		}

		jobs := v1.Group("/jobs")
		{
			jobs.GET("/:jobID", normalizeController.GetJobStatus)
			jobs.GET("/:jobID/results", normalizeController.GetJobResults)
		}

		reviews := v1.Group("/reviews")
		{
			reviews.GET("", adminController.ListReviews)
			reviews.GET("/search", adminController.SearchReviews)
			reviews.GET("/:reviewID", adminController.GetReview)
			reviews.POST("/:reviewID/approve", adminController.ApproveReview)
			reviews.POST("/:reviewID/reject", adminController.RejectReview)
			reviews.POST("/:reviewID/correct", adminController.CorrectReview)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/stats", adminController.GetStats)

			admin.GET("/aliases", adminController.ListAliases)
			admin.POST("/aliases/import", adminController.ImportAliases)
			admin.POST("/synonyms/rebuild", adminController.RebuildSynonyms)

			admin.POST("/indexes/build", adminController.BuildIndexes)
			admin.POST("/reviews/reindex", adminController.ReindexReviews)

			admin.GET("/cache/stats", adminController.GetCacheStats)
			admin.POST("/cache/clear", adminController.ClearCache)
			admin.POST("/cache/invalidate", adminController.InvalidateCache)

			admin.GET("/export/:type", adminController.ExportData)
		}
	}
}

// SetupHealthRoutes registers liveness and readiness probes.
func SetupHealthRoutes(router *gin.Engine, normalizeController *controllers.NormalizeController) {
	health := router.Group("/health")
	{
		health.GET("", normalizeController.HealthCheck)
		health.GET("/ready", normalizeController.ReadinessCheck)
		health.GET("/live", normalizeController.LivenessCheck)
	}
}

// SetupMetricsRoutes exposes service counters for internal scraping.
func SetupMetricsRoutes(router *gin.Engine, normalizeController *controllers.NormalizeController) {
	router.GET("/metrics", normalizeController.Metrics)
}

// SetupAllRoutes wires middleware and every route group onto the engine.
func SetupAllRoutes(router *gin.Engine, normalizeController *controllers.NormalizeController, adminController *controllers.AdminController) {
	setupMiddleware(router)

	SetupWebRoutes(router)
	SetupHealthRoutes(router, normalizeController)
	SetupAPIRoutes(router, normalizeController, adminController)
	SetupMetricsRoutes(router, normalizeController)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "Route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}

func setupMiddleware(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
}
