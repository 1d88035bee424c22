package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupWebRoutes registers the service banner and endpoint listing.
func SetupWebRoutes(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Address Normalizer Service",
			"version": "1.0.0",
			"docs":    "/docs",
		})
	})

	router.GET("/docs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"api": "Address Normalizer API v1",
			"endpoints": map[string]string{
				"normalize":       "POST /api/v1/addresses/normalize",
				"normalize_batch": "POST /api/v1/addresses/normalize/batch",
				"normalize_phone": "POST /api/v1/phones/normalize",
				"job_status":      "GET /api/v1/jobs/:jobID",
				"job_results":     "GET /api/v1/jobs/:jobID/results",
				"reviews":         "GET /api/v1/reviews",
				"review_search":   "GET /api/v1/reviews/search",
				"admin_stats":     "GET /api/v1/admin/stats",
				"health":          "GET /health",
			},
		})
	})
}
