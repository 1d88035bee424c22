package controllers

import (
	"time"

	"github.com/address-normalizer/app/responses"
	"github.com/gin-gonic/gin"
)

// apiVersion is reported by the health and stats endpoints.
const apiVersion = "1.0.0"

// respondError writes the standard error envelope.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, responses.ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
