package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/services"
	"github.com/kendall-kelly/hostel-management-api/utils"
)

// respondError writes err as {"error": message} with the status of its kind.
// Internal errors are logged and reported with a generic message.
func respondError(c *gin.Context, err error) {
	var fileErr *utils.FileUploadError
	if errors.As(err, &fileErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fileErr.Message})
		return
	}

	svcErr := services.AsServiceError(err)
	if svcErr.Kind == services.KindInternal {
		config.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(svcErr.Kind.HTTPStatus(), gin.H{"error": svcErr.Message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, gin.H{"error": message})
}
