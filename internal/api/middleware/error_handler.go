package middleware

import (
	"users-service/internal/api/apierror"
	"users-service/internal/api/response"
	"users-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error a downstream handler recorded with
// c.Error, unless a response has already been written.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		apiErr := apierror.From(c.Errors.Last().Err)
		if apiErr.Status >= 500 {
			logger.WithField(requestIDKey, c.GetString(requestIDKey)).Errorf("Unhandled error: %v", apiErr)
		}

		c.AbortWithStatusJSON(apiErr.Status, response.APIResponse{
			Success: false,
			Message: apiErr.Message,
			Errors:  apiErr.Details,
		})
	}
}
