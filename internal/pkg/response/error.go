package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clubworks/coaching-booking-backend/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

// Error sends a JSON error response.
// It checks if the error is an AppError to determine the status and code.
// If it's not an AppError, it defaults to 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status, ErrorResponse{
			Success: false,
			Code:    appErr.Code,
			Error:   appErr.Message,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Error:   "internal server error",
	})
}
