package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuccessResponse writes a 200 response with the standard envelope
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// AcceptedResponse writes a 202 response for work queued in the background
func AcceptedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    data,
	})
}

// CreatedResponse writes a 201 response
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

// ErrorResponse writes an error response with the given status code
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

// AppErrorResponse writes a response for an AppError
func AppErrorResponse(c *gin.Context, err *AppError) {
	ErrorResponse(c, err.Code, err.Message)
}

// HandleServiceError maps a service error to an HTTP response,
// falling back to 500 for unclassified errors
func HandleServiceError(c *gin.Context, err error, fallback string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		AppErrorResponse(c, appErr)
		return
	}
	ErrorResponse(c, http.StatusInternalServerError, fallback)
}
