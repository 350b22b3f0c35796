// Package handlers serves the worker's ops endpoints.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/npl-scorer/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeAppError maps application errors to HTTP status codes.  Messages of
// unmapped errors are masked.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	msg := err.Error()
	if status >= 500 && code == errors.CodeUnknown {
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code.String(), Message: msg})
}
