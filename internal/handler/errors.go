package handler

import (
	"errors"
	"net/http"

	"backoffice/internal/hierarchy"
	"backoffice/internal/service"
	"backoffice/internal/validation"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto the response envelope. Unknown errors become a
// generic 500; the detail goes to the request log through c.Error.
func respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, response.CodeInternal
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, response.CodeInvalidCredentials
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, response.CodeNotFound
	case errors.Is(err, service.ErrConflict):
		status, code = http.StatusConflict, response.CodeConflict
	case errors.Is(err, service.ErrValidation):
		status, code = http.StatusBadRequest, response.CodeValidation
	case errors.Is(err, service.ErrForbiddenOperation):
		status, code = http.StatusBadRequest, response.CodeForbiddenOperation
	case errors.Is(err, hierarchy.ErrIntegrity):
		code = response.CodeDataIntegrity
	}

	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		_ = c.Error(err)
		msg = "internal server error"
		if code == response.CodeDataIntegrity {
			msg = hierarchy.ErrIntegrity.Error()
		}
	case http.StatusUnauthorized:
		msg = service.ErrInvalidCredentials.Error()
	}
	c.JSON(status, response.Fail(status, code, msg))
}

// bindJSON decodes the body into req, answering 400 itself when that fails
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail(http.StatusBadRequest, response.CodeValidation, "Invalid request payload: "+validation.Describe(err)))
		return false
	}
	return true
}
