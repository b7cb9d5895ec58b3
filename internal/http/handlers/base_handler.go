// README: Base handler utilities (JSON helpers, caller identity, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gohappygo/internal/http/middleware"
	"gohappygo/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// pathID reads a uuid path parameter; ids are minted with uuid.NewString.
func pathID(c *gin.Context, name string) (types.ID, bool) {
	v := c.Param(name)
	if err := uuid.Validate(v); err != nil {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return types.ID(v), true
}

func caller(c *gin.Context) types.ID {
	return types.ID(middleware.CallerUID(c))
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeBookingError maps an error class to a status. Authorization failures
// reveal nothing beyond "not authorized".
func writeBookingError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, msg := describe(err)
	writeError(c, status, msg)
}

func describe(err error) (int, string) {
	status := statusOf(err)
	msg := http.StatusText(status)
	var typed *types.Error
	switch {
	case status == http.StatusForbidden:
		msg = "not authorized"
	case status == http.StatusInternalServerError:
		msg = "internal error"
	case errors.As(err, &typed):
		msg = typed.Error()
	}
	return status, msg
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, types.ErrDependency):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
