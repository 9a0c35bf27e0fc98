package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/croissant/croissant-api/internal/reqctx"
	"github.com/croissant/croissant-api/internal/service"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Code: code, Message: message}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
}

// serviceError maps a service failure onto its status code. Unknown errors are logged and hidden.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", err.Error()))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", err.Error()))
	case errors.Is(err, service.ErrInsufficientQuantity):
		return c.JSON(http.StatusConflict, NewErrorResponse("insufficient_quantity", err.Error()))
	case errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusConflict, NewErrorResponse("invalid_state", err.Error()))
	case errors.Is(err, service.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	default:
		log.Printf("[trade] rid=%s stage=handler_error path=%s err=%v", reqctx.RID(requestContext(c)), c.Path(), err)
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "internal server error"))
	}
}
