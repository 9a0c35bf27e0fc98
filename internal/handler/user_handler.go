package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/croissant/croissant-api/internal/reqctx"
	"github.com/labstack/echo/v4"
)

// UserDirectory resolves public profiles of trade counterparties. *auth.Client satisfies it.
type UserDirectory interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

// ErrUserNotFound lets directories other than firebase report a missing user.
var ErrUserNotFound = errors.New("user not found")

func isUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || auth.IsUserNotFound(err)
}

type UserHandler struct {
	users UserDirectory
}

func NewUserHandler(users UserDirectory) *UserHandler {
	return &UserHandler{users: users}
}

type PublicUserResponse struct {
	UID         string  `json:"uid"`
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid uid"))
	}
	ctx := requestContext(c)
	user, err := h.users.GetUser(ctx, uid)
	switch {
	case err == nil:
	case isUserNotFound(err):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
	default:
		log.Printf("[user] rid=%s uid=%s stage=lookup_fail err=%v", reqctx.RID(ctx), uid, err)
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to load user"))
	}
	resp := PublicUserResponse{
		UID:         user.UID,
		DisplayName: user.DisplayName,
		PhotoURL:    strPtrOrNil(user.PhotoURL),
	}
	return c.JSON(http.StatusOK, resp)
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
