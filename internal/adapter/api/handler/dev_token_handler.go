package handler

import (
	"github.com/labstack/echo/v4"

	"guestdesk/internal/infrastructure/firebase"
	"guestdesk/pkg/errors"
	"guestdesk/pkg/response"
)

// DevTokenHandler mints tokens for manual websocket testing. Only routed in
// the development environment.
type DevTokenHandler struct {
	firebaseAuth *firebase.FirebaseAuthClient
}

func NewDevTokenHandler(firebaseAuth *firebase.FirebaseAuthClient) *DevTokenHandler {
	return &DevTokenHandler{
		firebaseAuth: firebaseAuth,
	}
}

func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	uid := c.QueryParam("uid")
	if uid == "" {
		return response.Error(c, errors.BadRequest("uid query parameter is required", nil))
	}

	token, err := h.firebaseAuth.GenerateDevToken(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to generate token", err))
	}

	return response.Success(c, map[string]string{
		"uid":   uid,
		"token": token,
	})
}
