package router

import (
	"github.com/labstack/echo/v4"

	"guestdesk/internal/adapter/api/handler"
)

func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler, environment string) {
	if environment != "development" {
		return
	}

	e.GET("/_dev/token", devTokenHandler.GenerateToken)
}
