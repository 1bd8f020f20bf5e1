package router

import (
	"github.com/labstack/echo/v4"

	"guestdesk/internal/adapter/api/handler"
)

// SetupWebSocketRouter wires the live-connection endpoint. Auth happens
// inside the handler because websocket dials cannot carry headers from
// browsers.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
