package router

import (
	"github.com/labstack/echo/v4"

	"guestdesk/internal/adapter/api/handler"
	"guestdesk/internal/adapter/api/middleware"
)

// SetupConversationRouter wires the conversation HTTP surface (excluding the
// websocket endpoint).
func SetupConversationRouter(e *echo.Echo, conversationHandler *handler.ConversationHandler, authMiddleware *middleware.AuthMiddleware) {
	group := e.Group("/v1/conversations")
	group.Use(authMiddleware.Authenticate)

	group.POST("", conversationHandler.CreateConversation)
	group.GET("", conversationHandler.ListConversations)
	group.GET("/:id", conversationHandler.GetConversation)
	group.PUT("/:id/status", conversationHandler.UpdateConversationStatus)
	group.POST("/:id/system-messages", conversationHandler.SendSystemMessage)
}
