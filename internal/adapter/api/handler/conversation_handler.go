package handler

import (
	"github.com/labstack/echo/v4"

	"guestdesk/internal/usecase"
	"guestdesk/pkg/response"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
	}
}

type createConversationRequest struct {
	BookingReference string `json:"booking_reference"`
	InitiatedBy      string `json:"initiated_by" validate:"required,oneof=guest support"`
	SupportAgentID   string `json:"support_agent_id"`
}

type updateStatusRequest struct {
	Status    string `json:"status" validate:"required,oneof=open in-progress resolved"`
	AvatarURL string `json:"avatar_url"`
}

type systemMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// CreateConversation resolves the conversation id for the caller and creates
// it if absent. Repeating the request returns the existing conversation.
func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conv, err := h.conversationUseCase.CreateConversation(c.Request().Context(), usecase.CreateConversationInput{
		BookingReference: req.BookingReference,
		UserID:           userID,
		InitiatedBy:      req.InitiatedBy,
		SupportAgentID:   req.SupportAgentID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, conv)
}

// ListConversations returns the caller's conversations. With ?summary=true
// the message bodies are projected away to bound response size.
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	userID := c.Get("uid").(string)
	includeMessages := c.QueryParam("summary") != "true"

	conversations, err := h.conversationUseCase.ListConversations(c.Request().Context(), userID, includeMessages)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversations)
}

func (h *ConversationHandler) GetConversation(c echo.Context) error {
	conversationID := c.Param("id")

	conv, err := h.conversationUseCase.GetConversation(c.Request().Context(), conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

func (h *ConversationHandler) UpdateConversationStatus(c echo.Context) error {
	conversationID := c.Param("id")

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	openedBy := c.Get("uid").(string)

	err := h.conversationUseCase.UpdateConversationStatus(c.Request().Context(), conversationID, req.Status, openedBy, req.AvatarURL)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": req.Status})
}

func (h *ConversationHandler) SendSystemMessage(c echo.Context) error {
	conversationID := c.Param("id")

	var req systemMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.conversationUseCase.SendSystemMessage(c.Request().Context(), conversationID, req.Content)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}
