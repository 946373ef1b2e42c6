package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/otpchat/chat-api/internal/api/metrics"
	"github.com/otpchat/chat-api/internal/core/domain"
	"github.com/otpchat/chat-api/internal/core/ports"
)

type MessageHandler struct {
	messages ports.MessageService
}

func NewMessageHandler(messages ports.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type messageListResponse struct {
	Messages []*domain.Message `json:"messages"`
	Count    int               `json:"count"`
}

// Send stores a message for the authenticated user.
//
// @Summary      Send a message
// @Tags         message
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      sendMessageRequest  true  "Message content"
// @Success      201   {object}  Envelope
// @Failure      400   {object}  Envelope
// @Failure      401   {object}  Envelope
// @Router       /message/send [post]
func (h *MessageHandler) Send(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.messages.Send(c.Request().Context(), user.ID, req.Content)
	if err != nil {
		return err
	}
	metrics.MessagesSentTotal.Inc()
	return respond(c, http.StatusCreated, msg, "Message sent successfully")
}

// List returns the most recent messages in chronological order.
//
// @Summary      List messages
// @Tags         message
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum messages (default 50, max 100)"
// @Success      200    {object}  Envelope
// @Failure      401    {object}  Envelope
// @Router       /message [get]
func (h *MessageHandler) List(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return domain.NewValidationError("limit", "limit must be a positive integer")
		}
		limit = n
	}

	msgs, err := h.messages.List(c.Request().Context(), user.ID, limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK,
		messageListResponse{Messages: msgs, Count: len(msgs)},
		"Messages fetched successfully")
}

// Delete removes one of the user's messages.
//
// @Summary      Delete a message
// @Tags         message
// @Produce      json
// @Security     BearerAuth
// @Param        messageId  path      string  true  "Message ID"
// @Success      200        {object}  Envelope
// @Failure      404        {object}  Envelope
// @Router       /message/{messageId} [delete]
func (h *MessageHandler) Delete(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.messages.Delete(c.Request().Context(), user.ID, c.Param("messageId")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "Message deleted successfully")
}

// Clear removes every message the user owns.
//
// @Summary      Clear all messages
// @Tags         message
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Envelope
// @Router       /message/clear-all [delete]
func (h *MessageHandler) Clear(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	n, err := h.messages.Clear(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, map[string]int64{"deletedCount": n}, "All messages cleared successfully")
}
