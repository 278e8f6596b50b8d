package handler

import (
	"net/http"

	"craftlink-chat/internal/services"
	"craftlink-chat/internal/transport/httpdto"
	"craftlink-chat/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MessageHandler is the REST mirror of the realtime send path. Messages
// accepted here still reach a connected recipient over their websocket.
type MessageHandler struct {
	chat *services.ChatService
	hub  *ws.Hub
}

func NewMessageHandler(chat *services.ChatService, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{chat: chat, hub: hub}
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	callerID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	key := c.Param("key")
	m, err := h.chat.Send(c.Request.Context(), callerID, services.SendInput{
		ConversationKey: key,
		Body:            req.Body,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		status, code := statusForError(err)
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
		return
	}

	if h.hub != nil {
		if h.hub.EmitToUser(key, m.RecipientID, ws.ServerEvent{
			Type:            ws.EventMessageReceived,
			ConversationKey: key,
			Message:         &m,
		}) {
			h.chat.MarkDeliveredLive(c.Request.Context(), m.ID)
		}
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromMessage(m)))
}

// MarkReadRequest is used for POST /v1/conversations/:key/read
type MarkReadRequest struct {
	MessageIDs []string `json:"message_ids" binding:"required"`
}

// MarkReadResponse reports which ids actually transitioned.
type MarkReadResponse struct {
	MarkedRead []string `json:"marked_read"`
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	callerID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	ids := make([]uuid.UUID, 0, len(req.MessageIDs))
	for _, raw := range req.MessageIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
			return
		}
		ids = append(ids, id)
	}

	changed, err := h.hub.ReadMarker().MarkRead(c.Request.Context(), c.Param("key"), callerID, ids)
	if err != nil {
		status, code := statusForError(err)
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
		return
	}

	out := make([]string, 0, len(changed))
	for _, id := range changed {
		out = append(out, id.String())
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(MarkReadResponse{MarkedRead: out}))
}
