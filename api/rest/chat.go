package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/guildsync/chat"
	mw "github.com/kasuganosora/guildsync/middleware"
)

// ChatHandler exposes chat sending over REST.
type ChatHandler struct {
	ch *chat.Handler
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(ch *chat.Handler) *ChatHandler {
	return &ChatHandler{ch: ch}
}

type chatSendRequest struct {
	Content string `json:"content" binding:"required"`
}

// Send handles POST /api/chat: routed by the sender's chat mode.
func (h *ChatHandler) Send(c *gin.Context) {
	var req chatSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.ch.Send(c.Request.Context(), mw.GetPlayerID(c), req.Content); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sent"})
}

// SendGuild handles POST /api/chat/guild: always guild-scoped.
func (h *ChatHandler) SendGuild(c *gin.Context) {
	var req chatSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.ch.SendGuild(c.Request.Context(), mw.GetPlayerID(c), req.Content); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sent"})
}
