package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"worklink/internal/store"
	"worklink/internal/ws"
)

type Handlers struct {
	store *store.Client
	hub   *ws.Hub
	log   *slog.Logger
}

func NewHandlers(st *store.Client, hub *ws.Hub, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{store: st, hub: hub, log: logger}
}

func (h *Handlers) Health(c *gin.Context) {
	status := "ok"
	if err := h.store.Ping(c.Request.Context()); err != nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      status,
		"connections": h.hub.ConnectionCount(),
	})
}

type pushEventRequest struct {
	Event string `json:"event" binding:"required"`
	Data  any    `json:"data"`
}

// PushEventToUser lets a platform controller deliver an event to every
// active connection of one user, e.g. a "new bid" alert.
func (h *Handlers) PushEventToUser(c *gin.Context) {
	userID := c.Param("user_id")

	var req pushEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event is required"})
		return
	}

	delivered := h.hub.SendToUser(userID, req.Event, req.Data)
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

func (h *Handlers) PushEventToRoom(c *gin.Context) {
	roomID := c.Param("room_id")

	var req pushEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event is required"})
		return
	}

	delivered := h.hub.SendToRoom(roomID, req.Event, req.Data)
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

func (h *Handlers) ListOnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.hub.OnlineUsers()})
}

func (h *Handlers) GetUserPresence(c *gin.Context) {
	userID := c.Param("user_id")
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"online":  h.hub.IsUserOnline(userID),
	})
}

type pushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *Handlers) RegisterPushToken(c *gin.Context) {
	userID := c.Param("user_id")

	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := h.store.RegisterPushToken(c.Request.Context(), userID, req.Token); err != nil {
		h.log.Error("push token registration failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true})
}

func (h *Handlers) DeletePushToken(c *gin.Context) {
	userID := c.Param("user_id")

	if err := h.store.DeletePushToken(c.Request.Context(), userID); err != nil {
		h.log.Error("push token deletion failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
