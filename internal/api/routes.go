package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"worklink/internal/auth"
	"worklink/internal/store"
	"worklink/internal/ws"
)

func SetupRoutes(router *gin.Engine, st *store.Client, hub *ws.Hub, verifier auth.Verifier, logger *slog.Logger, corsOrigins, serviceKey string) {
	handlers := NewHandlers(st, hub, logger)

	allowedOrigins := strings.Split(corsOrigins, ",")
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			for _, o := range allowedOrigins {
				if strings.TrimSpace(o) == origin {
					return true
				}
			}

			// Allow localhost for development
			if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
				return true
			}

			return false
		},
	}

	router.Use(CORS(corsOrigins))
	router.Use(gin.Recovery())

	router.GET("/health", handlers.Health)

	// WebSocket handshake: the credential is verified before the
	// upgrade completes, so an unauthenticated socket never exists.
	router.GET("/ws", func(c *gin.Context) {
		credential := bearerCredential(c)
		if credential == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing credential",
			})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), credential)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication failed",
			})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		client := hub.NewClient(conn, identity)
		if err := hub.Register(client); err != nil {
			logger.Error("connection registration failed", "error", err)
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	})

	// Internal surface for the platform's controllers (new bid pushed
	// over the live channel, presence queries, push token upkeep).
	internal := router.Group("/internal")
	internal.Use(ServiceKeyAuth(serviceKey))
	{
		internal.POST("/users/:user_id/events", handlers.PushEventToUser)
		internal.POST("/rooms/:room_id/events", handlers.PushEventToRoom)
		internal.GET("/presence/online", handlers.ListOnlineUsers)
		internal.GET("/presence/:user_id", handlers.GetUserPresence)
		internal.PUT("/users/:user_id/push-token", handlers.RegisterPushToken)
		internal.DELETE("/users/:user_id/push-token", handlers.DeletePushToken)
	}
}

func bearerCredential(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}
