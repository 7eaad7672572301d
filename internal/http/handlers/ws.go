package handlers

import (
	"net/http"

	"forgeos_backend/internal/logger"
	"forgeos_backend/internal/service"
	"forgeos_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced at the HTTP layer
		return true
	},
}

// ClaimFeed upgrades the connection and streams claim status updates
// for the authenticated wallet. The token rides the query string since
// browsers cannot set headers on websocket upgrades.
func (h *Handler) ClaimFeed(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		wallet, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "error", err)
			return
		}

		client := ws.NewClient(hub, conn, wallet)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
