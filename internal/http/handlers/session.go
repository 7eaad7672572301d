package handlers

import (
	"errors"
	"net/http"

	"forgeos_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type StartSessionRequest struct {
	QuestID int `json:"quest_id"`
}

func (h *Handler) StartSession(c *gin.Context) {
	wallet, ok := getWallet(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED"})
		return
	}

	var req StartSessionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	session, err := h.Sessions.Start(c.Request.Context(), wallet, req.QuestID)
	if err != nil {
		if errors.Is(err, service.ErrUnknownWallet) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}
