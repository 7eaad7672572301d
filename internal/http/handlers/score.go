package handlers

import (
	"errors"
	"net/http"

	"forgeos_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type SubmitScoreRequest struct {
	SessionID       string `json:"session_id" binding:"required"`
	Score           int64  `json:"score"`
	ClientTimestamp int64  `json:"client_timestamp" binding:"required"`
	Signature       string `json:"signature" binding:"required"`
}

func (h *Handler) SubmitScore(c *gin.Context) {
	wallet, ok := getWallet(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED"})
		return
	}

	var req SubmitScoreRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	newBalance, err := h.Scores.Submit(c.Request.Context(), wallet, req.SessionID,
		req.Score, req.ClientTimestamp, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSession):
			c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_SESSION"})
		case errors.Is(err, service.ErrSpeedHack):
			c.JSON(http.StatusBadRequest, gin.H{"error": "SPEED_HACK"})
		case errors.Is(err, service.ErrBadSignature):
			c.JSON(http.StatusBadRequest, gin.H{"error": "BAD_SIGNATURE"})
		case errors.Is(err, service.ErrInvalidScore):
			c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_SCORE"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "submission failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accepted":    true,
		"new_balance": newBalance,
	})
}
