package handlers

import (
	"errors"
	"net/http"

	"forgeos_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	ChainID       int    `json:"chain_id" binding:"required"`
	PublicKey     string `json:"public_key" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	profile, token, err := h.Identity.Login(c.Request.Context(), req.WalletAddress, req.ChainID,
		req.PublicKey, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongNetwork):
			c.JSON(http.StatusBadRequest, gin.H{"error": "WRONG_NETWORK"})
		case errors.Is(err, service.ErrSybilSuspected):
			c.JSON(http.StatusForbidden, gin.H{"error": "SYBIL_SUSPECTED"})
		case errors.Is(err, service.ErrInvalidWallet):
			c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_WALLET"})
		case errors.Is(err, service.ErrInvalidPubKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_PUBLIC_KEY"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"profile": profile,
	})
}
