package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"forgeos_backend/internal/domain"
	"forgeos_backend/internal/repository"
	"forgeos_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type ClaimRequest struct {
	Amount      int64  `json:"amount"`
	GasStrategy string `json:"gas_strategy" binding:"required"`
	Signature   string `json:"signature" binding:"required"`
}

type EstimateRequest struct {
	Amount      int64  `json:"amount"`
	GasStrategy string `json:"gas_strategy" binding:"required"`
}

func (h *Handler) RequestClaim(c *gin.Context) {
	wallet, ok := getWallet(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED"})
		return
	}

	var req ClaimRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	claim, err := h.Claims.Request(c.Request.Context(), wallet, req.Amount,
		domain.GasStrategy(req.GasStrategy), req.Signature)
	if err != nil {
		h.claimError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"claim": claim})
}

func (h *Handler) EstimateClaim(c *gin.Context) {
	if _, ok := getWallet(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED"})
		return
	}

	var req EstimateRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	estimate, err := h.Claims.Estimate(req.Amount, domain.GasStrategy(req.GasStrategy))
	if err != nil {
		h.claimError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"estimate": estimate})
}

func (h *Handler) GetClaims(c *gin.Context) {
	wallet, ok := getWallet(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	claims, err := h.Claims.List(c.Request.Context(), wallet, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load claims"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

type CancelClaimRequest struct {
	ClaimID int64 `json:"claim_id"`
}

func (h *Handler) CancelClaim(c *gin.Context) {
	wallet, ok := getWallet(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED"})
		return
	}

	var req CancelClaimRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	claim, err := h.Claims.Cancel(c.Request.Context(), wallet, req.ClaimID)
	if err != nil {
		if errors.Is(err, service.ErrClaimNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "CLAIM_NOT_FOUND"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cancel failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"claim": claim})
}

func (h *Handler) claimError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBelowThreshold):
		c.JSON(http.StatusBadRequest, gin.H{"error": "BELOW_THRESHOLD"})
	case errors.Is(err, service.ErrInvalidStrategy):
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_STRATEGY"})
	case errors.Is(err, service.ErrBadSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "BAD_SIGNATURE"})
	case errors.Is(err, repository.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"error": "INSUFFICIENT_FUNDS"})
	case errors.Is(err, service.ErrClaimPending):
		c.JSON(http.StatusConflict, gin.H{"error": "CLAIM_PENDING"})
	case errors.Is(err, service.ErrFlagged):
		c.JSON(http.StatusForbidden, gin.H{"error": "WALLET_FLAGGED"})
	case errors.Is(err, service.ErrDailyCapExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "DAILY_CAP_EXCEEDED"})
	case errors.Is(err, repository.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "PROFILE_NOT_FOUND"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "claim failed"})
	}
}
