package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/entities"
)

type AdminHandler struct {
	deps Deps
	log  zerolog.Logger
}

func NewAdminHandler(deps Deps) *AdminHandler {
	return &AdminHandler{deps: deps, log: deps.Logger.With().Str("component", "admin_http").Logger()}
}

func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	users, err := h.deps.UserRepo.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *AdminHandler) AddCredits(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	if err := h.deps.UserRepo.AddCredits(c.Request.Context(), id, req.Amount); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add credits"})
		return
	}
	h.log.Info().Int("user_id", id).Float64("amount", req.Amount).Msg("admin credit grant")
	c.JSON(http.StatusOK, gin.H{"status": "credited"})
}

func (h *AdminHandler) SetTier(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var req struct {
		Tier string `json:"tier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	switch req.Tier {
	case entities.TierNone, entities.Tier1, entities.Tier2:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown tier"})
		return
	}

	if err := h.deps.UserRepo.SetTier(c.Request.Context(), id, req.Tier); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set tier"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
