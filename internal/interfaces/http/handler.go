package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/clients"
	"github.com/lightfriend/lightfriend/internal/entities"
	"github.com/lightfriend/lightfriend/internal/infrastructure"
	"github.com/lightfriend/lightfriend/internal/repository"
	"github.com/lightfriend/lightfriend/internal/usecases"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Auth         *usecases.AuthUsecase
	Billing      *usecases.BillingUsecase
	Messages     *usecases.MessageService
	UserRepo     *repository.UserRepository
	UsageRepo    *repository.UsageRepository
	CheckRepo    *repository.WaitingCheckRepository
	SubRepo      *repository.SubscriptionRepository
	ConnRepo     *repository.ConnectionRepository
	BridgeRepo   *repository.BridgeRepository
	Cache        infrastructure.ConversationCache
	WhatsApp     *infrastructure.WhatsAppManager
	Twilio       *clients.TwilioClient
	LemonSqueezy *clients.LemonSqueezyClient
	Paddle       *clients.PaddleClient
	Google       *clients.GoogleClient
	PublicURL    string
	MonthlyQuota float64
	Logger       zerolog.Logger
}

type Handler struct {
	deps Deps
	log  zerolog.Logger
}

func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps, log: deps.Logger.With().Str("component", "http").Logger()}
}

func SetupRoutes(r *gin.Engine, deps Deps, middleware *Middleware) {
	h := NewHandler(deps)
	billingHandler := NewBillingHandler(deps)
	twilioHandler := NewTwilioHandler(deps)
	waHandler := NewWhatsAppHandler(deps)
	adminHandler := NewAdminHandler(deps)

	r.Use(RequestID())
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(middleware.CORSMiddleware())

	// Provider webhooks, each authenticated by its own signature scheme.
	r.POST("/webhooks/twilio/sms", twilioHandler.HandleInboundSMS)
	r.POST("/webhooks/lemonsqueezy", billingHandler.HandleLemonSqueezyWebhook)
	r.POST("/webhooks/paddle", billingHandler.HandlePaddleWebhook)

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		// OAuth redirect lands here with the user's token in state.
		authGroup.GET("/google/callback", h.GoogleCallback)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.GET("/profile", h.GetProfile)
		api.PUT("/profile", h.UpdateProfile)
		api.GET("/usage", h.GetUsage)
		api.GET("/usage/history", h.GetUsageHistory)
		api.DELETE("/conversation", h.ClearConversation)

		api.GET("/checks", h.ListChecks)
		api.DELETE("/checks/:id", h.DeleteCheck)

		api.GET("/auth/google/login", h.GoogleLoginURL)
		api.DELETE("/connections/:provider", h.DeleteConnection)

		api.POST("/billing/checkout", billingHandler.CreateCheckout)
		api.GET("/billing/subscription", billingHandler.GetSubscription)

		api.POST("/whatsapp/connect", waHandler.Connect)
		api.GET("/whatsapp/qr", waHandler.QRCode)
		api.GET("/whatsapp/status", waHandler.Status)
		api.POST("/whatsapp/disconnect", waHandler.Disconnect)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/users", adminHandler.GetAllUsers)
		admin.PUT("/users/:id/credits", adminHandler.AddCredits)
		admin.PUT("/users/:id/tier", adminHandler.SetTier)
	}
}

// getUserID extracts the authenticated user id set by AuthRequired.
func getUserID(c *gin.Context) int {
	raw, _ := c.Get("user_id")
	if id, ok := raw.(float64); ok { // JWT numbers decode as float64
		return int(id)
	}
	return 0
}

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Phone    string `json:"phone_number"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidEmail(req.Email) || !ValidPhone(req.Phone) || len(req.Password) < MinPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email, phone or password (min 8 chars)"})
		return
	}

	if err := h.deps.Auth.Register(c.Request.Context(), req.Email, req.Phone, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, err := h.deps.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.deps.UserRepo.GetByID(c.Request.Context(), getUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req struct {
		PhoneNumber     string  `json:"phone_number"`
		PreferredNumber string  `json:"preferred_number"`
		ChargeWhenUnder bool    `json:"charge_when_under"`
		ChargeThreshold float64 `json:"charge_threshold"`
		ChargeBackTo    float64 `json:"charge_back_to"`
		NotifyVia       string  `json:"notify_via"`
		TelegramChatID  int64   `json:"telegram_chat_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidPhone(req.PhoneNumber) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number"})
		return
	}
	switch req.NotifyVia {
	case "sms", "call", "telegram":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "notify_via must be sms, call or telegram"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.deps.UserRepo.GetByID(ctx, getUserID(c))
	if err != nil || user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	user.PhoneNumber = req.PhoneNumber
	user.PreferredNumber = req.PreferredNumber
	user.ChargeWhenUnder = req.ChargeWhenUnder
	user.ChargeThreshold = req.ChargeThreshold
	user.ChargeBackTo = req.ChargeBackTo
	user.NotifyVia = req.NotifyVia
	user.TelegramChatID = req.TelegramChatID

	if err := h.deps.UserRepo.UpdateProfile(ctx, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) GetUsage(c *gin.Context) {
	total, err := h.deps.UsageRepo.MonthTotal(c.Request.Context(), getUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"month_credits_used": total})
}

func (h *Handler) GetUsageHistory(c *gin.Context) {
	history, err := h.deps.UsageRepo.History(c.Request.Context(), getUserID(c), 30)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": history})
}

func (h *Handler) ClearConversation(c *gin.Context) {
	if err := h.deps.Cache.Clear(c.Request.Context(), getUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *Handler) ListChecks(c *gin.Context) {
	checks, err := h.deps.CheckRepo.GetByUser(c.Request.Context(), getUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load checks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"checks": checks})
}

func (h *Handler) DeleteCheck(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid check id"})
		return
	}
	if err := h.deps.CheckRepo.Delete(c.Request.Context(), id, getUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete check"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) GoogleLoginURL(c *gin.Context) {
	// The bearer token rides along as OAuth state so the public callback
	// can attribute the code to this user.
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	c.JSON(http.StatusOK, gin.H{"url": h.deps.Google.AuthURL(token)})
}

func (h *Handler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code or state"})
		return
	}

	userID, _, err := h.deps.Auth.ParseToken(state)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid state"})
		return
	}

	ctx := c.Request.Context()
	tok, err := h.deps.Google.ExchangeCode(ctx, code)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", userID).Msg("google code exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Code exchange failed"})
		return
	}

	expiresAt := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	for _, provider := range []string{entities.ProviderGmail, entities.ProviderGoogleCalendar} {
		conn := &entities.Connection{
			UserID:       userID,
			Provider:     provider,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    expiresAt,
		}
		if err := h.deps.ConnRepo.Upsert(ctx, conn); err != nil {
			h.log.Error().Err(err).Int("user_id", userID).Str("provider", provider).
				Msg("failed to store connection")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store connection"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "connected"})
}

func (h *Handler) DeleteConnection(c *gin.Context) {
	provider := c.Param("provider")
	switch provider {
	case entities.ProviderGmail, entities.ProviderGoogleCalendar:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider"})
		return
	}
	if err := h.deps.ConnRepo.Delete(c.Request.Context(), getUserID(c), provider); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete connection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}
