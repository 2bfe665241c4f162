package http

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/clients"
	"github.com/lightfriend/lightfriend/internal/entities"
)

type BillingHandler struct {
	deps Deps
	log  zerolog.Logger
}

func NewBillingHandler(deps Deps) *BillingHandler {
	return &BillingHandler{deps: deps, log: deps.Logger.With().Str("component", "billing_http").Logger()}
}

func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	var req struct {
		IQAmount float64 `json:"iq_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IQAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "iq_amount must be positive"})
		return
	}

	url, err := h.deps.LemonSqueezy.CreateCheckout(c.Request.Context(), getUserID(c), req.IQAmount)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", getUserID(c)).Msg("checkout creation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create checkout"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkout_url": url})
}

func (h *BillingHandler) GetSubscription(c *gin.Context) {
	sub, err := h.deps.SubRepo.GetByUser(c.Request.Context(), getUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusOK, gin.H{"subscription": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// HandleLemonSqueezyWebhook credits one-off IQ purchases. The signature is
// checked before the payload is parsed at all.
func (h *BillingHandler) HandleLemonSqueezyWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if !h.deps.LemonSqueezy.VerifySignature(body, c.GetHeader("X-Signature")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	evt, err := clients.ParseWebhookEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if evt.Meta.EventName != "order_created" || evt.Data.Attributes.Status != "paid" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	userID, err := strconv.Atoi(evt.Meta.CustomData.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id in custom data"})
		return
	}
	amount, err := strconv.ParseFloat(evt.Meta.CustomData.IQAmount, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid iq_amount in custom data"})
		return
	}

	if err := h.deps.Billing.AddPurchasedCredits(c.Request.Context(), userID, amount); err != nil {
		h.log.Error().Err(err).Int("user_id", userID).Msg("failed to credit purchase")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to credit purchase"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "credited"})
}

// HandlePaddleWebhook syncs subscription state and tier.
func (h *BillingHandler) HandlePaddleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if !h.deps.Paddle.VerifySignature(body, c.GetHeader("Paddle-Signature")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	evt, err := clients.ParseSubscriptionEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	switch evt.EventType {
	case "subscription.created", "subscription.activated", "subscription.updated", "subscription.canceled":
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	userID, err := strconv.Atoi(evt.Data.CustomData.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id in custom data"})
		return
	}

	ctx := c.Request.Context()
	sub := &entities.Subscription{
		UserID:               userID,
		PaddleSubscriptionID: evt.Data.ID,
		PaddleCustomerID:     evt.Data.CustomerID,
		Status:               evt.Data.Status,
	}
	if evt.Data.NextBilledAt != "" {
		if t, err := time.Parse(time.RFC3339, evt.Data.NextBilledAt); err == nil {
			sub.NextBillDate = &t
		}
	}
	if evt.Data.ScheduledChange != nil && evt.Data.ScheduledChange.Action == "cancel" {
		sub.CancelAtPeriodEnd = true
	}

	if err := h.deps.SubRepo.Upsert(ctx, sub); err != nil {
		h.log.Error().Err(err).Int("user_id", userID).Msg("failed to upsert subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store subscription"})
		return
	}

	if sub.Active() {
		if err := h.deps.UserRepo.SetTier(ctx, userID, entities.Tier1); err != nil {
			h.log.Error().Err(err).Int("user_id", userID).Msg("failed to set tier")
		}
		// Activation and renewal both refill the monthly quota.
		if evt.EventType == "subscription.activated" || evt.EventType == "subscription.created" {
			if err := h.deps.UserRepo.SetQuota(ctx, userID, h.deps.MonthlyQuota); err != nil {
				h.log.Error().Err(err).Int("user_id", userID).Msg("failed to set quota")
			}
		}
	} else {
		if err := h.deps.UserRepo.SetTier(ctx, userID, entities.TierNone); err != nil {
			h.log.Error().Err(err).Int("user_id", userID).Msg("failed to clear tier")
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "synced"})
}
