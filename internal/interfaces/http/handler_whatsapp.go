package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/lightfriend/lightfriend/internal/entities"
)

const bridgeWhatsApp = "whatsapp"

type WhatsAppHandler struct {
	deps Deps
	log  zerolog.Logger
}

func NewWhatsAppHandler(deps Deps) *WhatsAppHandler {
	return &WhatsAppHandler{deps: deps, log: deps.Logger.With().Str("component", "whatsapp_http").Logger()}
}

// Connect starts the QR pairing flow and records the bridge row.
func (h *WhatsAppHandler) Connect(c *gin.Context) {
	userID := getUserID(c)

	client, err := h.deps.WhatsApp.ConnectClient(userID)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", userID).Msg("whatsapp connect failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start WhatsApp connection"})
		return
	}

	bridge := &entities.Bridge{
		UserID: userID,
		Kind:   bridgeWhatsApp,
		Status: entities.BridgeConnecting,
	}
	if client.IsLoggedIn() {
		bridge.Status = entities.BridgeConnected
		bridge.RemoteJID = client.JID()
	}
	if err := h.deps.BridgeRepo.Upsert(c.Request.Context(), bridge); err != nil {
		h.log.Error().Err(err).Int("user_id", userID).Msg("failed to store bridge")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    bridge.Status,
		"connected": client.IsLoggedIn(),
	})
}

// QRCode returns the current pairing QR as a PNG.
func (h *WhatsAppHandler) QRCode(c *gin.Context) {
	userID := getUserID(c)

	client := h.deps.WhatsApp.GetClient(userID)
	if client == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not connecting. Call connect first."})
		return
	}
	if client.IsLoggedIn() {
		c.JSON(http.StatusConflict, gin.H{"error": "Already linked"})
		return
	}

	qr := client.GetQR()
	if qr == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "QR not ready yet, retry shortly"})
		return
	}

	png, err := qrcode.Encode(qr, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render QR"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Status reports the bridge state and promotes the stored row to connected
// once the QR login completed.
func (h *WhatsAppHandler) Status(c *gin.Context) {
	userID := getUserID(c)
	ctx := c.Request.Context()

	client := h.deps.WhatsApp.GetClient(userID)
	if client == nil {
		bridge, err := h.deps.BridgeRepo.Get(ctx, userID, bridgeWhatsApp)
		if err != nil || bridge == nil {
			c.JSON(http.StatusOK, gin.H{"status": "disconnected", "connected": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": bridge.Status, "connected": false})
		return
	}

	status := entities.BridgeConnecting
	if client.IsLoggedIn() {
		status = entities.BridgeConnected
		bridge := &entities.Bridge{
			UserID:    userID,
			Kind:      bridgeWhatsApp,
			Status:    status,
			RemoteJID: client.JID(),
		}
		if err := h.deps.BridgeRepo.Upsert(ctx, bridge); err != nil {
			h.log.Error().Err(err).Int("user_id", userID).Msg("failed to update bridge")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"connected": client.IsLoggedIn(),
		"jid":       client.JID(),
	})
}

// Disconnect logs the device out and removes the bridge row.
func (h *WhatsAppHandler) Disconnect(c *gin.Context) {
	userID := getUserID(c)

	if err := h.deps.WhatsApp.LogoutClient(userID); err != nil {
		h.log.Error().Err(err).Int("user_id", userID).Msg("whatsapp logout failed")
	}
	if err := h.deps.BridgeRepo.Delete(c.Request.Context(), userID, bridgeWhatsApp); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove bridge"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}
