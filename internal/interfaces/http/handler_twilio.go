package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

type TwilioHandler struct {
	deps Deps
	log  zerolog.Logger
}

func NewTwilioHandler(deps Deps) *TwilioHandler {
	return &TwilioHandler{deps: deps, log: deps.Logger.With().Str("component", "twilio_http").Logger()}
}

// HandleInboundSMS acknowledges the webhook immediately and processes the
// message in the background; the reply goes out via the REST API instead of
// TwiML so slow tool calls cannot hit Twilio's webhook timeout.
func (h *TwilioHandler) HandleInboundSMS(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "bad form")
		return
	}

	params := make(map[string]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	fullURL := h.deps.PublicURL + c.Request.URL.RequestURI()
	if !h.deps.Twilio.ValidateSignature(fullURL, params, c.GetHeader("X-Twilio-Signature")) {
		h.log.Warn().Str("url", fullURL).Msg("invalid twilio signature")
		c.String(http.StatusUnauthorized, "invalid signature")
		return
	}

	from := params["From"]
	to := params["To"]
	body := SanitizeString(params["Body"])
	if from == "" || body == "" {
		c.Header("Content-Type", "text/xml")
		c.String(http.StatusOK, emptyTwiML)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		h.deps.Messages.HandleInbound(ctx, from, to, body)
	}()

	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, emptyTwiML)
}
