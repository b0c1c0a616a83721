package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"whatsapp-relay/internal/config"
	"whatsapp-relay/internal/metrics"
	"whatsapp-relay/pkg/models"
)

// Status markers returned in the body of POST /webhook/whatsapp.
const (
	StatusOK      = "ok"
	StatusNoEntry = "no_entry"
	StatusError   = "error"
)

// Forwarder delivers a normalized message to the core system. It must not
// report failure to the caller.
type Forwarder interface {
	Forward(ctx context.Context, msg models.NormalizedMessage)
}

type Handler struct {
	Config     *config.Config
	Normalizer *Normalizer
	Forwarder  Forwarder
	logger     log.FieldLogger
	metrics    *metrics.Service
}

func NewHandler(cfg *config.Config, normalizer *Normalizer, forwarder Forwarder, logger log.FieldLogger, m *metrics.Service) *Handler {
	return &Handler{
		Config:     cfg,
		Normalizer: normalizer,
		Forwarder:  forwarder,
		logger:     logger,
		metrics:    m,
	}
}

// VerifyWebhook answers the platform's subscription handshake.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	h.logger.WithField("mode", mode).Info("Webhook verification request received")

	if mode == "subscribe" && h.tokenMatches(token) {
		h.logger.Info("Webhook verified successfully")
		c.String(http.StatusOK, challenge)
		return
	}

	h.logger.Warn("Webhook verification failed - invalid token")
	c.JSON(http.StatusForbidden, gin.H{"detail": "Verification token mismatch"})
}

// tokenMatches compares in constant time. An unset verify token never matches.
func (h *Handler) tokenMatches(token string) bool {
	expected := h.Config.VerifyToken
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// HandleMessage ingests one webhook delivery. It always answers 200: any
// other status makes the platform retry the delivery.
func (h *Handler) HandleMessage(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.respondError(c, fmt.Errorf("%v", r))
		}
	}()

	body, err := c.GetRawData()
	if err != nil {
		h.respondError(c, errors.Wrap(err, "read webhook body"))
		return
	}

	if h.Config.AppSecret != "" {
		if err := VerifySignature(h.Config.AppSecret, c.GetHeader(SignatureHeader), body); err != nil {
			h.respondError(c, err)
			return
		}
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("Webhook event received")
	h.logger.WithField("payload", string(body)).Debug("Webhook payload")

	if payload.Entry == nil {
		h.logger.Warn("No entry field in webhook payload")
		h.respond(c, StatusNoEntry, gin.H{"status": StatusNoEntry})
		return
	}

	// Forwarding outlives a dropped platform connection.
	ctx := context.WithoutCancel(c.Request.Context())

	for _, entry := range *payload.Entry {
		for _, change := range entry.Changes {
			if change.Value == nil {
				continue
			}
			h.processValue(ctx, *change.Value)
		}
	}

	h.respond(c, StatusOK, gin.H{"status": StatusOK})
}

func (h *Handler) processValue(ctx context.Context, value models.WebhookValue) {
	for _, message := range value.Messages {
		normalized := h.Normalizer.Normalize(message, value)
		if message.From == nil {
			h.logger.Warn("Inbound message without sender")
		}
		h.logger.WithFields(log.Fields{
			"sender":       normalized.Sender,
			"message_type": normalized.MessageType,
			"timestamp":    normalized.Timestamp,
		}).Info("Normalized message")
		h.metrics.InboundMessage(normalized.MessageType)

		h.Forwarder.Forward(ctx, normalized)
	}

	for _, status := range value.Statuses {
		h.logger.WithFields(log.Fields{
			"id":           status.ID,
			"status":       status.Status,
			"recipient_id": status.RecipientID,
			"timestamp":    status.Timestamp,
		}).Info("Status update")
		h.metrics.StatusUpdate(status.Status)
	}
}

func (h *Handler) respond(c *gin.Context, status string, body gin.H) {
	h.metrics.WebhookEvent(status)
	c.JSON(http.StatusOK, body)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	h.logger.WithError(err).Error("Error processing webhook")
	h.respond(c, StatusError, gin.H{"status": StatusError, "message": err.Error()})
}
