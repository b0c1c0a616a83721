package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"whatsapp-relay/internal/whatsapp"
	"whatsapp-relay/pkg/models"
)

// Sender is the outbound half of the Cloud API client.
type Sender interface {
	SendText(ctx context.Context, to, body string) whatsapp.SendResult
	SendImage(ctx context.Context, to, imageURL, caption string) whatsapp.SendResult
}

type WhatsAppHandler struct {
	Client Sender
	logger log.FieldLogger
}

func NewWhatsAppHandler(client Sender, logger log.FieldLogger) *WhatsAppHandler {
	return &WhatsAppHandler{Client: client, logger: logger}
}

// SendMessage sends a text or image message. Platform failures are reported
// as success=false inside a 200; only invalid requests get a 400.
func (h *WhatsAppHandler) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if req.MessageType == "" {
		req.MessageType = models.TypeText
	}

	message := *req.Message

	h.logger.WithField("to", req.To).Info("Send message request")

	// A client disconnect does not abort the in-flight send.
	ctx := context.WithoutCancel(c.Request.Context())

	var result whatsapp.SendResult
	switch req.MessageType {
	case models.TypeText:
		result = h.Client.SendText(ctx, req.To, message)
	case models.TypeImage:
		if req.MediaURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "media_url is required for image messages"})
			return
		}
		result = h.Client.SendImage(ctx, req.To, req.MediaURL, message)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Unsupported message type: " + req.MessageType})
		return
	}

	if result.Success {
		c.JSON(http.StatusOK, models.SendMessageResponse{
			Success:   true,
			MessageID: result.MessageID(),
			Details:   result.Data,
		})
		return
	}

	errText := result.ErrorString()
	c.JSON(http.StatusOK, models.SendMessageResponse{
		Success: false,
		Error:   &errText,
		Details: result,
	})
}
