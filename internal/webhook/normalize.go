package webhook

import (
	"math"
	"strconv"
	"strings"
	"time"

	"whatsapp-relay/pkg/models"
)

// timestampLayout is ISO-8601 without a zone suffix.
const timestampLayout = "2006-01-02T15:04:05"

// Normalizer maps inbound Cloud API messages to models.NormalizedMessage.
// Normalize never fails: missing or malformed fields degrade to placeholders.
type Normalizer struct {
	// Location is the zone timestamps are rendered in. Nil means time.Local.
	Location *time.Location
}

func NewNormalizer(loc *time.Location) *Normalizer {
	return &Normalizer{Location: loc}
}

// Normalize converts one raw message. value is the enclosing change value;
// it carries envelope metadata and is accepted for callers that need it.
func (n *Normalizer) Normalize(message models.InboundMessage, value models.WebhookValue) models.NormalizedMessage {
	msgType := deref(message.Type, models.TypeText)

	normalized := models.NormalizedMessage{
		Channel:     models.ChannelWhatsApp,
		Sender:      normalizeSender(deref(message.From, "")),
		Message:     messageText(message, msgType),
		Timestamp:   n.formatTimestamp(deref(message.Timestamp, "0")),
		MessageType: msgType,
	}
	if message.ID != nil {
		id := *message.ID
		normalized.MessageID = &id
	}
	return normalized
}

func normalizeSender(from string) string {
	if strings.HasPrefix(from, "+") {
		return from
	}
	return "+" + from
}

func messageText(message models.InboundMessage, msgType string) string {
	switch msgType {
	case models.TypeText:
		if message.Text != nil {
			return message.Text.Body
		}
		return ""
	case models.TypeImage:
		caption := ""
		if message.Image != nil {
			caption = message.Image.Caption
		}
		return "[Image] " + caption
	case models.TypeAudio:
		return "[Audio message]"
	case models.TypeVideo:
		return "[Video message]"
	case models.TypeDocument:
		return "[Document]"
	default:
		return "[" + msgType + " message]"
	}
}

func (n *Normalizer) formatTimestamp(raw string) string {
	raw = strings.TrimSpace(raw)
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Numeric timestamps may arrive as 1.6e9 or with a fraction.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		seconds = int64(f)
	}
	loc := n.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(seconds, 0).In(loc).Format(timestampLayout)
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
