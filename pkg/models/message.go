package models

// ChannelWhatsApp tags every normalized message produced by this service.
const ChannelWhatsApp = "whatsapp"

// Message types understood by the normalizer and the send endpoint.
const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeAudio    = "audio"
	TypeVideo    = "video"
	TypeDocument = "document"
)

// NormalizedMessage is the channel-agnostic shape forwarded to the core API.
type NormalizedMessage struct {
	Channel     string  `json:"channel"`
	Sender      string  `json:"sender"`
	Message     string  `json:"message"`
	Timestamp   string  `json:"timestamp"`
	MessageID   *string `json:"message_id"`
	MessageType string  `json:"message_type"`
}

// SendMessageRequest is the body of POST /send/whatsapp. Message must be
// present but may be empty; an empty image message is sent without caption.
type SendMessageRequest struct {
	To          string  `json:"to" binding:"required"`
	Message     *string `json:"message" binding:"required"`
	MessageType string  `json:"message_type"`
	MediaURL    string  `json:"media_url"`
}

// SendMessageResponse is returned by POST /send/whatsapp on every non-validation outcome.
type SendMessageResponse struct {
	Success   bool        `json:"success"`
	MessageID *string     `json:"message_id"`
	Error     *string     `json:"error"`
	Details   interface{} `json:"details"`
}

// HealthResponse is returned by GET /.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}
