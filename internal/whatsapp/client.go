package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"whatsapp-relay/internal/config"
	"whatsapp-relay/internal/metrics"
	"whatsapp-relay/pkg/models"
)

// ErrorTimeout is the error marker reported when the Cloud API does not
// answer within the send timeout.
const ErrorTimeout = "Request timeout"

type Client struct {
	Config     *config.Config
	httpClient *http.Client
	logger     log.FieldLogger
	metrics    *metrics.Service
}

func NewClient(cfg *config.Config, logger log.FieldLogger, m *metrics.Service) *Client {
	return &Client{
		Config:     cfg,
		httpClient: &http.Client{Timeout: cfg.SendTimeout},
		logger:     logger,
		metrics:    m,
	}
}

// --- Message Structures ---

type GenericMessage struct {
	MessagingProduct string    `json:"messaging_product"`
	RecipientType    string    `json:"recipient_type,omitempty"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             *TextObj  `json:"text,omitempty"`
	Image            *MediaObj `json:"image,omitempty"`
}

type TextObj struct {
	PreviewUrl bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type MediaObj struct {
	ID      string `json:"id,omitempty"`
	Link    string `json:"link,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// SendResult is the classified outcome of one send attempt.
type SendResult struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      interface{} `json:"error,omitempty"`
	StatusCode int         `json:"status_code,omitempty"`
	Timeout    bool        `json:"timeout,omitempty"`
}

// MessageID extracts messages[0].id from a successful Cloud API response.
func (r SendResult) MessageID() *string {
	data, ok := r.Data.(map[string]interface{})
	if !ok {
		return nil
	}
	messages, ok := data["messages"].([]interface{})
	if !ok || len(messages) == 0 {
		return nil
	}
	first, ok := messages[0].(map[string]interface{})
	if !ok {
		return nil
	}
	id, ok := first["id"].(string)
	if !ok {
		return nil
	}
	return &id
}

// ErrorString renders Error for API responses. Structured platform errors
// are encoded as compact JSON.
func (r SendResult) ErrorString() string {
	switch e := r.Error.(type) {
	case nil:
		return ""
	case string:
		return e
	default:
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Sprintf("%v", e)
		}
		return string(b)
	}
}

// --- Helper Functions ---

// sendRequest performs one authenticated JSON request and returns the status
// code and raw body. Only transport failures are returned as errors.
func (c *Client) sendRequest(ctx context.Context, method, url string, body interface{}) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, nil, errors.Wrap(err, "marshal request")
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return 0, nil, errors.Wrap(err, "build request")
	}

	req.Header.Set("Authorization", "Bearer "+c.Config.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "read response")
	}

	return resp.StatusCode, respBody, nil
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("%s/%s/messages", strings.TrimRight(c.Config.APIBaseURL, "/"), c.Config.PhoneNumberID)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// recipient strips the leading "+" since the Cloud API expects digits only.
func recipient(to string) string {
	return strings.TrimPrefix(to, "+")
}

// --- Messaging Methods ---

// SendRawMessage posts msg to the messages endpoint. One call, one attempt.
func (c *Client) SendRawMessage(ctx context.Context, msg GenericMessage) SendResult {
	fields := log.Fields{"to": msg.To, "type": msg.Type}
	c.logger.WithFields(fields).Infof("Sending %s message", msg.Type)

	result := c.classify(c.sendRequest(ctx, http.MethodPost, c.messagesURL(), msg))

	switch {
	case result.Success:
		c.metrics.OutboundSend(msg.Type, metrics.ResultSuccess)
		c.logger.WithFields(fields).Info("Message sent successfully")
	case result.Timeout:
		c.metrics.OutboundSend(msg.Type, metrics.ResultTimeout)
		c.logger.WithFields(fields).Error("Timeout while sending message")
	default:
		c.metrics.OutboundSend(msg.Type, metrics.ResultFailure)
		c.logger.WithFields(fields).WithField("status_code", result.StatusCode).
			Errorf("Failed to send message: %s", result.ErrorString())
	}
	return result
}

func (c *Client) classify(status int, body []byte, err error) SendResult {
	if err != nil {
		if isTimeout(err) {
			return SendResult{Success: false, Error: ErrorTimeout, Timeout: true}
		}
		return SendResult{Success: false, Error: err.Error()}
	}

	var decoded interface{}
	decodeErr := json.Unmarshal(body, &decoded)

	if status == http.StatusOK {
		if decodeErr != nil {
			return SendResult{Success: false, Error: errors.Wrap(decodeErr, "decode response").Error(), StatusCode: status}
		}
		return SendResult{Success: true, Data: decoded}
	}

	if decodeErr != nil {
		return SendResult{Success: false, Error: string(body), StatusCode: status}
	}
	return SendResult{Success: false, Error: decoded, StatusCode: status}
}

func (c *Client) SendText(ctx context.Context, to, body string) SendResult {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient(to),
		Type:             models.TypeText,
		Text: &TextObj{
			PreviewUrl: false,
			Body:       body,
		},
	}
	return c.SendRawMessage(ctx, msg)
}

func (c *Client) SendImage(ctx context.Context, to, imageUrl, caption string) SendResult {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient(to),
		Type:             models.TypeImage,
		Image: &MediaObj{
			Link:    imageUrl,
			Caption: caption,
		},
	}
	return c.SendRawMessage(ctx, msg)
}
