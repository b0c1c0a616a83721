package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"whatsapp-relay/internal/config"
	"whatsapp-relay/internal/metrics"
	"whatsapp-relay/pkg/models"
)

// Forwarder posts normalized messages to the core ingestion API. Delivery is
// best effort: failures are logged and the message is dropped.
type Forwarder struct {
	URL        string
	httpClient *http.Client
	logger     log.FieldLogger
	metrics    *metrics.Service
}

func NewForwarder(cfg *config.Config, logger log.FieldLogger, m *metrics.Service) *Forwarder {
	return &Forwarder{
		URL:        cfg.CoreAPIURL,
		httpClient: &http.Client{Timeout: cfg.CoreTimeout},
		logger:     logger,
		metrics:    m,
	}
}

// Forward delivers one message. It never returns an error to the caller.
func (f *Forwarder) Forward(ctx context.Context, msg models.NormalizedMessage) {
	fields := log.Fields{
		"sender":       msg.Sender,
		"message_type": msg.MessageType,
		"url":          f.URL,
	}
	if msg.MessageID != nil {
		fields["message_id"] = *msg.MessageID
	}

	if err := f.post(ctx, msg); err != nil {
		f.metrics.CoreForward(metrics.ResultFailure)
		f.logger.WithFields(fields).WithError(err).Error("core API: failed to forward message")
		return
	}
	f.metrics.CoreForward(metrics.ResultSuccess)
	f.logger.WithFields(fields).Info("core API: message forwarded")
}

func (f *Forwarder) post(ctx context.Context, msg models.NormalizedMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal normalized message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build core request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "post to core API")
	}
	defer resp.Body.Close()

	// Read body first to enable connection reuse
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read core API response (status %d)", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("core API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	f.logger.WithField("elapsed", time.Since(start)).Debug("core API: response received")
	return nil
}
