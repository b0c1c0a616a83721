package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Forward and send outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultTimeout = "timeout"
)

// LabelOther buckets label values outside the known set. Webhook bodies are
// untrusted, so their values never become label values directly.
const LabelOther = "other"

var (
	knownMessageTypes = map[string]bool{
		"text": true, "image": true, "audio": true, "video": true, "document": true,
	}
	knownStatuses = map[string]bool{
		"sent": true, "delivered": true, "read": true, "failed": true,
	}
)

func boundedLabel(value string, known map[string]bool) string {
	if known[value] {
		return value
	}
	return LabelOther
}

// Service holds the relay counters. A nil *Service is valid and records nothing.
type Service struct {
	webhookEvents   *prometheus.CounterVec
	inboundMessages *prometheus.CounterVec
	statusUpdates   *prometheus.CounterVec
	coreForwards    *prometheus.CounterVec
	outboundSends   *prometheus.CounterVec
}

func NewPrometheusService(reg prometheus.Registerer) (*Service, error) {
	s := &Service{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whatsapp_webhook_events_total",
			Help: "Webhook deliveries labeled by the status marker returned to the platform",
		}, []string{"status"}),
		inboundMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whatsapp_inbound_messages_total",
			Help: "Normalized inbound messages labeled by message type",
		}, []string{"message_type"}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whatsapp_status_updates_total",
			Help: "Delivery receipts seen on the webhook labeled by status",
		}, []string{"status"}),
		coreForwards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whatsapp_core_forwards_total",
			Help: "Messages forwarded to the core API labeled by result",
		}, []string{"result"}),
		outboundSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whatsapp_outbound_sends_total",
			Help: "Messages sent through the Cloud API labeled by message type and result",
		}, []string{"message_type", "result"}),
	}

	for _, c := range []**prometheus.CounterVec{
		&s.webhookEvents, &s.inboundMessages, &s.statusUpdates, &s.coreForwards, &s.outboundSends,
	} {
		if err := register(reg, c); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// register adopts the existing collector when an identical one is already
// registered, so several services can share one registry.
func register(reg prometheus.Registerer, c **prometheus.CounterVec) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			*c = existing
			return nil
		}
	}
	return errors.Wrap(err, "register metrics")
}

func (s *Service) WebhookEvent(status string) {
	if s == nil {
		return
	}
	s.webhookEvents.WithLabelValues(status).Inc()
}

func (s *Service) InboundMessage(messageType string) {
	if s == nil {
		return
	}
	s.inboundMessages.WithLabelValues(boundedLabel(messageType, knownMessageTypes)).Inc()
}

func (s *Service) StatusUpdate(status string) {
	if s == nil {
		return
	}
	s.statusUpdates.WithLabelValues(boundedLabel(status, knownStatuses)).Inc()
}

func (s *Service) CoreForward(result string) {
	if s == nil {
		return
	}
	s.coreForwards.WithLabelValues(result).Inc()
}

func (s *Service) OutboundSend(messageType, result string) {
	if s == nil {
		return
	}
	s.outboundSends.WithLabelValues(boundedLabel(messageType, knownMessageTypes), result).Inc()
}
