package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-relay/internal/api"
	"whatsapp-relay/internal/config"
	"whatsapp-relay/internal/core"
	"whatsapp-relay/internal/metrics"
	"whatsapp-relay/internal/webhook"
	"whatsapp-relay/internal/whatsapp"
)

type coreRecorder struct {
	mu     sync.Mutex
	bodies []map[string]interface{}
}

func (c *coreRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var decoded map[string]interface{}
	_ = json.Unmarshal(body, &decoded)
	c.mu.Lock()
	c.bodies = append(c.bodies, decoded)
	c.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func newTestServer(t *testing.T, coreURL, platformURL string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	reg := prometheus.NewRegistry()
	m, err := metrics.NewPrometheusService(reg)
	require.NoError(t, err)

	cfg := &config.Config{
		VerifyToken:   "my_verify_token_123",
		APIBaseURL:    platformURL,
		PhoneNumberID: "PHONE_ID",
		AccessToken:   "ACCESS",
		SendTimeout:   time.Second,
		CoreAPIURL:    coreURL,
		CoreTimeout:   time.Second,
	}
	forwarder := core.NewForwarder(cfg, logger, m)
	client := whatsapp.NewClient(cfg, logger, m)

	return NewRouter(Deps{
		Logger:   logger,
		Gatherer: reg,
		Webhook:  webhook.NewHandler(cfg, webhook.NewNormalizer(time.UTC), forwarder, logger, m),
		WhatsApp: api.NewWhatsAppHandler(client, logger),
		Health:   api.NewHealthHandler(),
	})
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInboundTextMessageIsForwardedOnce(t *testing.T) {
	rec := &coreRecorder{}
	coreSrv := httptest.NewServer(rec)
	defer coreSrv.Close()
	r := newTestServer(t, coreSrv.URL, "http://127.0.0.1:1")

	payload := `{"entry":[{"changes":[{"value":{"messages":[
		{"from":"5491112345678","type":"text","text":{"body":"Hola"},"timestamp":"1633024800","id":"wamid.1"}
	]}}]}]}`
	w := do(r, http.MethodPost, "/webhook/whatsapp", payload)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	require.Len(t, rec.bodies, 1)
	assert.Equal(t, map[string]interface{}{
		"channel":      "whatsapp",
		"sender":       "+5491112345678",
		"message":      "Hola",
		"timestamp":    "2021-09-30T18:00:00",
		"message_id":   "wamid.1",
		"message_type": "text",
	}, rec.bodies[0])

	metricsOut := do(r, http.MethodGet, "/metrics", "")
	assert.Contains(t, metricsOut.Body.String(), `whatsapp_core_forwards_total{result="success"} 1`)
	assert.Contains(t, metricsOut.Body.String(), `whatsapp_webhook_events_total{status="ok"} 1`)
}

func TestCoreFailureStillAcknowledges(t *testing.T) {
	coreSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer coreSrv.Close()
	r := newTestServer(t, coreSrv.URL, "http://127.0.0.1:1")

	w := do(r, http.MethodPost, "/webhook/whatsapp", `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","type":"text","text":{"body":"x"}}]}}]}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRoutes(t *testing.T) {
	r := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1")

	health := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Contains(t, health.Body.String(), `"status":"healthy"`)

	verify := do(r, http.MethodGet, "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=my_verify_token_123&hub.challenge=xyz", "")
	assert.Equal(t, http.StatusOK, verify.Code)
	assert.Equal(t, "xyz", verify.Body.String())

	forbidden := do(r, http.MethodGet, "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=xyz", "")
	assert.Equal(t, http.StatusForbidden, forbidden.Code)

	noEntry := do(r, http.MethodPost, "/webhook/whatsapp", `{}`)
	assert.JSONEq(t, `{"status":"no_entry"}`, noEntry.Body.String())

	invalid := do(r, http.MethodPost, "/webhook/whatsapp", `{oops`)
	assert.Equal(t, http.StatusOK, invalid.Code)

	badSend := do(r, http.MethodPost, "/send/whatsapp", `{"to":"1","message":"hi","message_type":"image"}`)
	assert.Equal(t, http.StatusBadRequest, badSend.Code)

	preflight := do(r, http.MethodOptions, "/send/whatsapp", "")
	assert.Equal(t, http.StatusNoContent, preflight.Code)
	assert.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))
}

func TestSendAgainstRejectingPlatform(t *testing.T) {
	platform := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token."}}`))
	}))
	defer platform.Close()
	r := newTestServer(t, "http://127.0.0.1:1", platform.URL)

	w := do(r, http.MethodPost, "/send/whatsapp", `{"to":"+549111","message":"hi","message_type":"text"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, `{"error":{"message":"Invalid OAuth access token."}}`, resp["error"])
	assert.Equal(t, 401.0, resp["details"].(map[string]interface{})["status_code"])
}
