package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"whatsapp-relay/internal/api"
	"whatsapp-relay/internal/config"
	"whatsapp-relay/internal/core"
	"whatsapp-relay/internal/database"
	"whatsapp-relay/internal/logging"
	"whatsapp-relay/internal/metrics"
	"whatsapp-relay/internal/server"
	"whatsapp-relay/internal/webhook"
	"whatsapp-relay/internal/whatsapp"
)

func main() {
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	if cfg.DBDSN != "" {
		db, err := database.Open(cfg)
		if err != nil {
			logger.Fatalf("Failed to open settings store: %v", err)
		}
		if err := database.SyncConfig(db, cfg, logger); err != nil {
			logger.Fatalf("Failed to sync settings: %v", err)
		}
	}

	if cfg.VerifyToken == "" {
		logger.Warn("WHATSAPP_VERIFY_TOKEN is not set, webhook verification will always fail")
	}

	m, err := metrics.NewPrometheusService(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal(err)
	}

	gin.SetMode(gin.ReleaseMode)

	forwarder := core.NewForwarder(cfg, logger, m)
	whatsappClient := whatsapp.NewClient(cfg, logger, m)
	webhookHandler := webhook.NewHandler(cfg, webhook.NewNormalizer(cfg.Location()), forwarder, logger, m)
	whatsappHandler := api.NewWhatsAppHandler(whatsappClient, logger)

	r := server.NewRouter(server.Deps{
		Logger:   logger,
		Gatherer: prometheus.DefaultGatherer,
		Webhook:  webhookHandler,
		WhatsApp: whatsappHandler,
		Health:   api.NewHealthHandler(),
	})

	logger.Infof("Server starting on %s", cfg.Addr())
	if err := r.Run(cfg.Addr()); err != nil {
		logger.Fatalf("Failed to run server: %v", err)
	}
}
