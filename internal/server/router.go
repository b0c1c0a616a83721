package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"whatsapp-relay/internal/api"
	"whatsapp-relay/internal/webhook"
)

type Deps struct {
	Logger   *log.Logger
	Gatherer prometheus.Gatherer
	Webhook  *webhook.Handler
	WhatsApp *api.WhatsAppHandler
	Health   *api.HealthHandler
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(d.Logger.WriterLevel(log.InfoLevel)), gin.Recovery())
	r.Use(cors())

	r.GET("/", d.Health.Health)

	// Webhook Routes
	r.GET("/webhook/whatsapp", d.Webhook.VerifyWebhook)
	r.POST("/webhook/whatsapp", d.Webhook.HandleMessage)

	r.POST("/send/whatsapp", d.WhatsApp.SendMessage)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
