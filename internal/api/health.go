package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"whatsapp-relay/pkg/models"
)

const serviceName = "WhatsApp Integration Service"

type HealthHandler struct {
	now func() time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{now: time.Now}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Timestamp: isoTimestamp(h.now().UTC()),
	})
}

// isoTimestamp renders microsecond precision and drops the fraction when it
// is zero.
func isoTimestamp(t time.Time) string {
	t = t.Truncate(time.Microsecond)
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format("2006-01-02T15:04:05.000000")
}
