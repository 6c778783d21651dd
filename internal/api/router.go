package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"washroom-tracker-client/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, ratePerSec float64, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())

	rateLimiter := mw.RateLimiter(rate.Limit(ratePerSec), 5)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/push", h.PostPush)
		api.GET("/push/token", h.GetPushToken)
		api.GET("/status", h.GetStatus)
	}

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return r
}
