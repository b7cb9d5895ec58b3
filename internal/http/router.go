// README: HTTP router registration.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gohappygo/internal/http/handlers"
	"gohappygo/internal/http/middleware"
	"gohappygo/internal/infra"
)

type RouterDeps struct {
	Booking     handlers.BookingService
	Verifier    infra.TokenVerifier
	Logger      *slog.Logger
	CORSOrigins []string
	// Ready reports whether backing stores answer; nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := gin.New()
	r.Use(middleware.Recovery(d.Logger), middleware.Logging(d.Logger), middleware.Metrics())
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/ready", func(c *gin.Context) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1", middleware.Auth(d.Verifier))

	trips := handlers.NewTripHandler(d.Booking)
	api.POST("/trips", trips.Create)
	api.GET("/trips/mine", trips.ListMine)
	api.GET("/trips/:id", trips.Get)
	api.PATCH("/trips/:id", trips.Update)
	api.POST("/trips/:id/cancel", trips.Cancel)
	api.GET("/trips/:id/requests", trips.ListRequests)

	demands := handlers.NewDemandHandler(d.Booking)
	api.POST("/demands", demands.Create)
	api.GET("/demands/mine", demands.ListMine)
	api.GET("/demands/:id", demands.Get)
	api.PATCH("/demands/:id", demands.Update)
	api.POST("/demands/:id/cancel", demands.Cancel)
	api.GET("/demands/:id/requests", demands.ListRequests)

	requests := handlers.NewRequestHandler(d.Booking)
	api.POST("/requests", requests.Create)
	api.GET("/requests/mine", requests.ListMine)
	api.GET("/requests/:id", requests.Get)
	api.GET("/requests/:id/history", requests.History)
	api.GET("/requests/:id/transaction", requests.Transaction)
	api.POST("/requests/:id/accept", requests.Accept)
	api.POST("/requests/:id/reject", requests.Reject)
	api.POST("/requests/:id/cancel", requests.Cancel)
	api.POST("/requests/:id/complete", requests.Complete)
	api.POST("/requests/:id/release", requests.Release)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
