package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/interviewdesk/relay/internal/adapters/rest"
	"github.com/interviewdesk/relay/internal/adapters/signal"
	"github.com/interviewdesk/relay/internal/config"
	"github.com/interviewdesk/relay/internal/relay"
)

func SetupRouter(ctx context.Context, cfg *config.Config, reg *relay.Registry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	sig := signal.NewController(reg, cfg)
	fb := rest.NewController(reg)

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		sig.HandleSignal(ctx, c)
	})

	rooms := api.Group("/rooms/:roomId")
	rooms.POST("/offer", fb.PostOffer)
	rooms.POST("/answer", fb.PostAnswer)
	rooms.POST("/ice-candidate", fb.PostCandidate)
	rooms.GET("/events", fb.Events)
	rooms.GET("/status", fb.Status)

	return r
}
