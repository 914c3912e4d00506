package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	// GraphQL serves /graphql. Required.
	GraphQL http.Handler
	// Health is pinged by /healthz. Nil reports healthy.
	Health Pinger
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// GraphiQL mounts the IDE at /graphiql.
	GraphiQL bool
	// Middleware runs before every route, after panic recovery.
	Middleware []gin.HandlerFunc
}

// NewRouter mounts the GraphQL endpoint, the animal view, health and
// metrics routes on a gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cfg.Middleware...)

	graphql := gin.WrapH(cfg.GraphQL)
	r.GET("/graphql", graphql)
	r.POST("/graphql", graphql)
	r.OPTIONS("/graphql", graphql)

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
	})
	if cfg.GraphiQL {
		r.GET("/graphiql", func(c *gin.Context) {
			c.Data(http.StatusOK, "text/html; charset=utf-8", graphiqlPage)
		})
	}
	r.GET("/healthz", healthz(cfg.Health))
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	return r
}

func healthz(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
