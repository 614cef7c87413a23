// Package attestd is a reference attestation container: it serves the
// /verify endpoint consumed by the delegated attestation provider.
package attestd

import (
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the Gin router with all routes.
func NewRouter(cfg *Config, quoter Quoter, signer *Signer) *gin.Engine {
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.String(200, "ok")
	})

	api := r.Group("/", RateLimit(cfg.RateLimit, cfg.RateBurst))
	if cfg.Token != "" {
		api.Use(BearerAuth(cfg.Token))
	}
	{
		api.GET("/info", HandleInfo(quoter, signer))
		api.POST("/verify", HandleVerify(quoter, signer, time.Now))
	}

	return r
}
