// Package router assembles the gin engine: middleware, module wiring, and the
// route table.
package router

import (
	"context"
	"net/http"

	"crmleads_backend/internal/automation"
	"crmleads_backend/internal/bootstrap"
	"crmleads_backend/internal/funnel"
	"crmleads_backend/internal/leads/handler"
	"crmleads_backend/internal/leads/repository"
	"crmleads_backend/internal/leads/service"
	"crmleads_backend/internal/refdata"
	"crmleads_backend/internal/whatsapp"
	"crmleads_backend/platform/config"
	"crmleads_backend/platform/httpkit"
	"crmleads_backend/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"
)

// routes is the public surface, returned verbatim on 404s.
var routes = []string{
	"POST /api/leads",
	"GET /api/leads",
	"PUT /api/leads/:id",
	"POST /api/leads/batch",
	"POST /api?action=manual-automation",
	"GET /api/funnel",
	"POST /api/admin/bootstrap",
	"GET /api/health",
}

// Pinger reports backing-store liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New builds the engine with all modules wired.
func New(cfg *config.Config, pool *pgxpool.Pool, health Pinger, log *logger.Logger) *gin.Engine {
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(cfg))
	engine.Use(httpkit.NewIPRateLimiter(rateLimit(cfg), cfg.RateLimitBurst, log).RateLimit())

	leadsRepo := repository.New(pool)
	trigger := automation.NewTrigger(
		automation.NewSettingsRepository(pool),
		leadsRepo,
		whatsapp.NewClient(log),
		log,
	)
	leadsSvc := service.New(refdata.NewRepository(pool), leadsRepo, trigger, log)
	leadsHandler := handler.New(leadsSvc)
	funnelHandler := funnel.NewHandler(funnel.NewRepository(pool))
	bootstrapHandler := bootstrap.NewHandler(bootstrap.NewRepository(pool), cfg, log)

	api := engine.Group("/api")
	api.GET("/health", healthCheck(health))
	leadsHandler.RegisterRoutes(api.Group("/leads"))
	api.GET("/funnel", funnelHandler.Funnel)
	api.POST("/admin/bootstrap", bootstrapHandler.Bootstrap)

	// Single-entry action dispatch kept for external intake integrations that
	// post to the API root.
	api.POST("", func(c *gin.Context) {
		if c.Query("action") == "manual-automation" {
			leadsHandler.ManualAutomation(c)
			return
		}
		notFound(c)
	})

	engine.NoRoute(notFound)

	return engine
}

func healthCheck(health Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if health != nil {
			if err := health.Ping(c.Request.Context()); err != nil {
				httpkit.Error(c, http.StatusServiceUnavailable, "database unreachable", nil)
				return
			}
		}
		httpkit.OK(c, gin.H{"status": "ok"})
	}
}

func notFound(c *gin.Context) {
	httpkit.Error(c, http.StatusNotFound, "route not found", gin.H{"routes": routes})
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", bootstrap.SetupTokenHeader},
		AllowCredentials: cfg.CORSAllowCreds,
	}
	if cfg.CORSAllowAll {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	return cors.New(corsCfg)
}

func rateLimit(cfg *config.Config) rate.Limit {
	return rate.Limit(cfg.RateLimitRPS)
}
