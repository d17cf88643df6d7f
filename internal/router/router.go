package router

import (
	"strings"

	"aiproxy/internal/config"
	"aiproxy/internal/gateway"
	"aiproxy/internal/handler"
	"aiproxy/internal/middleware"
	"aiproxy/internal/registry"
	"aiproxy/internal/service"

	"github.com/gin-gonic/gin"
)

// Deps 路由装配所需的共享组件
type Deps struct {
	Registry      *registry.Registry
	Dispatcher    *gateway.Dispatcher
	EncryptionKey []byte
}

func Setup(deps Deps) *gin.Engine {
	r := gin.Default()

	cfg := config.Get()

	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	if len(allowedOrigins) == 0 || allowedOrigins[0] == "" {
		allowedOrigins = []string{"*"}
	}

	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, o := range allowedOrigins {
			o = strings.TrimSpace(o)
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
		} else if allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Api-Key")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Vary", "Origin")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	adminLimiter := middleware.NewRateLimiter(cfg.AdminRateLimitRPS, 10)

	gatewayHandler := gateway.NewHandler(deps.Dispatcher, deps.Registry)
	providerHandler := handler.NewProviderHandler(service.NewProviderService(deps.Registry, deps.EncryptionKey))
	aliasHandler := handler.NewAliasHandler(service.NewAliasService(deps.Registry))
	configHandler := handler.NewConfigHandler(service.NewPromptService(), service.NewSettingsService())
	requestLogHandler := handler.NewRequestLogHandler(service.NewRequestLogService())

	// 网关路由：限流在分发器内部处理
	r.POST("/v1/messages/:alias", gatewayHandler.Messages)
	r.GET("/health", gatewayHandler.Health)

	admin := r.Group("/api/admin")
	admin.Use(adminLimiter.RateLimitByIP())
	{
		providers := admin.Group("/providers")
		{
			providers.GET("", providerHandler.List)
			providers.POST("", providerHandler.Create)
			providers.GET("/:id", providerHandler.Get)
			providers.PUT("/:id", providerHandler.Update)
			providers.DELETE("/:id", providerHandler.Delete)
			providers.POST("/:id/activate", providerHandler.SetActive)
			providers.POST("/:id/test", providerHandler.Test)
		}

		aliases := admin.Group("/aliases")
		{
			aliases.GET("", aliasHandler.List)
			aliases.POST("", aliasHandler.Create)
			aliases.PUT("/:id", aliasHandler.Update)
			aliases.DELETE("/:id", aliasHandler.Delete)
		}

		admin.GET("/prompt-config", configHandler.GetPromptConfig)
		admin.PUT("/prompt-config", configHandler.UpdatePromptConfig)
		admin.GET("/settings", configHandler.GetSettings)
		admin.PUT("/settings", configHandler.UpdateSettings)

		logs := admin.Group("/request-logs")
		{
			logs.GET("", requestLogHandler.List)
			logs.GET("/summary", requestLogHandler.Summary)
			logs.GET("/:id", requestLogHandler.Get)
			logs.DELETE("", requestLogHandler.Purge)
		}
	}

	return r
}
