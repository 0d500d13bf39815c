package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/redvelvet-shop/internal/cache"
	"github.com/redvelvet-shop/internal/config"
	publichandlers "github.com/redvelvet-shop/internal/http/handlers/public"
	"github.com/redvelvet-shop/internal/http/response"
	"github.com/redvelvet-shop/internal/logger"
	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rv"
	}
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Checkout.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Checkout.RateLimit.MaxRequests,
		Responder: func(c *gin.Context, _ int) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "RATE_LIMITED"})
		},
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", healthz)

	optionalAuth := AuthMiddleware(cfg.Auth, false)
	requiredAuth := AuthMiddleware(cfg.Auth, true)

	api := r.Group("/api")
	{
		api.GET("/products", publicHandler.ListProducts)
		api.GET("/products/:id", publicHandler.GetProduct)

		api.POST("/checkout",
			RateLimitMiddleware(cache.Client(), checkoutRule, KeyByIPAndJSONField("userId")),
			optionalAuth,
			publicHandler.Checkout,
		)
		api.POST("/payments/mollie/webhook", publicHandler.MollieWebhook)

		cart := api.Group("/cart")
		cart.Use(optionalAuth)
		{
			cart.GET("", publicHandler.GetCart)
			cart.DELETE("", publicHandler.ClearCart)
			cart.POST("/items", publicHandler.AddCartItem)
			cart.PUT("/items/:id", publicHandler.UpdateCartItem)
			cart.DELETE("/items/:id", publicHandler.RemoveCartItem)
			cart.GET("/events", publicHandler.CartEvents)
		}
		api.POST("/cart/merge", requiredAuth, publicHandler.MergeCart)

		account := api.Group("/account")
		account.Use(requiredAuth)
		{
			account.GET("/profile", publicHandler.GetProfile)
			account.PUT("/profile", publicHandler.UpdateProfile)
			account.GET("/orders", publicHandler.ListOrders)
		}
	}

	return r
}

// healthz 数据库与 Redis 健康检查
func healthz(c *gin.Context) {
	ctx := c.Request.Context()
	if models.DB != nil {
		sqlDB, err := models.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			logger.Warnw("healthz_database_unavailable", "error", err)
			response.ErrorWithData(c, response.CodeInternal, "database unavailable", gin.H{"status": "degraded"})
			return
		}
	}
	if err := cache.Ping(ctx); err != nil {
		logger.Warnw("healthz_redis_unavailable", "error", err)
		response.ErrorWithData(c, response.CodeInternal, "redis unavailable", gin.H{"status": "degraded"})
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}
