package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"semelfinder/pkg/logger"
	"semelfinder/pkg/metrics"
)

// RouterConfig - настройки маршрутизатора, влияющие на идентичность и CORS
type RouterConfig struct {
	// TrustedProxies - прямые пиры, чьим заголовкам X-Forwarded-For можно верить.
	// От них зависит корректность ключа рейт-лимита.
	TrustedProxies []string
	AllowedOrigins []string
}

// SetupRoutes настраивает все маршруты сервиса
// POST-маршруты проходят через IdentityMiddleware: без определённой
// идентичности сабмишен не доходит до сервиса
func SetupRoutes(semlaHandler *SemlaHandler, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware("semla"))

	if len(cfg.AllowedOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		router.Use(cors.New(corsCfg))
	}

	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Fatal().Err(err).Msg("invalid trusted proxies configuration")
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "semla",
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/semlor", semlaHandler.GetAllSemlor)
		api.GET("/comments/:id", semlaHandler.GetComments)

		api.POST("/semlor", IdentityMiddleware(), semlaHandler.CreateSemla)
		api.POST("/rate/:id", IdentityMiddleware(), semlaHandler.RateSemla)
	}

	return router
}
