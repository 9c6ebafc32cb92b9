package router

import (
	"net/http"

	"skincareReco/internal/rest"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetBanditRoutes(api *echo.Group, handler *rest.BanditHandler, optionalAuth echo.MiddlewareFunc) {
	b := api.Group("/bandit", optionalAuth)
	b.POST("/recommend", handler.Recommend)
	b.GET("/recommend", handler.RecommendFromCatalog)
	b.POST("/update", handler.Update)
	b.GET("/statistics", handler.Statistics)
	b.GET("/product/:id", handler.ProductState)
}

func SetInteractionRoutes(api *echo.Group, handler *rest.BanditHandler, authRequired echo.MiddlewareFunc, optionalAuth echo.MiddlewareFunc) {
	interactions := api.Group("/interactions")
	interactions.POST("/track", handler.Track, optionalAuth)
	interactions.GET("/product/:id", handler.ProductInteractions, optionalAuth)
	interactions.GET("/user", handler.UserInteractions, authRequired)
}

func SetBanditAdminRoutes(api *echo.Group, handler *rest.BanditAdminHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	admin := api.Group("/admin/bandit", authRequired, adminOnly)
	admin.GET("/reward-policy", handler.GetRewardPolicy)
	admin.PUT("/reward-policy", handler.UpdateRewardPolicy)
}

func SetOpsRoutes(e *echo.Echo, ready func() error) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		if err := ready(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
}
