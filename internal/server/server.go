package server

import (
	"liveshop/internal/config"
	"liveshop/internal/handler"
	"liveshop/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Handlers struct {
	Auth        *handler.AuthHandler
	Order       *handler.OrderHandler
	Payment     *handler.PaymentHandler
	SellerOrder *handler.SellerOrderHandler
}

// Start はechoエンジンを組み立てて起動する。
func Start(cfg config.Config, h Handlers, m *metrics.ServerMetrics) error {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(m.Middleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	h.Auth.RegisterRoutes(e)
	h.Order.RegisterRoutes(e, cfg)
	h.Payment.RegisterRoutes(e, cfg)
	h.SellerOrder.RegisterRoutes(e, cfg)

	return e.Start(":" + cfg.Port)
}
