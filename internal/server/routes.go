package server

import (
	"net/http"

	"cartkeeper/internal/handler"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, cartH *handler.CartHandler) {
	//ヘルスチェック
	e.GET("/up", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	cartH.RegisterRoutes(e)
}
