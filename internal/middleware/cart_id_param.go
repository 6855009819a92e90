package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// contextに入れるカートID（int64）
const CtxCartIDKey = "cart_id"

// :idをint64にしてcontextへ保存する。
// 数字でなければそのカートは存在しないので404。
func CartIDParam() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil || id <= 0 {
				return c.JSON(http.StatusNotFound, errorsJSON("cart not found"))
			}

			c.Set(CtxCartIDKey, id)
			return next(c)
		}
	}
}

// ハンドラ側で取り出す
func CartIDFrom(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxCartIDKey).(int64)
	return id, ok && id > 0
}

type errorsResponse struct {
	Errors []string `json:"errors"`
}

func errorsJSON(msg string) errorsResponse {
	return errorsResponse{Errors: []string{msg}}
}
