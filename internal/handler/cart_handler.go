package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"cartkeeper/internal/middleware"
	"cartkeeper/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// /cart, /cart/:id を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/cart", h.create)

	g := e.Group("/cart/:id")
	g.Use(middleware.CartIDParam())

	g.GET("", h.show)
	g.GET("/history", h.history)
	g.POST("/add_item", h.addItem)
	g.DELETE("/:product_id", h.removeProduct)
}

func (h *CartHandler) show(c echo.Context) error {
	cartID, _ := middleware.CartIDFrom(c)

	res, err := h.uc.ShowCart(c.Request().Context(), cartID)
	return writeResult(c, res, err)
}

// cart_idがあれば既存カートへ、無ければ新規作成
func (h *CartHandler) create(c echo.Context) error {
	req, err := bindItemRequest(c)
	if err != nil {
		return writeResult(c, usecase.CartResult{}, err)
	}

	var cartID *int64
	if req != nil && strings.TrimSpace(string(req.CartID)) != "" {
		//数字でなければ存在しないカートとして扱う
		id, _ := strconv.ParseInt(strings.TrimSpace(string(req.CartID)), 10, 64)
		cartID = &id
	}

	res, err := h.uc.CreateOrAddTo(c.Request().Context(), cartID, req.itemParams())
	return writeResult(c, res, err)
}

func (h *CartHandler) addItem(c echo.Context) error {
	cartID, _ := middleware.CartIDFrom(c)

	req, err := bindItemRequest(c)
	if err != nil {
		return writeResult(c, usecase.CartResult{}, err)
	}

	res, err := h.uc.AddItem(c.Request().Context(), cartID, req.itemParams())
	return writeResult(c, res, err)
}

// ?limit=（既定50、最大200）
func (h *CartHandler) history(c echo.Context) error {
	cartID, _ := middleware.CartIDFrom(c)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	logs, err := h.uc.History(c.Request().Context(), cartID, limit)
	if err != nil {
		status, body := presentError(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, presentHistory(logs))
}

func (h *CartHandler) removeProduct(c echo.Context) error {
	cartID, _ := middleware.CartIDFrom(c)
	removeAll, _ := strconv.ParseBool(c.QueryParam("remove_all"))

	res, err := h.uc.RemoveProduct(c.Request().Context(), cartID, c.Param("product_id"), removeAll)
	return writeResult(c, res, err)
}

func writeResult(c echo.Context, res usecase.CartResult, err error) error {
	if err != nil {
		status, body := presentError(err)
		return c.JSON(status, body)
	}
	return c.JSON(httpStatus(res.Status), presentCart(res.Cart))
}

// POST /cart, /cart/:id/add_item のボディ（JSONかフォーム）
type cartItemRequest struct {
	CartID    paramValue `json:"cart_id" form:"cart_id"`
	ProductID paramValue `json:"product_id" form:"product_id"`
	Quantity  paramValue `json:"quantity" form:"quantity"`
}

// ボディが空ならnil（パラメータ無し）
func bindItemRequest(c echo.Context) (*cartItemRequest, error) {
	if c.Request().ContentLength == 0 {
		return nil, nil
	}

	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return nil, usecase.ErrMalformedParams
	}
	return &req, nil
}

func (r *cartItemRequest) itemParams() *usecase.ItemParams {
	if r == nil {
		return nil
	}
	return &usecase.ItemParams{
		ProductID: string(r.ProductID),
		Quantity:  string(r.Quantity),
	}
}

// 数値でも文字列でも受け付ける値。検証はusecase側。
type paramValue string

func (v *paramValue) UnmarshalJSON(b []byte) error {
	// nullは空文字
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = paramValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*v = paramValue(n.String())
		return nil
	}
	//配列やオブジェクト、真偽値は値として扱えない
	*v = "invalid"
	return nil
}

// フォーム用（echo.BindUnmarshaler）
func (v *paramValue) UnmarshalParam(param string) error {
	*v = paramValue(param)
	return nil
}
