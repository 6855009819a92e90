package handler

import (
	"net/http"
	"time"

	"cartkeeper/internal/domain/model"
	"cartkeeper/internal/usecase"
)

type CartProductResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

type CartResponse struct {
	ID         int64                 `json:"id"`
	Products   []CartProductResponse `json:"products"`
	TotalPrice float64               `json:"total_price"`
}

type CartHistoryEntryResponse struct {
	Action       string    `json:"action"`
	Actor        string    `json:"actor"`
	RunID        string    `json:"run_id,omitempty"`
	BeforeStatus string    `json:"before_status"`
	AfterStatus  string    `json:"after_status"`
	CreatedAt    time.Time `json:"created_at"`
}

type CartHistoryResponse struct {
	History []CartHistoryEntryResponse `json:"history"`
}

type ErrorsResponse struct {
	Errors []string `json:"errors"`
}

// カートをレスポンス形式へ（HTTPに依存しない）
func presentCart(v usecase.CartView) CartResponse {
	products := make([]CartProductResponse, 0, len(v.Items))
	for _, it := range v.Items {
		products = append(products, CartProductResponse{
			ID:         it.ProductID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice.InexactFloat64(),
			TotalPrice: it.TotalPrice.InexactFloat64(),
		})
	}

	return CartResponse{
		ID:         v.ID,
		Products:   products,
		TotalPrice: v.TotalPrice.InexactFloat64(),
	}
}

func presentHistory(logs []model.AuditLog) CartHistoryResponse {
	entries := make([]CartHistoryEntryResponse, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, CartHistoryEntryResponse{
			Action:       string(l.Action),
			Actor:        string(l.Actor),
			RunID:        l.RunID,
			BeforeStatus: string(l.BeforeStatus),
			AfterStatus:  string(l.AfterStatus),
			CreatedAt:    l.CreatedAt,
		})
	}
	return CartHistoryResponse{History: entries}
}

// エラーをステータスとボディへ。CartError以外は500。
func presentError(err error) (int, ErrorsResponse) {
	ce, ok := usecase.AsCartError(err)
	if !ok {
		return http.StatusInternalServerError, ErrorsResponse{Errors: []string{"internal error"}}
	}
	return httpStatus(ce.Status()), ErrorsResponse{Errors: []string{ce.Message}}
}

func httpStatus(s usecase.Status) int {
	switch s {
	case usecase.StatusOK:
		return http.StatusOK
	case usecase.StatusCreated:
		return http.StatusCreated
	case usecase.StatusNotFound:
		return http.StatusNotFound
	case usecase.StatusUnprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
