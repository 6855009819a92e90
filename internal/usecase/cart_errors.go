package usecase

import (
	"errors"
	"fmt"
)

// 処理結果のステータス（表示層がHTTPステータスに変換する）
type Status string

const (
	StatusOK            Status = "ok"
	StatusCreated       Status = "created"
	StatusNotFound      Status = "not_found"
	StatusUnprocessable Status = "unprocessable_entity"
	StatusInternal      Status = "internal_server_error"
)

type ErrorKind string

const (
	ErrKindMissingParameter ErrorKind = "missing_parameter"
	ErrKindInvalidQuantity  ErrorKind = "invalid_quantity"
	ErrKindProductNotFound  ErrorKind = "product_not_found"
	ErrKindLineItemNotFound ErrorKind = "line_item_not_found"
	ErrKindCartNotFound     ErrorKind = "cart_not_found"
	ErrKindMalformedParams  ErrorKind = "malformed_params"
	ErrKindInternal         ErrorKind = "internal_failure"
)

// ボディが読めないとき（表示層が返す）
var ErrMalformedParams error = &CartError{Kind: ErrKindMalformedParams, Message: "malformed request body"}

// カート操作の想定内エラー。
// 内部エラーは詳細をログに出し、Messageには出さない。
type CartError struct {
	Kind    ErrorKind
	Message string
}

func (e *CartError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CartError) Status() Status {
	switch e.Kind {
	case ErrKindMissingParameter, ErrKindInvalidQuantity, ErrKindMalformedParams:
		return StatusUnprocessable
	case ErrKindProductNotFound, ErrKindLineItemNotFound, ErrKindCartNotFound:
		return StatusNotFound
	default:
		return StatusInternal
	}
}

func AsCartError(err error) (*CartError, bool) {
	var ce *CartError
	ok := errors.As(err, &ce)
	return ce, ok
}

func missingParameter(name string) error {
	return &CartError{Kind: ErrKindMissingParameter, Message: fmt.Sprintf("parameter %s is required", name)}
}

func invalidQuantity() error {
	return &CartError{Kind: ErrKindInvalidQuantity, Message: "quantity must be greater than 0"}
}

func quantityTooLarge() error {
	return &CartError{Kind: ErrKindInvalidQuantity, Message: "quantity is too large"}
}

func productNotFound() error {
	return &CartError{Kind: ErrKindProductNotFound, Message: "product not found"}
}

func lineItemNotFound() error {
	return &CartError{Kind: ErrKindLineItemNotFound, Message: "product not in cart"}
}

func cartNotFound() error {
	return &CartError{Kind: ErrKindCartNotFound, Message: "cart not found"}
}

func internalFailure() error {
	return &CartError{Kind: ErrKindInternal, Message: "internal error"}
}
