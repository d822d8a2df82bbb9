package order

import (
	"fmt"

	apperrors "github.com/xiebiao/bookorder/pkg/errors"
	"github.com/xiebiao/bookorder/pkg/money"
)

// 订单领域错误定义
var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = apperrors.ErrOrderNotFound

	// ErrEmptyOrder 订单明细为空
	ErrEmptyOrder = apperrors.New(apperrors.ErrCodeInvalidParams, "订单明细不能为空")

	// ErrAmountOverflow 订单金额超出可表示范围
	ErrAmountOverflow = apperrors.New(apperrors.ErrCodeInvalidParams, "订单金额超出范围")
)

// 以下是携带上下文的错误明细,放在AppError.Err中,调用方可用errors.As取出

// UnknownBookError 订单引用了目录中不存在的图书
type UnknownBookError struct {
	BookID uint
}

func (e *UnknownBookError) Error() string {
	return fmt.Sprintf("unknown book %d", e.BookID)
}

// NewUnknownBookError 整单拒绝
func NewUnknownBookError(bookID uint) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeUnknownBook,
		Message: fmt.Sprintf("图书不存在: ID=%d", bookID),
		Details: map[string]interface{}{"book_id": bookID},
		Err:     &UnknownBookError{BookID: bookID},
	}
}

// InvalidLineError 订单明细不合法(数量、状态)
type InvalidLineError struct {
	BookID uint
	Reason string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("invalid line for book %d: %s", e.BookID, e.Reason)
}

// NewInvalidQuantityError 数量必须为正
func NewInvalidQuantityError(bookID uint, quantity int) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeInvalidQuantity,
		Message: fmt.Sprintf("图书 %d 的购买数量必须大于0, 实际为 %d", bookID, quantity),
		Details: map[string]interface{}{"book_id": bookID, "quantity": quantity},
		Err:     &InvalidLineError{BookID: bookID, Reason: "non-positive quantity"},
	}
}

// NewQuantityOverflowError 同一本书的数量合并后超出int范围
func NewQuantityOverflowError(bookID uint) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeInvalidQuantity,
		Message: fmt.Sprintf("图书 %d 的购买数量合计超出范围", bookID),
		Details: map[string]interface{}{"book_id": bookID},
		Err:     &InvalidLineError{BookID: bookID, Reason: "quantity overflow"},
	}
}

// NewInvalidStatusError 未知的订单状态
func NewInvalidStatusError(status string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeInvalidStatus,
		Message: fmt.Sprintf("订单状态取值非法: %q", status),
		Details: map[string]interface{}{"status": status},
		Err:     &InvalidLineError{Reason: "unknown status " + status},
	}
}

// NewConflictingStatusError 各明细声明的状态不一致
func NewConflictingStatusError(first, second Status) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeInvalidStatus,
		Message: fmt.Sprintf("订单明细声明的状态不一致: %s / %s", first, second),
		Details: map[string]interface{}{"statuses": []string{string(first), string(second)}},
		Err:     &InvalidLineError{Reason: "conflicting status"},
	}
}

// InsufficientStockError 库存不足
type InsufficientStockError struct {
	BookID    uint
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for book %d: available=%d requested=%d", e.BookID, e.Available, e.Requested)
}

// NewInsufficientStockError 校验阶段和提交阶段共用
func NewInsufficientStockError(bookID uint, available, requested int) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeInsufficientStock,
		Message: fmt.Sprintf("图书 %d 库存不足: 剩余 %d 本, 需要 %d 本", bookID, available, requested),
		Details: map[string]interface{}{
			"book_id":   bookID,
			"available": available,
			"requested": requested,
		},
		Err: &InsufficientStockError{BookID: bookID, Available: available, Requested: requested},
	}
}

// InsufficientFundsError 余额不足(金额单位:分)
type InsufficientFundsError struct {
	Available int64
	Required  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available=%s required=%s",
		money.Format(e.Available), money.Format(e.Required))
}

// NewInsufficientFundsError 余额不足
func NewInsufficientFundsError(available, required int64) *apperrors.AppError {
	return &apperrors.AppError{
		Code: apperrors.ErrCodeInsufficientFunds,
		Message: fmt.Sprintf("余额不足: 可用 %s, 需要 %s",
			money.Format(available), money.Format(required)),
		Details: map[string]interface{}{
			"available": money.Format(available),
			"required":  money.Format(required),
		},
		Err: &InsufficientFundsError{Available: available, Required: required},
	}
}

// WriteConflictError 提交时发现数据已被并发修改,可重试
type WriteConflictError struct {
	Resource string // book | user | author | order
	ID       uint
	Cause    error
}

func (e *WriteConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("write conflict on %s %d: %v", e.Resource, e.ID, e.Cause)
	}
	return fmt.Sprintf("write conflict on %s %d", e.Resource, e.ID)
}

func (e *WriteConflictError) Unwrap() error {
	return e.Cause
}

// NewWriteConflictError 写冲突
func NewWriteConflictError(resource string, id uint, cause error) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeWriteConflict,
		Message: "数据已被并发修改，请重试",
		Details: map[string]interface{}{"resource": resource, "id": id, "retryable": true},
		Err:     &WriteConflictError{Resource: resource, ID: id, Cause: cause},
	}
}
