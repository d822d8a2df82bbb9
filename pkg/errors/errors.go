package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型（不要直接暴露驱动错误）
// 2. Message是用户友好的提示信息，必须指明出错的图书或金额
// 3. Details是机器可读的上下文（book_id、available等），随响应返回
// 4. Err是内部错误，仅记录到日志；领域错误会在这里放一个可被errors.As识别的明细结构
type AppError struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较
// errors.Is(err, ErrInsufficientStock) 对任意同码的AppError成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails 返回附带明细的副本（预定义错误是共享的，不能原地修改）
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// HTTPStatus 错误码 → HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Code == ErrCodeWriteConflict:
		return http.StatusConflict
	case e.Code == ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	case e.Code == ErrCodeForbidden:
		return http.StatusForbidden
	case e.Code >= 40100 && e.Code < 40200:
		return http.StatusUnauthorized
	case e.Code >= 40400 && e.Code < 40500:
		return http.StatusNotFound
	case e.Code >= 40900 && e.Code < 41000:
		return http.StatusBadRequest
	case e.Code >= 40000 && e.Code < 40100:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Retryable 调用方重试是否可能成功
func (e *AppError) Retryable() bool {
	return e.Code == ErrCodeWriteConflict || e.Code == ErrCodeStorageUnavailable
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 用途：将底层错误转换为业务错误，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// WrapCode 用指定错误码包装底层错误
func WrapCode(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（数据库异常、外部服务调用失败）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal            = 50000 // 内部错误
	ErrCodeDatabaseError       = 50001 // 数据库错误
	ErrCodeRedisError          = 50002 // Redis错误
	ErrCodeStorageUnavailable  = 50003 // 存储不可用（可重试）
	ErrCodeNotificationFailure = 50010 // 通知发送失败（只记日志，不返回给调用方）

	// 认证授权错误（40100-40199）
	ErrCodeUnauthorized = 40100 // 未登录
	ErrCodeInvalidToken = 40101 // Token无效
	ErrCodeTokenExpired = 40102 // Token过期
	ErrCodeForbidden    = 40104 // 无权限

	// 资源错误（40400-40499）
	ErrCodeNotFound      = 40400 // 资源不存在(通用)
	ErrCodeUserNotFound  = 40401 // 用户不存在
	ErrCodeBookNotFound  = 40402 // 图书不存在
	ErrCodeOrderNotFound = 40403 // 订单不存在

	// 业务规则错误（40000-40099）
	ErrCodeBusinessError      = 40000 // 业务错误(通用)
	ErrCodeInsufficientStock  = 40001 // 库存不足
	ErrCodeInvalidOrderStatus = 40002 // 订单状态非法
	ErrCodeInsufficientFunds  = 40006 // 余额不足
	ErrCodeDuplicateEntry     = 40009 // 重复记录(通用)
	ErrCodeWriteConflict      = 40010 // 并发写冲突（可重试）

	// 参数错误（40900-40999）
	ErrCodeInvalidParams   = 40900 // 参数错误
	ErrCodeBindError       = 40901 // 参数绑定失败
	ErrCodeUnknownBook     = 40902 // 订单引用了不存在的图书
	ErrCodeInvalidQuantity = 40903 // 购买数量非法
	ErrCodeInvalidStatus   = 40904 // 订单状态取值非法
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	// 系统错误
	ErrInternal            = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError       = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError          = New(ErrCodeRedisError, "缓存服务错误")
	ErrStorageUnavailable  = New(ErrCodeStorageUnavailable, "存储服务暂不可用，请稍后重试")
	ErrNotificationFailure = New(ErrCodeNotificationFailure, "通知发送失败")

	// 认证授权
	ErrUnauthorized = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired = New(ErrCodeTokenExpired, "Token已过期")
	ErrForbidden    = New(ErrCodeForbidden, "无权限访问")

	// 资源不存在
	ErrUserNotFound  = New(ErrCodeUserNotFound, "用户不存在")
	ErrBookNotFound  = New(ErrCodeBookNotFound, "图书不存在")
	ErrOrderNotFound = New(ErrCodeOrderNotFound, "订单不存在")

	// 业务规则
	ErrInsufficientStock  = New(ErrCodeInsufficientStock, "库存不足")
	ErrInsufficientFunds  = New(ErrCodeInsufficientFunds, "余额不足")
	ErrInvalidOrderStatus = New(ErrCodeInvalidOrderStatus, "订单状态不允许此操作")
	ErrWriteConflict      = New(ErrCodeWriteConflict, "数据已被并发修改，请重试")

	// 参数错误
	ErrInvalidParams   = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError       = New(ErrCodeBindError, "参数格式错误")
	ErrUnknownBook     = New(ErrCodeUnknownBook, "图书不存在")
	ErrInvalidQuantity = New(ErrCodeInvalidQuantity, "购买数量必须大于0")
	ErrInvalidStatus   = New(ErrCodeInvalidStatus, "订单状态取值非法")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// IsRetryable 判断错误是否值得重试（写冲突、存储暂不可用）
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable()
	}
	return false
}

// HasCode 判断错误链中是否存在指定错误码
func HasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
