package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/bookorder/pkg/errors"
)

// Response 统一响应结构
// 设计说明：
// 1. Code是业务错误码，客户端据此判断错误类型
// 2. HTTP状态码由错误码推导（见AppError.HTTPStatus）
// 3. 失败时Data携带错误明细（图书ID、可用库存、可用余额等）
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应（Code=0表示成功）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 资源创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应（自动处理AppError）
// 内部错误(appErr.Err)由调用方的日志中间件记录，这里只返回用户可见的部分
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)

	// 交给请求日志中间件输出
	_ = c.Error(err)

	var data interface{}
	if len(appErr.Details) > 0 {
		data = appErr.Details
	}

	c.JSON(appErr.HTTPStatus(), Response{
		Code:    appErr.Code,
		Message: appErr.Message,
		Data:    data,
	})
}

// ErrorWithCode 自定义错误码和消息
func ErrorWithCode(c *gin.Context, code int, message string) {
	c.JSON(apperrors.New(code, message).HTTPStatus(), Response{
		Code:    code,
		Message: message,
	})
}
