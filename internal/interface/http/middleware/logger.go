package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/xiebiao/bookorder/pkg/errors"
	"github.com/xiebiao/bookorder/pkg/response"
	"github.com/xiebiao/bookorder/pkg/tracing"
)

// RequestIDHeader 请求ID,客户端传了就沿用
const RequestIDHeader = "X-Request-ID"

const slowRequestThreshold = 3 * time.Second

// Logger 请求日志中间件
// 不记录请求体和Authorization头
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		ctx := c.Request.Context()
		status := c.Writer.Status()
		attrs := []any{
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.String("client_ip", c.ClientIP()),
		}
		if traceID := tracing.ExtractTraceID(ctx); traceID != "" {
			attrs = append(attrs, slog.String("trace_id", traceID))
		}
		if uid := GetUserID(c); uid != 0 {
			attrs = append(attrs, slog.Uint64("user_id", uint64(uid)))
		}
		// response.Error把原始错误放进了c.Errors,内部原因只出现在日志里
		if err := c.Errors.Last(); err != nil {
			appErr := apperrors.GetAppError(err.Err)
			attrs = append(attrs, slog.Int("code", appErr.Code), slog.Any("error", err.Err))
		}

		switch {
		case status >= 500:
			logger.ErrorContext(ctx, "HTTP请求", attrs...)
		case status >= 400:
			logger.WarnContext(ctx, "HTTP请求", attrs...)
		default:
			logger.InfoContext(ctx, "HTTP请求", attrs...)
		}

		if latency > slowRequestThreshold {
			logger.WarnContext(ctx, "慢请求", attrs...)
		}
	}
}

// Recovery panic时记录日志并返回50000
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "请求处理panic",
			slog.String("request_id", c.GetString("request_id")),
			slog.String("path", c.Request.URL.Path),
			slog.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Code:    apperrors.ErrCodeInternal,
			Message: apperrors.ErrInternal.Message,
		})
	})
}
