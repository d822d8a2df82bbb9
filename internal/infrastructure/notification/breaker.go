package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xiebiao/bookorder/internal/infrastructure/config"
	"github.com/xiebiao/bookorder/pkg/circuitbreaker"
)

// NewMailerBreaker 创建保护邮件服务的熔断器
// 调用方取消(服务关闭)不计为邮件服务故障
func NewMailerBreaker(cfg config.CircuitBreakerConfig, logger *slog.Logger) *circuitbreaker.CircuitBreaker {
	cb := circuitbreaker.NewCircuitBreaker("mailer", circuitbreaker.Config{
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: circuitbreaker.ConsecutiveFailures(cfg.FailureThreshold),
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		logger.Warn("熔断器状态变化",
			slog.String("name", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return cb
}
