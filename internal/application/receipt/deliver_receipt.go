package receipt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xiebiao/bookorder/internal/domain/receipt"
	"github.com/xiebiao/bookorder/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/bookorder/pkg/errors"
	"github.com/xiebiao/bookorder/pkg/metrics"
	"github.com/xiebiao/bookorder/pkg/tracing"
)

const tracerName = "bookorder/application/receipt"

// Options 投递参数
type Options struct {
	MaxAttempts  int           // 邮件发送最多尝试次数
	RetryBackoff time.Duration // 第n次重试前等待 n×RetryBackoff
}

// DeliverReceiptUseCase 渲染并发送下单回执
// 邮件服务经熔断器保护:SMTP持续故障时快速失败,不拖住worker
// 失败只记录日志和指标(NotificationFailure),下单早已提交,不做任何回滚
type DeliverReceiptUseCase struct {
	mailer  receipt.Mailer
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
	opts    Options
}

// NewDeliverReceiptUseCase 创建回执投递用例
func NewDeliverReceiptUseCase(mailer receipt.Mailer, breaker *circuitbreaker.CircuitBreaker, logger *slog.Logger, opts Options) *DeliverReceiptUseCase {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &DeliverReceiptUseCase{
		mailer:  mailer,
		breaker: breaker,
		logger:  logger,
		opts:    opts,
	}
}

// Execute 投递一张回执
// 返回的错误码固定为NotificationFailure,调用方(dispatcher、消息消费者)只需记录
func (uc *DeliverReceiptUseCase) Execute(ctx context.Context, r receipt.Receipt) (err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "DeliverReceipt")
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	log := uc.logger.With(
		slog.Uint64("order_id", uint64(r.OrderID)),
		slog.String("order_no", r.OrderNo),
	)

	msg, err := receipt.Render(r)
	if err != nil {
		return uc.fail(ctx, log, err, 0)
	}

	var attempt int
	for attempt = 1; attempt <= uc.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if wErr := wait(ctx, time.Duration(attempt-1)*uc.opts.RetryBackoff); wErr != nil {
				return uc.fail(ctx, log, wErr, attempt-1)
			}
		}

		err = uc.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
			return uc.mailer.Send(ctx, msg)
		})
		if err == nil {
			metrics.ReceiptsDeliveredTotal.WithLabelValues("success").Inc()
			log.InfoContext(ctx, "回执已发送", slog.String("to", msg.To), slog.Int("attempt", attempt))
			return nil
		}

		// 熔断打开时继续重试没有意义
		if errors.Is(err, circuitbreaker.ErrOpenState) {
			break
		}
		log.WarnContext(ctx, "回执发送失败", slog.Int("attempt", attempt), slog.Any("error", err))
	}

	return uc.fail(ctx, log, err, min(attempt, uc.opts.MaxAttempts))
}

func (uc *DeliverReceiptUseCase) fail(ctx context.Context, log *slog.Logger, cause error, attempts int) error {
	metrics.ReceiptsDeliveredTotal.WithLabelValues("failure").Inc()
	err := apperrors.WrapCode(cause, apperrors.ErrCodeNotificationFailure, "回执发送失败")
	log.ErrorContext(ctx, "回执投递失败",
		slog.Int("code", apperrors.ErrCodeNotificationFailure),
		slog.Int("attempts", attempts),
		slog.Any("error", cause),
	)
	return err
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
