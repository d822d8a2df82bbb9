package notification

import (
	"context"
	"log/slog"

	"github.com/xiebiao/bookorder/internal/domain/receipt"
	apperrors "github.com/xiebiao/bookorder/pkg/errors"
	"github.com/xiebiao/bookorder/pkg/mq"
)

// Deliverer 同步投递一张回执,由application/receipt.DeliverReceiptUseCase实现
type Deliverer interface {
	Execute(ctx context.Context, r receipt.Receipt) error
}

// InlineHandler 在dispatcher的worker里直接发送邮件
func InlineHandler(d Deliverer) JobHandler {
	return d.Execute
}

// PublishHandler 把回执发布到消息队列,由cmd/worker消费后发送
// 发布失败同样只记录,不影响已经提交的订单
func PublishHandler(pub mq.Publisher, key string, logger *slog.Logger) JobHandler {
	return func(ctx context.Context, r receipt.Receipt) error {
		if err := pub.Publish(ctx, key, r); err != nil {
			logger.ErrorContext(ctx, "回执任务发布失败",
				slog.Int("code", apperrors.ErrCodeNotificationFailure),
				slog.String("key", key),
				slog.String("order_no", r.OrderNo),
				slog.Any("error", err),
			)
			return apperrors.WrapCode(err, apperrors.ErrCodeNotificationFailure, "回执任务发布失败")
		}
		return nil
	}
}

// ConsumeHandler 消息队列消费端:解码回执后同步投递
// 消息体无法解码时返回错误,AMQP丢弃该消息,Kafka跳过
func ConsumeHandler(d Deliverer) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		var r receipt.Receipt
		if err := msg.Decode(&r); err != nil {
			return err
		}
		return d.Execute(ctx, r)
	}
}
