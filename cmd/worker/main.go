// worker 消费回执消息并发送邮件
// notification.transport为rabbitmq或kafka时,API服务只负责发布,发送在这里完成
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	appreceipt "github.com/xiebiao/bookorder/internal/application/receipt"
	"github.com/xiebiao/bookorder/internal/infrastructure/config"
	"github.com/xiebiao/bookorder/internal/infrastructure/notification"
	"github.com/xiebiao/bookorder/pkg/logger"
	"github.com/xiebiao/bookorder/pkg/mq"
	"github.com/xiebiao/bookorder/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker异常退出: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	log, closeLog, err := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    cfg.Log.Output,
		AddSource: cfg.Log.AddSource,
	})
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer closeLog()
	log = log.With(slog.String("component", "receipt-worker"))
	slog.SetDefault(log)

	if cfg.Tracing.Enabled {
		shutdownTracer, err := tracing.InitTracer(tracing.Options{
			ServiceName: cfg.Tracing.ServiceName + "-worker",
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			return fmt.Errorf("初始化追踪失败: %w", err)
		}
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	consumer, err := newConsumer(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			log.Error("关闭消费者失败", slog.Any("error", err))
		}
	}()

	deliver := appreceipt.NewDeliverReceiptUseCase(
		notification.NewMailer(cfg.Mailer, log),
		notification.NewMailerBreaker(cfg.CircuitBreaker, log),
		log,
		appreceipt.Options{
			MaxAttempts:  cfg.Notification.MaxAttempts,
			RetryBackoff: cfg.Notification.RetryBackoff,
		},
	)
	handler := notification.ConsumeHandler(deliver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 逐条消费:AMQP设置了PrefetchCount=1,Kafka按分区顺序提交Offset
	log.Info("回执worker启动", slog.String("transport", cfg.Notification.Transport))
	if err := consumer.Consume(ctx, withTimeout(handler, cfg.Notification.Timeout)); err != nil {
		return err
	}
	log.Info("回执worker已退出")
	return nil
}

func newConsumer(cfg *config.Config, log *slog.Logger) (mq.Consumer, error) {
	switch cfg.Notification.Transport {
	case config.TransportRabbitMQ:
		return mq.NewAMQPConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.ExchangeType,
			cfg.RabbitMQ.Queue, []string{cfg.Notification.RoutingKey}, log)
	case config.TransportKafka:
		return mq.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, log), nil
	default:
		return nil, fmt.Errorf("notification.transport=%q时回执在API进程内发送，不需要启动worker", cfg.Notification.Transport)
	}
}

// withTimeout 每条消息单独设置超时,和API进程内的dispatcher一致
func withTimeout(h mq.Handler, timeout time.Duration) mq.Handler {
	if timeout <= 0 {
		return h
	}
	return func(ctx context.Context, msg mq.Message) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return h(ctx, msg)
	}
}
