package main

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/bookorder/internal/application/order"
	appreceipt "github.com/xiebiao/bookorder/internal/application/receipt"
	"github.com/xiebiao/bookorder/internal/domain/receipt"
	"github.com/xiebiao/bookorder/internal/infrastructure/config"
	"github.com/xiebiao/bookorder/internal/infrastructure/notification"
	"github.com/xiebiao/bookorder/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookorder/pkg/circuitbreaker"
	"github.com/xiebiao/bookorder/pkg/jwt"
	"github.com/xiebiao/bookorder/pkg/mq"
)

// App 组装完成的服务
// Dispatcher需要在HTTP服务停止后单独关闭,让已提交订单的回执发完
type App struct {
	Router     *gin.Engine
	Dispatcher *notification.Dispatcher
}

func newApp(router *gin.Engine, dispatcher *notification.Dispatcher) *App {
	return &App{Router: router, Dispatcher: dispatcher}
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)
}

func provideOrderOptions(cfg *config.Config) apporder.Options {
	return apporder.Options{
		Timeout:      cfg.Order.Timeout,
		MaxAttempts:  cfg.Order.MaxAttempts,
		RetryBackoff: cfg.Order.RetryBackoff,
	}
}

// provideIdempotencyStore 未启用Redis时返回nil,下单忽略Idempotency-Key
func provideIdempotencyStore(cfg *config.Config, logger *slog.Logger) (apporder.IdempotencyStore, func(), error) {
	if !cfg.Redis.Enabled {
		logger.Warn("未启用Redis，Idempotency-Key不生效")
		return nil, func() {}, nil
	}
	client, cleanup, err := redis.NewClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return redis.NewIdempotencyStore(client, cfg.Order.IdempotencyTTL, cfg.Order.PendingTTL()), cleanup, nil
}

func provideMailer(cfg *config.Config, logger *slog.Logger) receipt.Mailer {
	return notification.NewMailer(cfg.Mailer, logger)
}

func provideCircuitBreaker(cfg *config.Config, logger *slog.Logger) *circuitbreaker.CircuitBreaker {
	return notification.NewMailerBreaker(cfg.CircuitBreaker, logger)
}

func provideDeliverOptions(cfg *config.Config) appreceipt.Options {
	return appreceipt.Options{
		MaxAttempts:  cfg.Notification.MaxAttempts,
		RetryBackoff: cfg.Notification.RetryBackoff,
	}
}

// provideDispatcher 按notification.transport选择回执的处理方式
//   - inline:   worker里直接发邮件
//   - rabbitmq: 发布到交换机,cmd/worker消费
//   - kafka:    写入topic,cmd/worker消费
func provideDispatcher(cfg *config.Config, deliverer notification.Deliverer, logger *slog.Logger) (*notification.Dispatcher, func(), error) {
	var (
		handler notification.JobHandler
		cleanup = func() {}
	)

	switch cfg.Notification.Transport {
	case config.TransportRabbitMQ:
		pub, err := mq.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.ExchangeType, logger)
		if err != nil {
			return nil, nil, err
		}
		handler = notification.PublishHandler(pub, cfg.Notification.RoutingKey, logger)
		cleanup = closer(pub, logger)
	case config.TransportKafka:
		pub := mq.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		handler = notification.PublishHandler(pub, cfg.Notification.RoutingKey, logger)
		cleanup = closer(pub, logger)
	default:
		handler = notification.InlineHandler(deliverer)
	}

	d := notification.NewDispatcher(handler, notification.Options{
		Workers:   cfg.Notification.Workers,
		QueueSize: cfg.Notification.QueueSize,
		Timeout:   cfg.Notification.Timeout,
	}, logger)
	return d, cleanup, nil
}

func closer(pub mq.Publisher, logger *slog.Logger) func() {
	return func() {
		if err := pub.Close(); err != nil {
			logger.Error("关闭消息发布者失败", slog.Any("error", err))
		}
	}
}
