package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xiebiao/bookorder/pkg/metrics"
)

const headerMessageID = "message-id"

// KafkaPublisher Kafka消息发布者
// 同步写入并等待所有副本确认，写入成功才算发布成功
type KafkaPublisher struct {
	w      *kafka.Writer
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher 创建Kafka发布者；相同key的消息落在同一分区，保证顺序
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	logger.Info("消息发布者已创建", "transport", "kafka", "topic", topic, "brokers", brokers)
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		topic:  topic,
		logger: logger,
	}
}

// Publish 发布消息
func (p *KafkaPublisher) Publish(ctx context.Context, key string, message interface{}) error {
	id, body, err := encode(message)
	if err != nil {
		return err
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   body,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: headerMessageID, Value: []byte(id)}},
	})
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	metrics.MessagesPublishedTotal.WithLabelValues("kafka", p.topic).Inc()
	p.logger.Debug("消息已发布", "transport", "kafka", "topic", p.topic, "key", key, "message_id", id)
	return nil
}

// Close 刷出缓冲并关闭
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// KafkaConsumer Kafka消费组成员
type KafkaConsumer struct {
	r      *kafka.Reader
	logger *slog.Logger
}

// NewKafkaConsumer 创建消费者；CommitInterval=0表示每条消息处理后同步提交
func NewKafkaConsumer(brokers []string, groupID, topic string, logger *slog.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0,
		}),
		logger: logger,
	}
}

// Consume 逐条拉取、处理、提交
// handler失败的消息记录日志后同样提交Offset，避免一条坏消息阻塞整个分区
func (c *KafkaConsumer) Consume(ctx context.Context, handler Handler) error {
	cfg := c.r.Config()
	c.logger.Info("开始消费消息", "transport", "kafka", "topic", cfg.Topic, "group", cfg.GroupID)

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("消费者退出", "transport", "kafka", "topic", cfg.Topic)
				return nil
			}
			return fmt.Errorf("拉取消息失败: %w", err)
		}

		start := time.Now()
		msg := Message{ID: headerValue(m.Headers, headerMessageID), Key: string(m.Key), Body: m.Value}
		if err := handler(ctx, msg); err != nil {
			c.logger.Error("消息处理失败，已跳过", "transport", "kafka",
				"message_id", msg.ID, "partition", m.Partition, "offset", m.Offset, "error", err)
			metrics.MessagesConsumedTotal.WithLabelValues("kafka", "failure").Inc()
		} else {
			metrics.MessagesConsumedTotal.WithLabelValues("kafka", "success").Inc()
		}
		metrics.MessageProcessingDuration.Observe(time.Since(start).Seconds())

		if err := c.r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("提交Offset失败: %w", err)
		}
	}
}

// Close 离开消费组
func (c *KafkaConsumer) Close() error {
	return c.r.Close()
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
