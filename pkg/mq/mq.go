// Package mq 消息发布/消费
//
// 提供两种传输实现，对上层暴露同一组接口：
//   - AMQP（RabbitMQ）：Exchange + RoutingKey路由，手动Ack
//   - Kafka：Topic + Key分区，消费组手动提交Offset
//
// 消息体统一为JSON，每条消息带一个UUID作为message id，便于消费端去重和排查。
package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Publisher 消息发布者
type Publisher interface {
	// Publish 发布消息，message会被序列化为JSON
	// key在AMQP中是routing key，在Kafka中是分区key
	Publish(ctx context.Context, key string, message interface{}) error
	Close() error
}

// Handler 消息处理函数
// 返回nil表示处理完成（确认消息）；返回错误表示消息无法处理（AMQP进死信/丢弃，Kafka跳过）
// 可重试的失败应在Handler内部自行重试
type Handler func(ctx context.Context, msg Message) error

// Consumer 消息消费者
type Consumer interface {
	// Consume 阻塞消费直到ctx结束
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// Message 收到的消息
type Message struct {
	ID   string
	Key  string
	Body []byte
}

// Decode 反序列化消息体
func (m Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Body, v); err != nil {
		return fmt.Errorf("消息反序列化失败(id=%s): %w", m.ID, err)
	}
	return nil
}

func encode(message interface{}) (id string, body []byte, err error) {
	body, err = json.Marshal(message)
	if err != nil {
		return "", nil, fmt.Errorf("消息序列化失败: %w", err)
	}
	return uuid.NewString(), body, nil
}
