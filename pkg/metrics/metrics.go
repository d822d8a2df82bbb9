// Package metrics 基于Prometheus的指标
//
// 所有指标在包初始化时通过promauto注册到默认Registry，
// 由HTTP服务的/metrics端点（promhttp.Handler）暴露。
//
// 命名规范：
//   - Counter以_total结尾
//   - Histogram以单位结尾（_seconds）
//   - 标签只用有限取值（reason、result、method），不要用user_id、book_id
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP请求相关指标
var (
	// HTTPRequestsTotal 标签：method、path（路由模板）、status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)
)

// 下单指标
var (
	OrdersPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "下单成功总数",
		},
	)

	// OrdersRejectedTotal 标签reason取值见RejectReason
	OrdersRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_rejected_total",
			Help: "下单失败总数",
		},
		[]string{"reason"},
	)

	OrderPlacementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_placement_duration_seconds",
			Help:    "下单耗时（秒），包含重试",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	OrdersInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orders_in_progress",
			Help: "正在处理的下单请求数",
		},
	)

	OrderRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_retries_total",
			Help: "因写冲突触发的下单重试次数",
		},
	)

	OrderRevenueCentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_revenue_cents_total",
			Help: "已提交订单的累计金额（分）",
		},
	)

	OrderReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_idempotent_replays_total",
			Help: "命中幂等键直接返回的下单请求数",
		},
	)
)

// 回执通知指标
var (
	// ReceiptsScheduledTotal 标签result：queued | dropped
	ReceiptsScheduledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipts_scheduled_total",
			Help: "回执任务提交总数",
		},
		[]string{"result"},
	)

	// ReceiptsDeliveredTotal 标签result：success | failure
	ReceiptsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipts_delivered_total",
			Help: "回执投递总数",
		},
		[]string{"result"},
	)
)

// 熔断器指标
var (
	// CircuitBreakerState 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	// CircuitBreakerRequests 标签result：success | failure | rejected
	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)
)

// 消息队列指标
var (
	// MessagesPublishedTotal 标签：transport（amqp/kafka）、topic
	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"transport", "topic"},
	)

	// MessagesConsumedTotal 标签：transport、result（success/failure）
	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_consumed_total",
			Help: "消息消费总数",
		},
		[]string{"transport", "result"},
	)

	MessageProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "message_processing_duration_seconds",
			Help:    "消息处理耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
	)
)

// RejectReason 下单失败原因（orders_rejected_total的reason标签）
const (
	ReasonValidation  = "validation"
	ReasonStock       = "insufficient_stock"
	ReasonFunds       = "insufficient_funds"
	ReasonConflict    = "write_conflict"
	ReasonUnavailable = "storage_unavailable"
	ReasonOther       = "other"
)
