// Package circuitbreaker 熔断器
//
// 用于保护不可靠的下游（SMTP服务器、消息代理）：连续失败达到阈值后熔断，
// 熔断期间直接返回ErrOpenState，超时后进入半开状态放行少量探测请求。
//
//	CLOSED --失败达到阈值--> OPEN --Timeout到期--> HALF_OPEN
//	HALF_OPEN --探测成功--> CLOSED
//	HALF_OPEN --探测失败--> OPEN
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xiebiao/bookorder/pkg/metrics"
)

// State 熔断器状态
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config 熔断器配置
type Config struct {
	// MaxRequests 半开状态允许通过的最大请求数
	MaxRequests uint32

	// Interval 关闭状态下统计窗口长度，到期清零计数
	Interval time.Duration

	// Timeout 打开状态持续时间，到期转半开
	Timeout time.Duration

	// ReadyToTrip 关闭状态下每次失败后调用，返回true则熔断
	// 为空时默认连续失败5次熔断
	ReadyToTrip func(counts Counts) bool

	// IsSuccessful 判断一次调用是否算成功；为空时err==nil即成功
	// 例如调用方取消(context.Canceled)不应计为下游故障
	IsSuccessful func(err error) bool
}

// Counts 统计数据
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// FailureRate 失败率
func (c Counts) FailureRate() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.TotalFailures) / float64(c.Requests)
}

func (c *Counts) reset() {
	*c = Counts{}
}

func (c *Counts) onSuccess() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) onFailure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// ConsecutiveFailures 返回"连续失败n次即熔断"的判定函数
func ConsecutiveFailures(n uint32) func(Counts) bool {
	return func(c Counts) bool {
		return c.ConsecutiveFailures >= n
	}
}

// ErrOpenState 熔断器打开（或半开且探测名额已满）
var ErrOpenState = errors.New("circuit breaker is open")

// CircuitBreaker 熔断器，可并发使用
type CircuitBreaker struct {
	name         string
	maxRequests  uint32
	interval     time.Duration
	timeout      time.Duration
	readyToTrip  func(Counts) bool
	isSuccessful func(error) bool

	mu            sync.Mutex
	state         State
	generation    uint64 // 每次状态切换递增，丢弃旧周期的结果
	counts        Counts
	expiry        time.Time
	onStateChange func(name string, from, to State)
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(name string, cfg Config) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		maxRequests:  cfg.MaxRequests,
		interval:     cfg.Interval,
		timeout:      cfg.Timeout,
		readyToTrip:  cfg.ReadyToTrip,
		isSuccessful: cfg.IsSuccessful,
		state:        StateClosed,
	}
	if cb.maxRequests == 0 {
		cb.maxRequests = 1
	}
	if cb.readyToTrip == nil {
		cb.readyToTrip = ConsecutiveFailures(5)
	}
	if cb.isSuccessful == nil {
		cb.isSuccessful = func(err error) bool { return err == nil }
	}
	if cb.interval > 0 {
		cb.expiry = time.Now().Add(cb.interval)
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(StateClosed))
	return cb
}

// Name 熔断器名称
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// SetStateChangeCallback 设置状态变化回调（在持有锁时调用，回调内不要再访问熔断器）
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Execute 在熔断器保护下执行req
func (cb *CircuitBreaker) Execute(req func() error) error {
	return cb.ExecuteContext(context.Background(), func(context.Context) error {
		return req()
	})
}

// ExecuteContext 同Execute，ctx已结束时不发起调用
func (cb *CircuitBreaker) ExecuteContext(ctx context.Context, req func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	generation, err := cb.beforeRequest()
	if err != nil {
		metrics.CircuitBreakerRequests.WithLabelValues(cb.name, "rejected").Inc()
		return err
	}

	err = req(ctx)
	ok := cb.isSuccessful(err)
	cb.afterRequest(generation, ok)

	if ok {
		metrics.CircuitBreakerRequests.WithLabelValues(cb.name, "success").Inc()
	} else {
		metrics.CircuitBreakerRequests.WithLabelValues(cb.name, "failure").Inc()
	}
	return err
}

func (cb *CircuitBreaker) beforeRequest() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, generation := cb.currentState(time.Now())
	if state == StateOpen {
		return generation, ErrOpenState
	}
	if state == StateHalfOpen && cb.counts.Requests >= cb.maxRequests {
		return generation, ErrOpenState
	}

	cb.counts.Requests++
	return generation, nil
}

func (cb *CircuitBreaker) afterRequest(before uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	state, generation := cb.currentState(now)
	if generation != before {
		return
	}

	if success {
		cb.counts.onSuccess()
		if state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.maxRequests {
			cb.setState(StateClosed, now)
		}
		return
	}

	cb.counts.onFailure()
	switch state {
	case StateClosed:
		if cb.readyToTrip(cb.counts) {
			cb.setState(StateOpen, now)
		}
	case StateHalfOpen:
		cb.setState(StateOpen, now)
	}
}

func (cb *CircuitBreaker) currentState(now time.Time) (State, uint64) {
	switch cb.state {
	case StateClosed:
		if !cb.expiry.IsZero() && cb.expiry.Before(now) {
			cb.counts.reset()
			cb.expiry = now.Add(cb.interval)
		}
	case StateOpen:
		if cb.expiry.Before(now) {
			cb.setState(StateHalfOpen, now)
		}
	}
	return cb.state, cb.generation
}

func (cb *CircuitBreaker) setState(state State, now time.Time) {
	if cb.state == state {
		return
	}

	prev := cb.state
	cb.state = state
	cb.generation++
	cb.counts.reset()

	switch state {
	case StateClosed:
		if cb.interval > 0 {
			cb.expiry = now.Add(cb.interval)
		} else {
			cb.expiry = time.Time{}
		}
	case StateOpen:
		cb.expiry = now.Add(cb.timeout)
	case StateHalfOpen:
		cb.expiry = time.Time{}
	}

	metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(float64(state))
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, prev, state)
	}
}

// State 当前状态
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, _ := cb.currentState(time.Now())
	return state
}

// Counts 当前统计窗口的计数
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.counts
}
