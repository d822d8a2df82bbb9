// Package notification 下单回执的异步投递
//
// Dispatcher实现receipt.Scheduler:有界队列 + 固定数量的worker。
// 每个任务交给一个JobHandler处理,可以是进程内直接发邮件,
// 也可以是发布到RabbitMQ/Kafka由cmd/worker消费。
package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xiebiao/bookorder/internal/domain/receipt"
	"github.com/xiebiao/bookorder/pkg/metrics"
)

// JobHandler 处理一张回执;返回的错误只用于日志
type JobHandler func(ctx context.Context, r receipt.Receipt) error

// Options 调度参数
type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // 单个任务超时
}

type job struct {
	ctx     context.Context
	receipt receipt.Receipt
}

// Dispatcher 回执调度器
// Schedule从不阻塞:队列满或已关闭时直接丢弃并记录
type Dispatcher struct {
	handler JobHandler
	opts    Options
	logger  *slog.Logger

	queue     chan job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
}

// NewDispatcher 创建调度器,需要调用Start启动worker
func NewDispatcher(handler JobHandler, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	return &Dispatcher{
		handler: handler,
		opts:    opts,
		logger:  logger,
		queue:   make(chan job, opts.QueueSize),
	}
}

// Start 启动worker,重复调用无效
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.opts.Workers; i++ {
			d.wg.Add(1)
			go d.run(i)
		}
		d.logger.Info("回执调度器已启动",
			slog.Int("workers", d.opts.Workers), slog.Int("queue_size", d.opts.QueueSize))
	})
}

// Schedule 提交回执任务
// 任务脱离请求的取消信号(context.WithoutCancel),但保留ctx中的trace等值
func (d *Dispatcher) Schedule(ctx context.Context, r receipt.Receipt) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(r, "调度器已关闭")
		return
	}

	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), receipt: r}:
		metrics.ReceiptsScheduledTotal.WithLabelValues("queued").Inc()
	default:
		d.drop(r, "队列已满")
	}
}

func (d *Dispatcher) drop(r receipt.Receipt, reason string) {
	metrics.ReceiptsScheduledTotal.WithLabelValues("dropped").Inc()
	d.logger.Warn("回执任务被丢弃",
		slog.String("reason", reason),
		slog.Uint64("order_id", uint64(r.OrderID)),
		slog.String("order_no", r.OrderNo),
	)
}

// Close 停止接收新任务,等待队列中已有任务处理完
// ctx到期时不再等待,返回ctx的错误
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	// 未Start过也要把队列里的任务处理掉
	d.Start()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("回执调度器已停止")
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("等待回执任务完成超时"), ctx.Err())
	}
}

func (d *Dispatcher) run(worker int) {
	defer d.wg.Done()
	for j := range d.queue {
		d.process(worker, j)
	}
}

func (d *Dispatcher) process(worker int, j job) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("回执任务panic",
				slog.Int("worker", worker),
				slog.Uint64("order_id", uint64(j.receipt.OrderID)),
				slog.Any("panic", p),
			)
		}
	}()

	ctx := j.ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	if err := d.handler(ctx, j.receipt); err != nil {
		d.logger.Debug("回执任务失败",
			slog.Int("worker", worker),
			slog.String("order_no", j.receipt.OrderNo),
			slog.Any("error", err),
		)
	}
}
