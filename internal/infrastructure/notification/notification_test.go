package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookorder/internal/domain/receipt"
	"github.com/xiebiao/bookorder/internal/infrastructure/config"
	"github.com/xiebiao/bookorder/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/bookorder/pkg/errors"
	"github.com/xiebiao/bookorder/pkg/logger"
	"github.com/xiebiao/bookorder/pkg/mq"
)

type collector struct {
	mu   sync.Mutex
	seen []receipt.Receipt
	errs []error
}

func (c *collector) handle(ctx context.Context, r receipt.Receipt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, r)
	c.errs = append(c.errs, ctx.Err())
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func TestDispatcher_DeliversScheduledJobs(t *testing.T) {
	c := &collector{}
	d := NewDispatcher(c.handle, Options{Workers: 2, QueueSize: 10, Timeout: time.Second}, logger.Discard())
	d.Start()

	for i := 1; i <= 5; i++ {
		d.Schedule(context.Background(), receipt.Receipt{OrderID: uint(i)})
	}
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 5, c.count())
}

func TestDispatcher_DetachedFromRequest(t *testing.T) {
	c := &collector{}
	d := NewDispatcher(c.handle, Options{Workers: 1, QueueSize: 1}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Schedule(ctx, receipt.Receipt{OrderID: 1})
	require.NoError(t, d.Close(context.Background()))

	require.Equal(t, 1, c.count())
	assert.NoError(t, c.errs[0], "请求取消不能影响回执任务")
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	c := &collector{}
	// 未Start,队列里最多放一个任务
	d := NewDispatcher(c.handle, Options{Workers: 1, QueueSize: 1}, logger.Discard())

	d.Schedule(context.Background(), receipt.Receipt{OrderID: 1})
	d.Schedule(context.Background(), receipt.Receipt{OrderID: 2})

	require.NoError(t, d.Close(context.Background()))
	require.Equal(t, 1, c.count())
	assert.Equal(t, uint(1), c.seen[0].OrderID)

	// 关闭后提交直接丢弃,不能panic
	assert.NotPanics(t, func() { d.Schedule(context.Background(), receipt.Receipt{OrderID: 3}) })
	assert.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_JobTimeout(t *testing.T) {
	deadlines := make(chan bool, 1)
	handler := func(ctx context.Context, r receipt.Receipt) error {
		_, ok := ctx.Deadline()
		deadlines <- ok
		return nil
	}
	d := NewDispatcher(handler, Options{Workers: 1, QueueSize: 1, Timeout: time.Second}, logger.Discard())
	d.Start()
	d.Schedule(context.Background(), receipt.Receipt{OrderID: 1})
	require.NoError(t, d.Close(context.Background()))

	assert.True(t, <-deadlines)
}

func TestDispatcher_RecoversPanic(t *testing.T) {
	c := &collector{}
	handler := func(ctx context.Context, r receipt.Receipt) error {
		if r.OrderID == 1 {
			panic("boom")
		}
		return c.handle(ctx, r)
	}
	d := NewDispatcher(handler, Options{Workers: 1, QueueSize: 2}, logger.Discard())
	d.Schedule(context.Background(), receipt.Receipt{OrderID: 1})
	d.Schedule(context.Background(), receipt.Receipt{OrderID: 2})
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 1, c.count(), "panic之后worker继续处理后续任务")
}

func TestDispatcher_CloseTimeout(t *testing.T) {
	release := make(chan struct{})
	handler := func(ctx context.Context, r receipt.Receipt) error {
		<-release
		return nil
	}
	d := NewDispatcher(handler, Options{Workers: 1, QueueSize: 1}, logger.Discard())
	d.Start()
	d.Schedule(context.Background(), receipt.Receipt{OrderID: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

type fakePublisher struct {
	key  string
	body []byte
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, key string, message interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.key = key
	body, err := json.Marshal(message)
	p.body = body
	return err
}

func (p *fakePublisher) Close() error { return nil }

type fakeDeliverer struct {
	got []receipt.Receipt
	err error
}

func (d *fakeDeliverer) Execute(_ context.Context, r receipt.Receipt) error {
	d.got = append(d.got, r)
	return d.err
}

func TestPublishAndConsumeHandlers(t *testing.T) {
	pub := &fakePublisher{}
	r := receipt.Receipt{
		OrderID: 9,
		OrderNo: "ORD1",
		Contact: "buyer@example.com",
		Lines:   []receipt.Line{{BookID: 1, Quantity: 2, UnitPrice: 2500, LineTotal: 5000}},
		Total:   5000,
	}

	require.NoError(t, PublishHandler(pub, "receipt.created", logger.Discard())(context.Background(), r))
	assert.Equal(t, "receipt.created", pub.key)

	d := &fakeDeliverer{}
	err := ConsumeHandler(d)(context.Background(), mq.Message{ID: "m1", Body: pub.body})
	require.NoError(t, err)
	require.Len(t, d.got, 1)
	assert.Equal(t, r.OrderNo, d.got[0].OrderNo)
	assert.Equal(t, r.Lines, d.got[0].Lines)

	t.Run("消息体损坏", func(t *testing.T) {
		err := ConsumeHandler(d)(context.Background(), mq.Message{ID: "m2", Body: []byte("{")})
		assert.Error(t, err)
	})

	t.Run("发布失败", func(t *testing.T) {
		failing := &fakePublisher{err: errors.New("broker down")}
		err := PublishHandler(failing, "receipt.created", logger.Discard())(context.Background(), r)
		assert.ErrorIs(t, err, apperrors.ErrNotificationFailure)
	})
}

func TestInlineHandler(t *testing.T) {
	d := &fakeDeliverer{err: errors.New("smtp down")}
	err := InlineHandler(d)(context.Background(), receipt.Receipt{OrderID: 1})
	assert.EqualError(t, err, "smtp down")
	assert.Len(t, d.got, 1)
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	raw := string(buildMessage("shop@example.com", receipt.Message{
		To:      "buyer@example.com",
		Subject: receipt.Subject,
		Body:    "hello",
	}, now))

	assert.Contains(t, raw, "From: shop@example.com\r\n")
	assert.Contains(t, raw, "To: buyer@example.com\r\n")
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nhello"))
}

func TestSMTPMailer_Unreachable(t *testing.T) {
	// 占用一个端口再关闭,保证连接被拒绝
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	m := NewSMTPMailer(config.MailerConfig{Host: "127.0.0.1", Port: addr.Port, From: "shop@example.com"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = m.Send(ctx, receipt.Message{To: "buyer@example.com", Subject: "s", Body: "b"})
	assert.ErrorContains(t, err, "连接SMTP服务器失败")
}

func TestNewMailer(t *testing.T) {
	assert.IsType(t, &LogMailer{}, NewMailer(config.MailerConfig{Driver: "log"}, logger.Discard()))
	assert.IsType(t, &SMTPMailer{}, NewMailer(config.MailerConfig{Driver: "smtp", Host: "localhost", Port: 25}, logger.Discard()))

	lm := NewLogMailer(logger.Discard())
	assert.NoError(t, lm.Send(context.Background(), receipt.Message{To: "a@b.c"}))
}

func TestNewMailerBreaker(t *testing.T) {
	cb := NewMailerBreaker(config.CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Minute}, logger.Discard())
	fail := func(context.Context) error { return errors.New("smtp down") }
	cancelled := func(context.Context) error { return context.Canceled }

	// 调用方取消不计入失败
	for i := 0; i < 3; i++ {
		_ = cb.ExecuteContext(context.Background(), cancelled)
	}
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())

	_ = cb.ExecuteContext(context.Background(), fail)
	_ = cb.ExecuteContext(context.Background(), fail)
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())
}
