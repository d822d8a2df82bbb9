package order

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/bookorder/internal/domain/author"
	"github.com/xiebiao/bookorder/internal/domain/book"
	"github.com/xiebiao/bookorder/internal/domain/order"
	"github.com/xiebiao/bookorder/internal/domain/receipt"
	"github.com/xiebiao/bookorder/internal/domain/user"
	apperrors "github.com/xiebiao/bookorder/pkg/errors"
	"github.com/xiebiao/bookorder/pkg/metrics"
	"github.com/xiebiao/bookorder/pkg/money"
	"github.com/xiebiao/bookorder/pkg/tracing"
)

const tracerName = "bookorder/application/order"

// 下单状态机,记录在日志的stage字段
// Received → Validating → Committing → Committed → Notifying → Done,任一步可进入Failed
const (
	stageReceived   = "received"
	stageValidating = "validating"
	stageCommitting = "committing"
	stageCommitted  = "committed"
	stageNotifying  = "notifying"
	stageDone       = "done"
	stageFailed     = "failed"
)

// ErrIdempotencyInProgress 同一个幂等键的请求仍在处理
var ErrIdempotencyInProgress = apperrors.New(apperrors.ErrCodeWriteConflict, "相同幂等键的请求正在处理，请稍后重试")

// TxManager 事务边界,由基础设施层实现
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IdempotencyStore 幂等结果存储,可以为nil(未启用Redis)
type IdempotencyStore interface {
	Get(ctx context.Context, userID uint, key string) ([]byte, bool, error)
	Reserve(ctx context.Context, userID uint, key string) (bool, error)
	Save(ctx context.Context, userID uint, key string, value []byte) error
	Release(ctx context.Context, userID uint, key string) error
}

// Options 下单参数
type Options struct {
	Timeout      time.Duration // 整个下单(含重试)的超时,0表示不限制
	MaxAttempts  int           // 写冲突时最多尝试次数
	RetryBackoff time.Duration // 第n次重试前等待 n×RetryBackoff
}

// PlaceOrderUseCase 下单用例
//
// 流程:
//  1. 规整明细(合并重复图书、校验数量和状态)
//  2. 读取买家余额、批量查询目录
//  3. 纯计算的定价与校验(BuildPlan)
//  4. 一个事务内:按图书ID升序扣库存 → 扣买家余额 → 按作者ID升序累加销售额 → 写订单
//  5. 提交后异步投递回执,失败不影响下单结果
//
// 第2、3步在事务外执行,第4步的条件UPDATE在提交时重新校验库存和余额;
// 校验之后被并发修改的情况表现为WriteConflict,整体重试,重试时重新读取目录和余额
type PlaceOrderUseCase struct {
	bookRepo    book.Repository
	userRepo    user.Repository
	authorRepo  author.Repository
	orderRepo   order.Repository
	txManager   TxManager
	idempotency IdempotencyStore
	scheduler   receipt.Scheduler
	logger      *slog.Logger
	opts        Options
	now         func() time.Time
}

// NewPlaceOrderUseCase 创建下单用例
func NewPlaceOrderUseCase(
	bookRepo book.Repository,
	userRepo user.Repository,
	authorRepo author.Repository,
	orderRepo order.Repository,
	txManager TxManager,
	idempotency IdempotencyStore,
	scheduler receipt.Scheduler,
	logger *slog.Logger,
	opts Options,
) *PlaceOrderUseCase {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &PlaceOrderUseCase{
		bookRepo:    bookRepo,
		userRepo:    userRepo,
		authorRepo:  authorRepo,
		orderRepo:   orderRepo,
		txManager:   txManager,
		idempotency: idempotency,
		scheduler:   scheduler,
		logger:      logger,
		opts:        opts,
		now:         time.Now,
	}
}

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	UserID         uint                // 买家用户ID(从JWT中提取)
	IdempotencyKey string              // 可选,客户端重试时携带同一个键
	Items          []order.LineRequest // 订单明细
}

// PlaceOrderResponse 下单响应
type PlaceOrderResponse struct {
	OrderID     uint   `json:"order_id"`
	OrderNo     string `json:"order_no"`
	Total       int64  `json:"total"`
	TotalAmount string `json:"total_amount"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	Replayed    bool   `json:"replayed"`
}

// placed 一次成功提交的结果
type placed struct {
	order *order.Order
	plan  *order.Plan
	buyer *user.User
}

// Execute 执行下单用例
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, req PlaceOrderRequest) (resp *PlaceOrderResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.user_id", int64(req.UserID)),
		attribute.Int("order.lines", len(req.Items)),
	)

	metrics.OrdersInProgress.Inc()
	start := time.Now()
	defer func() {
		metrics.OrdersInProgress.Dec()
		metrics.OrderPlacementDuration.Observe(time.Since(start).Seconds())
		tracing.RecordError(span, err)
	}()

	log := uc.logger.With(
		slog.Uint64("user_id", uint64(req.UserID)),
		slog.String("trace_id", tracing.ExtractTraceID(ctx)),
	)
	log.DebugContext(ctx, "收到下单请求", slog.String("stage", stageReceived), slog.Int("lines", len(req.Items)))

	if uc.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.opts.Timeout)
		defer cancel()
	}

	lines, status, err := order.NormalizeLines(req.Items)
	if err != nil {
		uc.reject(ctx, log, err)
		return nil, err
	}

	useIdempotency := req.IdempotencyKey != "" && uc.idempotency != nil
	if useIdempotency {
		replay, err := uc.reserve(ctx, req)
		if err != nil {
			uc.reject(ctx, log, err)
			return nil, err
		}
		if replay != nil {
			metrics.OrderReplaysTotal.Inc()
			log.InfoContext(ctx, "幂等键命中,返回已有订单",
				slog.String("order_no", replay.OrderNo), slog.String("stage", stageDone))
			return replay, nil
		}
	}

	result, err := uc.placeWithRetry(ctx, log, req.UserID, lines, status)
	if err != nil {
		if useIdempotency {
			// ctx可能已超时,释放键不能跟着失败
			if relErr := uc.idempotency.Release(context.WithoutCancel(ctx), req.UserID, req.IdempotencyKey); relErr != nil {
				log.WarnContext(ctx, "释放幂等键失败", slog.Any("error", relErr))
			}
		}
		uc.reject(ctx, log, err)
		return nil, err
	}

	o := result.order
	metrics.OrdersPlacedTotal.Inc()
	metrics.OrderRevenueCentsTotal.Add(float64(o.Total))
	span.SetAttributes(attribute.String("order.no", o.OrderNo), attribute.Int64("order.total", o.Total))
	log.InfoContext(ctx, "下单成功",
		slog.String("stage", stageCommitted),
		slog.Uint64("order_id", uint64(o.ID)),
		slog.String("order_no", o.OrderNo),
		slog.String("total", money.Format(o.Total)),
	)

	resp = toResponse(o)

	if useIdempotency {
		if body, mErr := json.Marshal(resp); mErr == nil {
			if sErr := uc.idempotency.Save(context.WithoutCancel(ctx), req.UserID, req.IdempotencyKey, body); sErr != nil {
				// 订单已提交但结果没存下,处理中标记过期后同一个键的重试会再次下单
				log.ErrorContext(ctx, "保存幂等结果失败",
					slog.String("order_no", o.OrderNo), slog.Any("error", sErr))
			}
		}
	}

	// 提交之后的工作与请求解耦:Schedule立即返回,投递失败只记日志
	log.DebugContext(ctx, "提交回执任务", slog.String("stage", stageNotifying))
	uc.scheduler.Schedule(ctx, receipt.FromOrder(o, result.plan, result.buyer.Email))
	log.DebugContext(ctx, "下单流程结束", slog.String("stage", stageDone))

	return resp, nil
}

// reserve 查询或占用幂等键;返回非nil的响应表示命中已完成的请求
func (uc *PlaceOrderUseCase) reserve(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResponse, error) {
	stored, found, err := uc.idempotency.Get(ctx, req.UserID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if found {
		var resp PlaceOrderResponse
		if err := json.Unmarshal(stored, &resp); err != nil {
			return nil, apperrors.Wrap(err, "解析幂等结果失败")
		}
		resp.Replayed = true
		return &resp, nil
	}

	ok, err := uc.idempotency.Reserve(ctx, req.UserID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrIdempotencyInProgress
	}
	return nil, nil
}

// placeWithRetry 写冲突时整体重试,每次重试都重新查询和校验
func (uc *PlaceOrderUseCase) placeWithRetry(ctx context.Context, log *slog.Logger, buyerID uint, lines []order.Line, status order.Status) (*placed, error) {
	var lastErr error
	for attempt := 1; attempt <= uc.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.OrderRetriesTotal.Inc()
			log.InfoContext(ctx, "写冲突,重试下单",
				slog.Int("attempt", attempt), slog.Any("error", lastErr))
			if err := sleepCtx(ctx, time.Duration(attempt-1)*uc.opts.RetryBackoff); err != nil {
				return nil, storageUnavailable(err)
			}
		}

		result, err := uc.placeOnce(ctx, log, buyerID, lines, status)
		if err == nil {
			return result, nil
		}
		if !apperrors.HasCode(err, apperrors.ErrCodeWriteConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// placeOnce 一次完整的校验 + 提交
func (uc *PlaceOrderUseCase) placeOnce(ctx context.Context, log *slog.Logger, buyerID uint, lines []order.Line, status order.Status) (*placed, error) {
	buyer, plan, err := uc.validate(ctx, log, buyerID, lines, status)
	if err != nil {
		return nil, err
	}

	o, err := uc.commit(ctx, log, plan)
	if err != nil {
		return nil, err
	}
	return &placed{order: o, plan: plan, buyer: buyer}, nil
}

// validate 读取余额和目录,生成下单计划
func (uc *PlaceOrderUseCase) validate(ctx context.Context, log *slog.Logger, buyerID uint, lines []order.Line, status order.Status) (*user.User, *order.Plan, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Validate")
	defer span.End()
	log.DebugContext(ctx, "校验订单", slog.String("stage", stageValidating))

	buyer, err := uc.userRepo.FindByID(ctx, buyerID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, nil, err
	}

	catalog, err := uc.bookRepo.LookupBooks(ctx, order.BookIDs(lines))
	if err != nil {
		tracing.RecordError(span, err)
		return nil, nil, err
	}

	plan, err := order.BuildPlan(buyer.ID, status, lines, catalog, buyer.Balance)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, nil, err
	}
	span.SetAttributes(attribute.Int64("order.total", plan.Total))
	return buyer, plan, nil
}

// commit 记账和写订单在同一个事务里完成
// 加锁顺序固定:图书(ID升序) → 买家 → 作者(ID升序),并发订单之间不会形成环形等待
func (uc *PlaceOrderUseCase) commit(ctx context.Context, log *slog.Logger, plan *order.Plan) (*order.Order, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Commit")
	defer span.End()
	log.DebugContext(ctx, "提交订单", slog.String("stage", stageCommitting))

	o := order.NewOrder(order.GenerateOrderNo(), plan, uc.now())

	err := uc.txManager.Transaction(ctx, func(ctx context.Context) error {
		for _, line := range plan.LinesByBookID() {
			if err := uc.bookRepo.DecrementStock(ctx, line.BookID, line.Quantity); err != nil {
				return err
			}
		}

		if err := uc.userRepo.DecrementBalance(ctx, plan.BuyerID, plan.Total); err != nil {
			return err
		}

		for _, rev := range plan.RevenueByAuthor() {
			if err := uc.authorRepo.AddRevenue(ctx, rev.AuthorID, rev.Amount); err != nil {
				return err
			}
		}

		return uc.orderRepo.Create(ctx, o)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return o, nil
}

// reject 记录失败原因
func (uc *PlaceOrderUseCase) reject(ctx context.Context, log *slog.Logger, err error) {
	reason := rejectReason(err)
	metrics.OrdersRejectedTotal.WithLabelValues(reason).Inc()

	attrs := []any{slog.String("stage", stageFailed), slog.String("reason", reason), slog.Any("error", err)}
	if reason == metrics.ReasonUnavailable || reason == metrics.ReasonOther {
		log.ErrorContext(ctx, "下单失败", attrs...)
		return
	}
	log.InfoContext(ctx, "下单被拒绝", attrs...)
}

func rejectReason(err error) string {
	appErr := apperrors.GetAppError(err)
	switch code := appErr.Code; {
	case code == apperrors.ErrCodeInsufficientStock:
		return metrics.ReasonStock
	case code == apperrors.ErrCodeInsufficientFunds:
		return metrics.ReasonFunds
	case code == apperrors.ErrCodeWriteConflict:
		return metrics.ReasonConflict
	case code == apperrors.ErrCodeStorageUnavailable:
		return metrics.ReasonUnavailable
	case code >= 40900 && code < 41000, code == apperrors.ErrCodeUserNotFound:
		return metrics.ReasonValidation
	default:
		return metrics.ReasonOther
	}
}

func storageUnavailable(err error) error {
	return apperrors.WrapCode(err, apperrors.ErrCodeStorageUnavailable, "下单超时或已取消")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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

func toResponse(o *order.Order) *PlaceOrderResponse {
	return &PlaceOrderResponse{
		OrderID:     o.ID,
		OrderNo:     o.OrderNo,
		Total:       o.Total,
		TotalAmount: money.Format(o.Total),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
