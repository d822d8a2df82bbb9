package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/bookorder/internal/application/order"
	"github.com/xiebiao/bookorder/internal/domain/order"
	"github.com/xiebiao/bookorder/internal/interface/http/dto"
	"github.com/xiebiao/bookorder/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/bookorder/pkg/errors"
	"github.com/xiebiao/bookorder/pkg/response"
)

// IdempotencyKeyHeader 客户端重试时携带同一个值
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// OrderPlacer 下单用例,由*apporder.PlaceOrderUseCase实现
type OrderPlacer interface {
	Execute(ctx context.Context, req apporder.PlaceOrderRequest) (*apporder.PlaceOrderResponse, error)
}

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	placer OrderPlacer
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(placer OrderPlacer) *OrderHandler {
	return &OrderHandler{placer: placer}
}

// PlaceOrder 下单
// @Summary      下单
// @Description  原子地扣减库存、扣减余额、累加作者销售额并写入订单；提交后异步发送回执邮件
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key header string false "幂等键"
// @Param        request body dto.PlaceOrderRequest true "订单明细"
// @Success      201 {object} response.Response{data=dto.PlaceOrderResponse} "下单成功"
// @Success      200 {object} response.Response{data=dto.PlaceOrderResponse} "幂等重放"
// @Failure      400 {object} response.Response "参数错误、图书不存在"
// @Failure      401 {object} response.Response "未登录"
// @Failure      404 {object} response.Response "买家不存在"
// @Failure      409 {object} response.Response "并发写冲突，可重试"
// @Failure      422 {object} response.Response "库存不足、余额不足"
// @Failure      503 {object} response.Response "存储不可用，可重试"
// @Router       /orders [post]
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.WrapCode(err, apperrors.ErrCodeBindError, "参数格式错误: "+err.Error()))
		return
	}

	key := c.GetHeader(IdempotencyKeyHeader)
	if len(key) > maxIdempotencyKeyLen {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "Idempotency-Key过长")
		return
	}

	items := make([]order.LineRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.LineRequest{
			BookID:   item.BookID,
			Quantity: item.Quantity,
			Status:   item.Status,
		}
	}

	result, err := h.placer.Execute(c.Request.Context(), apporder.PlaceOrderRequest{
		UserID:         middleware.MustGetUserID(c),
		IdempotencyKey: key,
		Items:          items,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	out := &dto.PlaceOrderResponse{
		OrderID:     result.OrderID,
		OrderNo:     result.OrderNo,
		Total:       result.Total,
		TotalAmount: result.TotalAmount,
		Status:      result.Status,
		CreatedAt:   result.CreatedAt,
		Replayed:    result.Replayed,
	}
	if result.Replayed {
		response.Success(c, out)
		return
	}
	response.Created(c, out)
}
