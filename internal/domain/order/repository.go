package order

import (
	"context"
)

// Repository 订单仓储接口
type Repository interface {
	// Create 创建订单(包含订单明细),必须在下单事务中调用
	Create(ctx context.Context, order *Order) error

	// FindByID 根据ID查找订单(包含订单明细)
	FindByID(ctx context.Context, id uint) (*Order, error)

	// FindByOrderNo 根据订单号查找订单
	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)
}
