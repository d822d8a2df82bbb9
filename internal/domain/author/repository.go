package author

import (
	"context"
)

// Repository 作者仓储接口
type Repository interface {
	Create(ctx context.Context, author *Author) error

	FindByID(ctx context.Context, id uint) (*Author, error)

	// AddRevenue 累加销售额: total_sales = total_sales + amount
	// 作者行不存在返回WriteConflict(图书在校验后被改挂到了不存在的作者)
	AddRevenue(ctx context.Context, id uint, amount int64) error
}
