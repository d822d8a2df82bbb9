package book

import (
	"context"
)

// Repository 图书仓储接口
// 所有方法都通过ctx参与调用方开启的事务
type Repository interface {
	// Create 创建图书
	Create(ctx context.Context, book *Book) error

	// FindByID 根据ID查找图书
	FindByID(ctx context.Context, id uint) (*Book, error)

	// LookupBooks 批量查询价格、库存、作者
	// 不存在的ID不会出现在结果中,也不算错误;由调用方判断
	LookupBooks(ctx context.Context, ids []uint) (map[uint]Snapshot, error)

	// DecrementStock 条件扣减库存: stock = stock - qty WHERE stock >= qty
	// 库存不足返回InsufficientStock(携带当前库存);行已消失返回WriteConflict
	DecrementStock(ctx context.Context, id uint, quantity int) error
}
