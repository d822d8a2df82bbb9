package book

import (
	"time"
)

// Book 图书实体
// 下单核心只关心价格、库存和作者，其余目录信息由图书目录服务维护
// 价格使用int64存储"分"为单位(避免浮点数精度问题)
type Book struct {
	ID        uint
	Title     string
	Price     int64 // 单价(分)
	Stock     int   // 库存,不能为负
	AuthorID  uint  // 作者ID,销售额记到该作者名下
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBook 创建新图书(工厂方法)
func NewBook(title string, price int64, stock int, authorID uint) (*Book, error) {
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidStock
	}
	now := time.Now()
	return &Book{
		Title:     title,
		Price:     price,
		Stock:     stock,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Snapshot 目录查询结果:下单时刻的价格、库存、作者
// 订单明细里的单价来自这里,之后不再回读
type Snapshot struct {
	ID       uint
	Title    string
	Price    int64
	Stock    int
	AuthorID uint
}
