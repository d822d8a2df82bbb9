package author

import (
	"time"
)

// Author 作者
// TotalSales为累计销售额(分),每笔订单只增加该作者自己图书的明细金额
type Author struct {
	ID         uint
	Name       string
	Email      string
	TotalSales int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewAuthor 创建作者
func NewAuthor(name, email string) *Author {
	now := time.Now()
	return &Author{
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
