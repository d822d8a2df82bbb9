package user

import (
	"context"
)

// Repository 用户仓储接口
type Repository interface {
	// Create 创建用户
	Create(ctx context.Context, user *User) error

	// FindByID 根据ID查找用户(含当前余额)
	FindByID(ctx context.Context, id uint) (*User, error)

	// DecrementBalance 条件扣款: balance = balance - amount WHERE balance >= amount
	// 影响行数为0说明余额在校验之后被并发修改,返回WriteConflict
	DecrementBalance(ctx context.Context, id uint, amount int64) error
}
