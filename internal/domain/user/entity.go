package user

import (
	"time"
)

// User 用户实体(买家)
// Email作为回执的收件地址;Balance为账户余额(分),不能为负
type User struct {
	ID        uint
	Email     string
	Nickname  string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser 创建新用户
func NewUser(email, nickname string, balance int64) (*User, error) {
	if balance < 0 {
		return nil, ErrNegativeBalance
	}
	now := time.Now()
	return &User{
		Email:     email,
		Nickname:  nickname,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
