package user

import (
	apperrors "github.com/xiebiao/bookorder/pkg/errors"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = apperrors.ErrUserNotFound

	// ErrNegativeBalance 余额不能为负
	ErrNegativeBalance = apperrors.New(apperrors.ErrCodeInvalidParams, "余额不能为负数")

	// ErrEmailDuplicate 邮箱已被注册
	ErrEmailDuplicate = apperrors.New(apperrors.ErrCodeDuplicateEntry, "邮箱已被注册")
)
