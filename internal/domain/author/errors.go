package author

import (
	apperrors "github.com/xiebiao/bookorder/pkg/errors"
)

// ErrAuthorNotFound 作者不存在
var ErrAuthorNotFound = apperrors.New(apperrors.ErrCodeNotFound, "作者不存在")
