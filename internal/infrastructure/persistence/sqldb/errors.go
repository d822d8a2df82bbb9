package sqldb

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/xiebiao/bookorder/internal/domain/order"
	apperrors "github.com/xiebiao/bookorder/pkg/errors"
)

// MySQL错误码
const (
	mysqlDeadlock    = 1213 // Deadlock found when trying to get lock
	mysqlLockTimeout = 1205 // Lock wait timeout exceeded
	mysqlDuplicate   = 1062 // Duplicate entry
)

// Postgres SQLSTATE
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// classify 驱动错误 → 应用错误
//   - 已经是AppError的原样返回(例如fn里返回的领域错误)
//   - 死锁、锁等待超时、序列化失败、SQLite忙、唯一键冲突 → WriteConflict,可重试
//   - ctx取消/超时、连接失败及其他 → StorageUnavailable
func classify(err error, resource string, id uint, message string) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.WrapCode(err, apperrors.ErrCodeStorageUnavailable, message+": 请求已取消或超时")
	}

	if isConflict(err) {
		return order.NewWriteConflictError(resource, id, err)
	}

	return apperrors.WrapCode(err, apperrors.ErrCodeStorageUnavailable, message)
}

func isConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDeadlock, mysqlLockTimeout, mysqlDuplicate:
			return true
		}
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
			return true
		}
		return false
	}

	// modernc sqlite的错误只能按文本识别:SQLITE_BUSY / SQLITE_LOCKED / UNIQUE
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// isDuplicateError 判断是否为唯一索引冲突
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "Duplicate entry") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
