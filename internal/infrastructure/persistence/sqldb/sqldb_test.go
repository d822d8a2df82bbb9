package sqldb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/bookorder/internal/domain/author"
	"github.com/xiebiao/bookorder/internal/domain/book"
	"github.com/xiebiao/bookorder/internal/domain/order"
	"github.com/xiebiao/bookorder/internal/domain/user"
	"github.com/xiebiao/bookorder/internal/infrastructure/config"
	apperrors "github.com/xiebiao/bookorder/pkg/errors"
	"github.com/xiebiao/bookorder/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{
			Driver:      config.DriverSQLite,
			DSNOverride: filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)",
		},
	}
	db, cleanup, err := NewDB(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return db
}

type fixture struct {
	db      *gorm.DB
	tx      *TxManager
	books   book.Repository
	users   user.Repository
	authors author.Repository
	orders  order.Repository
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	return &fixture{
		db:      db,
		tx:      NewTxManager(db),
		books:   NewBookRepository(db),
		users:   NewUserRepository(db),
		authors: NewAuthorRepository(db),
		orders:  NewOrderRepository(db),
	}
}

func (f *fixture) seedBook(t *testing.T, price int64, stock int) *book.Book {
	t.Helper()
	a := author.NewAuthor("作者", "author@example.com")
	require.NoError(t, f.authors.Create(context.Background(), a))
	b, err := book.NewBook("测试图书", price, stock, a.ID)
	require.NoError(t, err)
	require.NoError(t, f.books.Create(context.Background(), b))
	return b
}

func TestBookRepository_LookupBooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1 := f.seedBook(t, 2500, 10)
	b2 := f.seedBook(t, 1000, 0)

	got, err := f.books.LookupBooks(ctx, []uint{b2.ID, b1.ID, b1.ID, 999})
	require.NoError(t, err)

	assert.Len(t, got, 2, "不存在的ID不出现在结果中")
	assert.Equal(t, book.Snapshot{ID: b1.ID, Title: "测试图书", Price: 2500, Stock: 10, AuthorID: b1.AuthorID}, got[b1.ID])
	assert.Equal(t, 0, got[b2.ID].Stock)

	empty, err := f.books.LookupBooks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBookRepository_DecrementStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seedBook(t, 2500, 3)

	t.Run("扣减成功", func(t *testing.T) {
		require.NoError(t, f.books.DecrementStock(ctx, b.ID, 2))
		got, err := f.books.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Stock)
	})

	t.Run("库存不足携带当前库存", func(t *testing.T) {
		err := f.books.DecrementStock(ctx, b.ID, 2)
		require.ErrorIs(t, err, apperrors.ErrInsufficientStock)

		var stockErr *order.InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, 1, stockErr.Available)
		assert.Equal(t, 2, stockErr.Requested)
	})

	t.Run("图书已消失", func(t *testing.T) {
		err := f.books.DecrementStock(ctx, 999, 1)
		assert.ErrorIs(t, err, apperrors.ErrWriteConflict)
		assert.True(t, apperrors.IsRetryable(err))
	})
}

func TestUserRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := user.NewUser("buyer@example.com", "买家", 10000)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, u))

	t.Run("邮箱重复", func(t *testing.T) {
		dup, _ := user.NewUser("buyer@example.com", "另一个", 0)
		assert.ErrorIs(t, f.users.Create(ctx, dup), user.ErrEmailDuplicate)
	})

	t.Run("扣款", func(t *testing.T) {
		require.NoError(t, f.users.DecrementBalance(ctx, u.ID, 2500))
		got, err := f.users.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(7500), got.Balance)
	})

	t.Run("余额不够扣视为写冲突", func(t *testing.T) {
		err := f.users.DecrementBalance(ctx, u.ID, 100000)
		require.ErrorIs(t, err, apperrors.ErrWriteConflict)

		var conflict *order.WriteConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, "user", conflict.Resource)

		got, _ := f.users.FindByID(ctx, u.ID)
		assert.Equal(t, int64(7500), got.Balance)
	})

	t.Run("用户不存在", func(t *testing.T) {
		_, err := f.users.FindByID(ctx, 999)
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})
}

func TestAuthorRepository_AddRevenue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := author.NewAuthor("作者甲", "a@example.com")
	require.NoError(t, f.authors.Create(ctx, a))

	require.NoError(t, f.authors.AddRevenue(ctx, a.ID, 5000))
	require.NoError(t, f.authors.AddRevenue(ctx, a.ID, 300))

	got, err := f.authors.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5300), got.TotalSales)

	assert.ErrorIs(t, f.authors.AddRevenue(ctx, 999, 1), apperrors.ErrWriteConflict)
}

func TestOrderRepository_CreateAndFind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seedBook(t, 2500, 10)

	plan := &order.Plan{
		BuyerID: 1,
		Status:  order.StatusPending,
		Total:   5000,
		Lines:   []order.PlanLine{{BookID: b.ID, AuthorID: b.AuthorID, Quantity: 2, UnitPrice: 2500, LineTotal: 5000}},
	}
	o := order.NewOrder("ORD1700000000000001", plan, time.Now())
	require.NoError(t, f.orders.Create(ctx, o))
	require.NotZero(t, o.ID)
	require.NotZero(t, o.Items[0].ID)

	got, err := f.orders.FindByOrderNo(ctx, "ORD1700000000000001")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, order.StatusPending, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(2500), got.Items[0].UnitPrice)
	assert.Equal(t, int64(5000), got.Items[0].LineTotal)

	t.Run("订单号重复视为写冲突", func(t *testing.T) {
		dup := order.NewOrder("ORD1700000000000001", plan, time.Now())
		assert.ErrorIs(t, f.orders.Create(ctx, dup), apperrors.ErrWriteConflict)
	})

	t.Run("订单不存在", func(t *testing.T) {
		_, err := f.orders.FindByID(ctx, 999)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestTxManager_Rollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seedBook(t, 2500, 5)

	err := f.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := f.books.DecrementStock(ctx, b.ID, 2); err != nil {
			return err
		}
		// 第二次扣减失败,整个事务回滚
		return f.books.DecrementStock(ctx, b.ID, 10)
	})
	require.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	got, err := f.books.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock, "失败的事务不能留下部分写入")
}

func TestTxManager_Commit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seedBook(t, 2500, 5)

	err := f.tx.Transaction(ctx, func(ctx context.Context) error {
		return f.books.DecrementStock(ctx, b.ID, 5)
	})
	require.NoError(t, err)

	got, _ := f.books.FindByID(ctx, b.ID)
	assert.Equal(t, 0, got.Stock)
}

func TestTxManager_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.tx.Transaction(ctx, func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *apperrors.AppError
	}{
		{"mysql死锁", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, apperrors.ErrWriteConflict},
		{"mysql锁等待超时", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout"}, apperrors.ErrWriteConflict},
		{"mysql其他错误", &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}, apperrors.ErrStorageUnavailable},
		{"pg序列化失败", &pgconn.PgError{Code: "40001"}, apperrors.ErrWriteConflict},
		{"pg死锁", &pgconn.PgError{Code: "40P01"}, apperrors.ErrWriteConflict},
		{"sqlite忙", errors.New("database is locked (5) (SQLITE_BUSY)"), apperrors.ErrWriteConflict},
		{"包装过的死锁", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1213}), apperrors.ErrWriteConflict},
		{"超时", context.DeadlineExceeded, apperrors.ErrStorageUnavailable},
		{"连接失败", errors.New("dial tcp 127.0.0.1:3306: connect: connection refused"), apperrors.ErrStorageUnavailable},
		{"领域错误原样返回", order.NewInsufficientStockError(1, 0, 1), apperrors.ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, "book", 1, "测试")
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "原始错误必须保留在错误链中")
		})
	}

	assert.NoError(t, classify(nil, "book", 1, "测试"))
}
