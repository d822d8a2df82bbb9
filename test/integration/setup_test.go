//go:build integration

// Package integration 在真实PostgreSQL上验证下单的并发语义
// 运行: go test -tags integration ./test/integration/...(需要Docker)
package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	apporder "github.com/xiebiao/bookorder/internal/application/order"
	"github.com/xiebiao/bookorder/internal/domain/author"
	"github.com/xiebiao/bookorder/internal/domain/book"
	"github.com/xiebiao/bookorder/internal/domain/receipt"
	"github.com/xiebiao/bookorder/internal/domain/user"
	"github.com/xiebiao/bookorder/internal/infrastructure/config"
	"github.com/xiebiao/bookorder/internal/infrastructure/persistence/sqldb"
	"github.com/xiebiao/bookorder/pkg/logger"
)

type recordingScheduler struct {
	mu    sync.Mutex
	count int
}

func (s *recordingScheduler) Schedule(context.Context, receipt.Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
}

type env struct {
	db        *gorm.DB
	books     book.Repository
	users     user.Repository
	authors   author.Repository
	useCase   *apporder.PlaceOrderUseCase
	scheduler *recordingScheduler
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("bookorder"),
		postgres.WithUsername("bookorder"),
		postgres.WithPassword("bookorder"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("停止容器失败: %v", err)
		}
	})

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{
			Driver:          config.DriverPostgres,
			Host:            host,
			Port:            port.Int(),
			User:            "bookorder",
			Password:        "bookorder",
			DBName:          "bookorder",
			SSLMode:         "disable",
			MaxOpenConns:    32,
			MaxIdleConns:    8,
			ConnMaxLifetime: time.Minute,
		},
	}
	db, cleanup, err := sqldb.NewDB(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	e := &env{
		db:        db,
		books:     sqldb.NewBookRepository(db),
		users:     sqldb.NewUserRepository(db),
		authors:   sqldb.NewAuthorRepository(db),
		scheduler: &recordingScheduler{},
	}
	e.useCase = apporder.NewPlaceOrderUseCase(
		e.books, e.users, e.authors, sqldb.NewOrderRepository(db), sqldb.NewTxManager(db),
		nil, e.scheduler, logger.Discard(),
		apporder.Options{Timeout: 10 * time.Second, MaxAttempts: 5, RetryBackoff: 5 * time.Millisecond},
	)
	return e
}

func (e *env) seedAuthor(t *testing.T, name string) *author.Author {
	t.Helper()
	a := author.NewAuthor(name, name+"@example.com")
	require.NoError(t, e.authors.Create(context.Background(), a))
	return a
}

func (e *env) seedBook(t *testing.T, authorID uint, price int64, stock int) *book.Book {
	t.Helper()
	b, err := book.NewBook("集成测试图书", price, stock, authorID)
	require.NoError(t, err)
	require.NoError(t, e.books.Create(context.Background(), b))
	return b
}

func (e *env) seedUser(t *testing.T, email string, balance int64) *user.User {
	t.Helper()
	u, err := user.NewUser(email, "买家", balance)
	require.NoError(t, err)
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

// sum 对单列求和
func (e *env) sum(t *testing.T, model interface{}, column string) int64 {
	t.Helper()
	var total int64
	require.NoError(t, e.db.Model(model).Select("COALESCE(SUM(" + column + "), 0)").Scan(&total).Error)
	return total
}
