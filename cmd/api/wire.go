//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
// 修改后运行 `wire gen ./cmd/api` 重新生成wire_gen.go

package main

import (
	"log/slog"

	"github.com/google/wire"

	apporder "github.com/xiebiao/bookorder/internal/application/order"
	appreceipt "github.com/xiebiao/bookorder/internal/application/receipt"
	"github.com/xiebiao/bookorder/internal/domain/receipt"
	"github.com/xiebiao/bookorder/internal/infrastructure/config"
	"github.com/xiebiao/bookorder/internal/infrastructure/notification"
	"github.com/xiebiao/bookorder/internal/infrastructure/persistence/sqldb"
	apihttp "github.com/xiebiao/bookorder/internal/interface/http"
	"github.com/xiebiao/bookorder/internal/interface/http/handler"
	"github.com/xiebiao/bookorder/internal/interface/http/middleware"
)

// repositorySet 仓储层和事务管理器
var repositorySet = wire.NewSet(
	sqldb.NewDB,
	sqldb.NewBookRepository,
	sqldb.NewUserRepository,
	sqldb.NewAuthorRepository,
	sqldb.NewOrderRepository,
	sqldb.NewTxManager,
	wire.Bind(new(apporder.TxManager), new(*sqldb.TxManager)),
	provideIdempotencyStore,
)

// notificationSet 回执投递:邮件发送器、熔断器、调度器
var notificationSet = wire.NewSet(
	provideMailer,
	provideCircuitBreaker,
	provideDeliverOptions,
	appreceipt.NewDeliverReceiptUseCase,
	wire.Bind(new(notification.Deliverer), new(*appreceipt.DeliverReceiptUseCase)),
	provideDispatcher,
	wire.Bind(new(receipt.Scheduler), new(*notification.Dispatcher)),
)

// applicationSet 应用层
var applicationSet = wire.NewSet(
	provideOrderOptions,
	apporder.NewPlaceOrderUseCase,
)

// interfaceSet HTTP接口层
var interfaceSet = wire.NewSet(
	provideJWTManager,
	middleware.NewAuthMiddleware,
	handler.NewOrderHandler,
	wire.Bind(new(handler.OrderPlacer), new(*apporder.PlaceOrderUseCase)),
	apihttp.NewRouter,
)

// InitializeApp 组装整个服务
// cleanup按创建的逆序释放:消息发布者、Redis、数据库
func InitializeApp(cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	wire.Build(
		repositorySet,
		notificationSet,
		applicationSet,
		interfaceSet,
		newApp,
	)
	return nil, nil, nil
}
