package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/xiebiao/bookorder/internal/infrastructure/config"
	"github.com/xiebiao/bookorder/pkg/logger"
	"github.com/xiebiao/bookorder/pkg/tracing"
)

// @title           Bookorder API
// @version         1.0
// @description     在线书店下单服务：原子扣减库存与余额、累加作者销售额，提交后异步发送回执
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "服务异常退出: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	log, closeLog, err := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    cfg.Log.Output,
		AddSource: cfg.Log.AddSource,
	})
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer closeLog()
	slog.SetDefault(log)

	if cfg.Tracing.Enabled {
		shutdownTracer, err := tracing.InitTracer(tracing.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			return fmt.Errorf("初始化追踪失败: %w", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Error("关闭追踪失败", slog.Any("error", err))
			}
		}()
	}

	app, cleanup, err := InitializeApp(cfg, log)
	if err != nil {
		return fmt.Errorf("初始化应用失败: %w", err)
	}
	defer cleanup()

	app.Dispatcher.Start()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      otelhttp.NewHandler(app.Router, "http.server"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP服务启动",
			slog.String("addr", srv.Addr),
			slog.String("mode", cfg.Server.Mode),
			slog.String("database", cfg.Database.Driver),
			slog.String("notification", cfg.Notification.Transport),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP服务异常: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("开始优雅关闭")

		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// 先停止接收请求,再等已提交订单的回执发完
		var errs error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("关闭HTTP服务失败: %w", err))
		}
		if err := app.Dispatcher.Close(shutdownCtx); err != nil {
			errs = errors.Join(errs, err)
		}
		return errs
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("服务已退出")
	return nil
}
