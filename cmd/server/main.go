package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/HUI135/gc-endoscopy-room-sub001/config"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/api/handler"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/api/router"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/dto"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/model"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/repository"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/service"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/database"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/jwt"
	applogger "github.com/HUI135/gc-endoscopy-room-sub001/pkg/logger"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/metrics"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	flag.Parse()

	// 0. 本地开发读取 .env，文件不存在时忽略
	_ = godotenv.Load()

	// 1. 加载配置并监听 engine 段热更新
	var logger *zap.Logger
	cfg, live, err := config.Watch(*configPath, func(old, updated config.EngineConfig, err error) {
		if logger == nil {
			return
		}
		if err != nil {
			logger.Warn("engine 配置重载失败，保留旧值", zap.Error(err))
			return
		}
		logger.Info("engine 配置已更新",
			zap.Any("old", old),
			zap.Any("new", updated),
		)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err = applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3.1 建表：postgres 走 SQL 迁移文件，sqlite 走 AutoMigrate
	if cfg.Database.Driver == "sqlite" {
		if err := database.AutoMigrate(db, logger, model.AllModels()...); err != nil {
			logger.Fatal("数据库建表失败", zap.Error(err))
		}
	} else {
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
	}

	// 4. 连接 Redis（可选：连接失败时降级为进程内运行锁，限流关闭）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，运行锁降级为进程内实现", zap.Error(err))
		rdb = nil
	}
	var locker service.RunLocker
	if rdb != nil {
		locker = service.NewRunLocker(rdb, cfg.Redis.RunLockTTL, logger)
	} else {
		locker = service.NewLocalLocker()
	}

	// 5. 初始化 JWT 校验器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 指标
	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheus(nil, cfg.Metrics.Namespace)
		prom.Register()
		recorder = prom
	}

	// 7. 自定义校验 tag
	if err := dto.RegisterValidators(); err != nil {
		logger.Fatal("注册校验器失败", zap.Error(err))
	}

	// 8. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc, err := service.NewService(service.Deps{
		Config:  cfg,
		Live:    live,
		Repo:    repo,
		Locker:  locker,
		Metrics: recorder,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("初始化服务失败", zap.Error(err))
	}
	h := handler.NewHandler(svc)

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, db, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）；排班运行含持久化重试，写超时放宽
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
