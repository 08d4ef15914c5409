package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-itam/internal/config"
	"github.com/bitfantasy/nimo-itam/internal/itam/entity"
	"github.com/bitfantasy/nimo-itam/internal/itam/handler"
	"github.com/bitfantasy/nimo-itam/internal/itam/repository"
	"github.com/bitfantasy/nimo-itam/internal/itam/service"
	"github.com/bitfantasy/nimo-itam/internal/middleware"
	"github.com/bitfantasy/nimo-itam/internal/shared/maintenance"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	zapLogger.Info("Starting nimo-itam service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// AutoMigrate核心表
	if err := db.AutoMigrate(
		&entity.Asset{},
		&entity.DecompositionPlan{},
		&entity.DecompositionItem{},
		&entity.TransferRecord{},
		&entity.SparePart{},
		&entity.SparePartTransaction{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}

	// 手动补充迁移（序列和索引AutoMigrate不覆盖）
	migrationSQL := []string{
		"CREATE SEQUENCE IF NOT EXISTS decomposition_code_seq",
		"CREATE INDEX IF NOT EXISTS idx_decomposition_plans_source ON decomposition_plans(source_asset_id)",
		"CREATE INDEX IF NOT EXISTS idx_decomposition_plans_status ON decomposition_plans(status)",
		"CREATE INDEX IF NOT EXISTS idx_decomposition_items_plan ON decomposition_items(plan_id)",
		"CREATE INDEX IF NOT EXISTS idx_transfer_records_target ON transfer_records(target_asset_id)",
		"CREATE INDEX IF NOT EXISTS idx_spare_part_transactions_part ON spare_part_transactions(spare_part_id)",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			zapLogger.Warn("Migration SQL warning (may already exist)", zap.String("sql", sql), zap.Error(err))
		}
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis（执行互斥锁用；未配置时退化为进程内锁）
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = initRedis(cfg.Redis)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			zapLogger.Warn("Redis unavailable, falling back to in-process execution lock", zap.Error(err))
			rdb = nil
		}
	}

	// 初始化维保系统客户端（REPAIR动作送修工单）
	var maintClient *maintenance.Client
	if cfg.Maintenance.BaseURL != "" {
		maintClient = maintenance.NewClient(cfg.Maintenance.BaseURL, cfg.Maintenance.APIKey)
		zapLogger.Info("Maintenance client initialized", zap.String("base_url", cfg.Maintenance.BaseURL))
	}

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, maintClient, cfg, zapLogger)
	handlers := handler.NewHandlers(services, repos)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 拆解计划（读开放给所有登录用户，写需要decomposition:write权限）
		decompositions := authorized.Group("/decompositions")
		{
			decompositions.GET("", h.Decomposition.List)
			decompositions.GET("/compatible-assets", h.Decomposition.CompatibleAssets)
			decompositions.GET("/:id", h.Decomposition.Get)

			write := decompositions.Group("", middleware.RequirePermission("decomposition:write"))
			{
				write.POST("", h.Decomposition.Create)
				write.PUT("/:id", h.Decomposition.Update)
				write.DELETE("/:id", h.Decomposition.Delete)
				write.POST("/:id/approve", h.Decomposition.Approve)
				write.POST("/:id/cancel", h.Decomposition.Cancel)
				write.POST("/:id/execute", h.Decomposition.Execute)
			}
		}

		// 资产（只读）
		assets := authorized.Group("/assets")
		{
			assets.GET("", h.Asset.List)
			assets.GET("/:id", h.Asset.Get)
			assets.GET("/:id/transfers", h.Asset.ListTransfers)
		}

		// 备件库存（只读）
		spareParts := authorized.Group("/spare-parts")
		{
			spareParts.GET("", h.SparePart.List)
			spareParts.GET("/:id", h.SparePart.Get)
			spareParts.GET("/:id/transactions", h.SparePart.ListTransactions)
		}
	}
}
