// RoomAssign 分房引擎服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/paiban/roomassign/internal/cache"
	"github.com/paiban/roomassign/internal/config"
	"github.com/paiban/roomassign/internal/database"
	"github.com/paiban/roomassign/internal/handler"
	"github.com/paiban/roomassign/internal/metrics"
	"github.com/paiban/roomassign/internal/middleware"
	"github.com/paiban/roomassign/internal/repository"
	"github.com/paiban/roomassign/internal/security"
	"github.com/paiban/roomassign/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// .env 可选，不存在时直接使用环境变量
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	format := "json"
	if cfg.IsDevelopment() {
		format = "console"
	}
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: format,
	})

	fmt.Printf("RoomAssign 分房引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// ========================================
	// 存储
	// ========================================

	var repo repository.AssignmentRepositoryInterface
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Warn().Err(err).Msg("数据库不可用，方案保存功能已禁用")
	} else {
		defer db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error().Err(err).Msg("数据库迁移失败")
			os.Exit(1)
		}
		repo = repository.NewAssignmentRepository(db)
	}

	var rulesSource handler.RulesSource
	redisClient := cache.NewClient(&cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	err = cache.Ping(ctx, redisClient)
	cancel()
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr()).Msg("Redis不可用，使用默认分房规则")
		redisClient.Close()
		redisClient = nil
	} else {
		defer redisClient.Close()
		rulesSource = cache.NewRulesStore(redisClient, cache.DefaultRulesKey, nil)
	}

	assignmentHandler := handler.NewAssignmentHandler(repo, rulesSource, cfg.Engine)

	// ========================================
	// 路由
	// ========================================

	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("/health", healthHandler(db, redisClient))

	// 版本信息端点
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// API 根路由
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "RoomAssign 分房引擎 API v1",
			"endpoints": {
				"assignments": {
					"create": "POST /api/v1/assignments",
					"save": "POST /api/v1/assignments/save",
					"load": "GET /api/v1/assignments/load?id=",
					"snapshots": "GET|DELETE /api/v1/assignments/snapshots",
					"validate": "POST /api/v1/assignments/validate",
					"suggest": "POST /api/v1/assignments/suggest",
					"assign": "POST /api/v1/assignments/assign",
					"unassign": "POST /api/v1/assignments/unassign",
					"move": "POST /api/v1/assignments/move",
					"swap": "POST /api/v1/assignments/swap",
					"auto_assign": "POST /api/v1/assignments/auto-assign",
					"optimize": "POST /api/v1/assignments/optimize",
					"reunite": "POST /api/v1/assignments/reunite",
					"balance": "POST /api/v1/assignments/balance",
					"conflicts": "POST /api/v1/assignments/conflicts",
					"report": "POST /api/v1/assignments/report",
					"export": "POST /api/v1/assignments/report/export"
				},
				"rules": "GET|PUT|DELETE /api/v1/rules",
				"constraints": "GET /api/v1/constraints/library"
			}
		}`))
	})

	assignmentHandler.Register(mux)

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 中间件
	// ========================================

	keys, err := security.ParseKeys(cfg.API.APIKeys)
	if err != nil {
		logger.Error().Err(err).Msg("API密钥配置无效")
		os.Exit(1)
	}
	if keys.Len() == 0 {
		logger.Warn().Msg("未配置API_KEYS，API不做认证")
	}

	// 执行顺序：requestID -> recovery -> logging -> cors -> auth -> rateLimit -> timeout -> handler
	var limiter *middleware.RateLimiter
	if cfg.API.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(float64(cfg.API.RateLimit))
	}
	root := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recovery,
		middleware.Logging,
		middleware.SecurityHeaders,
		middleware.CORS(cfg.API.CORS),
		middleware.APIKeyAuth(keys),
		middleware.RateLimit(limiter),
		middleware.Timeout(cfg.API.Timeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	statsCtx, stopStats := context.WithCancel(context.Background())
	defer stopStats()
	if db != nil {
		go collectDBStats(statsCtx, db)
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("env", cfg.App.Env).
			Str("version", Version).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Str("api_docs", fmt.Sprintf("http://localhost:%d/api/v1/", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// healthHandler 健康检查，依赖不可用时标记为 degraded
func healthHandler(db *database.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{
			"database": "disabled",
			"redis":    "disabled",
		}
		status := "ok"
		if db != nil {
			checks["database"] = "ok"
			if err := db.Health(ctx); err != nil {
				checks["database"] = err.Error()
				status = "degraded"
			}
		}
		if redisClient != nil {
			checks["redis"] = "ok"
			if err := cache.Ping(ctx, redisClient); err != nil {
				checks["redis"] = err.Error()
				status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  status,
			"service": "roomassign",
			"checks":  checks,
		})
	}
}

// collectDBStats 定期上报连接池状态
func collectDBStats(ctx context.Context, db *database.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			metrics.SetDBConnections(stats.InUse, stats.Idle)
		}
	}
}
