// Package handler 提供分房引擎的 HTTP 接口
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/paiban/roomassign/internal/config"
	"github.com/paiban/roomassign/internal/metrics"
	"github.com/paiban/roomassign/internal/middleware"
	"github.com/paiban/roomassign/internal/repository"
	"github.com/paiban/roomassign/pkg/engine"
	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/logger"
	"github.com/paiban/roomassign/pkg/rules"
)

// RulesSource 规则来源（cache.RulesStore 实现）
type RulesSource interface {
	Get(ctx context.Context) (*rules.Config, error)
	Put(ctx context.Context, cfg *rules.Config) error
	Reset(ctx context.Context) error
}

// AssignmentHandler 分房处理器
//
// 每个请求按当前规则新建引擎，方案快照随请求体传入、随响应返回。
type AssignmentHandler struct {
	repo      repository.AssignmentRepositoryInterface
	rules     RulesSource
	engineCfg config.EngineConfig
	metrics   *metrics.MetricsRegistry
	now       func() time.Time
}

// Option 处理器选项
type Option func(*AssignmentHandler)

// WithMetrics 指定指标注册表
func WithMetrics(reg *metrics.MetricsRegistry) Option {
	return func(h *AssignmentHandler) { h.metrics = reg }
}

// WithClock 指定时间来源
func WithClock(now func() time.Time) Option {
	return func(h *AssignmentHandler) { h.now = now }
}

// NewAssignmentHandler 创建分房处理器
//
// repo 为空时保存与读取接口返回错误；src 为空时使用只读的默认规则。
func NewAssignmentHandler(repo repository.AssignmentRepositoryInterface, src RulesSource, engineCfg config.EngineConfig, opts ...Option) *AssignmentHandler {
	if src == nil {
		src = staticRules{cfg: rules.DefaultConfig()}
	}
	h := &AssignmentHandler{
		repo:      repo,
		rules:     src,
		engineCfg: engineCfg,
		metrics:   metrics.GetRegistry(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register 注册路由
func (h *AssignmentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/assignments", h.Create)
	mux.HandleFunc("/api/v1/assignments/save", h.Save)
	mux.HandleFunc("/api/v1/assignments/load", h.Load)
	mux.HandleFunc("/api/v1/assignments/snapshots", h.Snapshots)
	mux.HandleFunc("/api/v1/assignments/validate", h.Validate)
	mux.HandleFunc("/api/v1/assignments/suggest", h.Suggest)
	mux.HandleFunc("/api/v1/assignments/assign", h.Assign)
	mux.HandleFunc("/api/v1/assignments/unassign", h.Unassign)
	mux.HandleFunc("/api/v1/assignments/move", h.Move)
	mux.HandleFunc("/api/v1/assignments/swap", h.Swap)
	mux.HandleFunc("/api/v1/assignments/auto-assign", h.AutoAssign)
	mux.HandleFunc("/api/v1/assignments/optimize", h.Optimize)
	mux.HandleFunc("/api/v1/assignments/reunite", h.Reunite)
	mux.HandleFunc("/api/v1/assignments/balance", h.Balance)
	mux.HandleFunc("/api/v1/assignments/conflicts", h.Conflicts)
	mux.HandleFunc("/api/v1/assignments/report", h.Report)
	mux.HandleFunc("/api/v1/assignments/report/export", h.Export)
	mux.HandleFunc("/api/v1/rules", h.Rules)
	mux.HandleFunc("/api/v1/constraints/library", h.ConstraintLibrary)
}

// engine 按当前规则创建引擎
func (h *AssignmentHandler) engine(ctx context.Context) (*engine.Engine, *errors.AppError) {
	cfg, err := h.rules.Get(ctx)
	if err != nil {
		return nil, toAppError(err)
	}
	h.engineCfg.Apply(cfg)

	log := logger.NewEngineLogger()
	if id := middleware.GetRequestID(ctx); id != "" {
		log = log.With("request_id", id)
	}
	e, err := engine.New(cfg, engine.WithLogger(log), engine.WithClock(h.now))
	if err != nil {
		return nil, toAppError(err)
	}
	return e, nil
}

// record 记录操作指标
func (h *AssignmentHandler) record(op string, start time.Time, err error) {
	h.metrics.RecordOperation(op, err == nil, time.Since(start))
}

// decodePost 校验请求方法并解析请求体
func decodePost(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return false
	}
	return true
}

// toAppError 转换为 AppError
func toAppError(err error) *errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	if err == context.DeadlineExceeded || err == context.Canceled {
		return errors.Wrap(err, errors.CodeTimeout, "操作超时")
	}
	return errors.Wrap(err, errors.CodeInternal, "服务器内部错误")
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	if err.HTTPStatus >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("code", string(err.Code)).Msg("请求处理失败")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
		"fields":  err.Fields,
	})
}

// staticRules 未配置 Redis 时使用的只读规则
type staticRules struct {
	cfg *rules.Config
}

func (s staticRules) Get(context.Context) (*rules.Config, error) {
	return s.cfg.Clone(), nil
}

func (s staticRules) Put(context.Context, *rules.Config) error {
	return errors.New(errors.CodeCacheError, "规则存储不可用")
}

func (s staticRules) Reset(context.Context) error {
	return errors.New(errors.CodeCacheError, "规则存储不可用")
}
