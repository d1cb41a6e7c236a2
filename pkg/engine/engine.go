// Package engine 组合各分房组件，对外提供统一入口
//
// 引擎本身无状态：每个操作接收方案快照并返回新快照，调用方负责保存。
// 同一个快照可被并发读取；修改必须通过返回的新快照进行。
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/paiban/roomassign/pkg/assigner/constraint"
	"github.com/paiban/roomassign/pkg/assigner/heuristic"
	"github.com/paiban/roomassign/pkg/assigner/optimizer"
	"github.com/paiban/roomassign/pkg/assigner/scoring"
	"github.com/paiban/roomassign/pkg/assigner/solver"
	"github.com/paiban/roomassign/pkg/assigner/suggest"
	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/logger"
	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/report"
	"github.com/paiban/roomassign/pkg/rules"
	"github.com/paiban/roomassign/pkg/validator"
)

// Engine 分房引擎
type Engine struct {
	cfg        *rules.Config
	validator  *constraint.Validator
	scorer     *scoring.Scorer
	suggester  *suggest.Generator
	detector   *validator.ConflictDetector
	solver     *solver.GreedySolver
	optimizer  *optimizer.GeneticOptimizer
	heuristics *heuristic.Heuristics
	reporter   *report.Generator
	logger     *logger.EngineLogger
	now        func() time.Time
}

// Option 引擎选项
type Option func(*Engine)

// WithLogger 指定日志器
func WithLogger(l *logger.EngineLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock 指定时间来源（入住时间戳）
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New 创建引擎
func New(cfg *rules.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = rules.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg.Clone(),
		logger: logger.NewNopEngineLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.validator = constraint.NewDefaultValidator(e.logger)
	e.scorer = scoring.NewScorer(e.cfg, e.validator)
	e.suggester = suggest.NewGenerator(e.scorer, e.cfg.SuggestionLimit)
	e.detector = validator.NewConflictDetector(nil)
	e.solver = solver.NewGreedySolver(e.cfg, e.suggester, e.logger)
	e.solver.SetClock(e.now)
	e.optimizer = optimizer.NewGeneticOptimizer(e.cfg, e.logger)
	e.optimizer.SetClock(e.now)
	e.heuristics = heuristic.New(e.cfg, e.validator, e.logger)
	e.heuristics.SetClock(e.now)
	e.reporter = report.NewGenerator(e.cfg, e.scorer, e.detector)
	e.reporter.SetClock(e.now)
	return e, nil
}

// Config 返回引擎使用的规则副本
func (e *Engine) Config() *rules.Config {
	return e.cfg.Clone()
}

// NewAssignment 创建空方案
func (e *Engine) NewAssignment(hotels []*model.Hotel, clients []*model.Client) *model.Assignment {
	return model.NewAssignment(hotels, clients)
}

// Validate 校验客户能否放入指定房间
func (e *Engine) Validate(a *model.Assignment, clientID string, ref model.RoomRef) (constraint.Result, error) {
	client, room, hotel, err := e.resolve(a, clientID, ref)
	if err != nil {
		return constraint.Result{}, err
	}
	return e.validator.Validate(a, client, room, hotel), nil
}

// ScoreCandidate 为客户和房间打分
func (e *Engine) ScoreCandidate(a *model.Assignment, clientID string, ref model.RoomRef) (scoring.Candidate, error) {
	client, room, hotel, err := e.resolve(a, clientID, ref)
	if err != nil {
		return scoring.Candidate{}, err
	}
	return e.scorer.ScoreCandidate(a, client, room, hotel), nil
}

// QualityScore 方案质量分
func (e *Engine) QualityScore(a *model.Assignment) int {
	return e.scorer.QualityScore(a)
}

// Fitness 优化器适应度
func (e *Engine) Fitness(a *model.Assignment) float64 {
	return e.optimizer.Fitness(a)
}

// Suggest 为客户列出候选房间
func (e *Engine) Suggest(a *model.Assignment, clientID string) ([]suggest.Suggestion, error) {
	client, ok := a.Client(clientID)
	if !ok {
		return nil, errors.ClientNotFound(clientID)
	}
	return e.suggester.Suggest(a, client), nil
}

// FindBestRoom 返回客户得分最高的房间，没有时为 nil
func (e *Engine) FindBestRoom(a *model.Assignment, clientID string) (*suggest.Suggestion, error) {
	client, ok := a.Client(clientID)
	if !ok {
		return nil, errors.ClientNotFound(clientID)
	}
	return e.suggester.FindBestRoomForClient(a, client), nil
}

// FindConflicts 检测房间冲突
func (e *Engine) FindConflicts(a *model.Assignment) []validator.Conflict {
	return e.detector.FindConflicts(a)
}

// DetectAll 检测房间冲突和团队拆分
func (e *Engine) DetectAll(a *model.Assignment) []validator.Conflict {
	return e.detector.DetectAll(a)
}

// FindSeparatedGroups 查找被拆分的团队
func (e *Engine) FindSeparatedGroups(a *model.Assignment) []validator.SeparatedGroup {
	return validator.FindSeparatedGroups(a)
}

// ManualAssign 手动分房
//
// 未强制时先做约束校验，不通过返回 CONSTRAINT_VIOLATION 错误；
// 强制分房跳过校验，超订等问题以冲突形式返回。
func (e *Engine) ManualAssign(a *model.Assignment, clientID string, ref model.RoomRef, force bool) (*model.Assignment, []validator.Conflict, error) {
	start := time.Now()
	client, room, hotel, err := e.resolve(a, clientID, ref)
	if err != nil {
		return nil, nil, err
	}

	if !force {
		if current, placed := a.Locate(clientID); placed && current == ref {
			return a.Clone(), nil, nil
		}
		check := e.validator.Validate(a, client, room, hotel)
		if !check.IsValid {
			appErr := errors.ConstraintViolation(check.Violations[0].ConstraintName, strings.Join(check.Errors, "; ")).
				WithField("client_id", clientID).
				WithField("room", ref.String())
			for _, v := range check.Violations {
				appErr.WithField(string(v.ConstraintType), v.Message)
			}
			return nil, nil, appErr
		}
	}

	next, err := a.Assign(clientID, ref, model.AssignmentManual, e.now())
	if err != nil {
		return nil, nil, err
	}
	conflicts := e.detector.DetectForRoom(next, ref)
	if force && len(conflicts) > 0 {
		e.logger.With("client_id", clientID).ConstraintViolation("forced_assignment", ref.String())
	}
	e.logger.OperationComplete("manual_assign", time.Since(start), map[string]interface{}{
		"client_id": clientID,
		"room":      ref.String(),
		"force":     force,
		"conflicts": len(conflicts),
	})
	return next, conflicts, nil
}

// Unassign 取消分房
func (e *Engine) Unassign(a *model.Assignment, clientID string) (*model.Assignment, error) {
	next, err := a.Unassign(clientID)
	if err != nil {
		return nil, err
	}
	e.logger.With("client_id", clientID).OperationComplete("unassign", 0, nil)
	return next, nil
}

// Move 移动已分房客户，目标房间须通过约束校验
func (e *Engine) Move(a *model.Assignment, clientID string, to model.RoomRef) (*model.Assignment, error) {
	if _, ok := a.Locate(clientID); !ok {
		if _, exists := a.Client(clientID); !exists {
			return nil, errors.ClientNotFound(clientID)
		}
		return nil, errors.ClientNotAssigned(clientID)
	}
	next, _, err := e.ManualAssign(a, clientID, to, false)
	return next, err
}

// Swap 交换两位客户的房间
func (e *Engine) Swap(a *model.Assignment, clientA, clientB string) (*model.Assignment, error) {
	next, err := a.Swap(clientA, clientB, model.AssignmentManual, e.now())
	if err != nil {
		return nil, err
	}
	e.logger.OperationComplete("swap", 0, map[string]interface{}{"client_a": clientA, "client_b": clientB})
	return next, nil
}

// AutoAssign 为未分房客户自动分房；clients 为空时处理全部未分房客户
func (e *Engine) AutoAssign(a *model.Assignment, clients []*model.Client) (*model.Assignment, *solver.Result) {
	if len(clients) == 0 {
		clients = a.UnassignedClients()
	}
	return e.solver.AutoAssign(a, clients)
}

// Optimize 运行遗传优化
func (e *Engine) Optimize(ctx context.Context, a *model.Assignment, opts optimizer.Options) (*optimizer.Result, error) {
	return e.optimizer.Optimize(ctx, a, opts)
}

// AutoReuniteGroups 团队重聚
func (e *Engine) AutoReuniteGroups(a *model.Assignment) (*model.Assignment, *heuristic.ReuniteResult) {
	return e.heuristics.AutoReuniteGroups(a)
}

// AutoBalanceHotels 酒店均衡
func (e *Engine) AutoBalanceHotels(a *model.Assignment) (*model.Assignment, *heuristic.BalanceResult) {
	return e.heuristics.AutoBalanceHotels(a)
}

// Report 统计报告
func (e *Engine) Report(a *model.Assignment) *report.AssignmentReport {
	return e.reporter.GenerateAssignmentReport(a)
}

// DetailedReport 详细报告
func (e *Engine) DetailedReport(a *model.Assignment) *report.DetailedReport {
	return e.reporter.GenerateDetailedReport(a)
}

// ExecutiveSummary 执行摘要
func (e *Engine) ExecutiveSummary(a *model.Assignment) *report.ExecutiveSummary {
	return report.CreateExecutiveSummary(e.reporter.GenerateDetailedReport(a))
}

// resolve 查询操作所需的客户、房间和酒店
func (e *Engine) resolve(a *model.Assignment, clientID string, ref model.RoomRef) (*model.Client, *model.LogicalRoom, *model.Hotel, error) {
	client, ok := a.Client(clientID)
	if !ok {
		return nil, nil, nil, errors.ClientNotFound(clientID)
	}
	hotel, ok := a.Hotel(ref.HotelID)
	if !ok {
		return nil, nil, nil, errors.HotelNotFound(ref.HotelID)
	}
	room, ok := a.Room(ref.HotelID, ref.RoomID)
	if !ok {
		return nil, nil, nil, errors.RoomNotFound(ref.HotelID, ref.RoomID)
	}
	return client, room, hotel, nil
}
