package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/paiban/roomassign/pkg/assigner/heuristic"
	"github.com/paiban/roomassign/pkg/assigner/optimizer"
	"github.com/paiban/roomassign/pkg/assigner/solver"
	"github.com/paiban/roomassign/pkg/assigner/suggest"
	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/report"
	"github.com/paiban/roomassign/pkg/validator"
)

// CreateRequest 创建方案请求
type CreateRequest struct {
	Hotels  []*HotelInput   `json:"hotels"`
	Clients []*model.Client `json:"clients"`
}

// HotelInput 酒店输入；未指定 allow_mixed_gender 时使用规则中的默认值
type HotelInput struct {
	model.Hotel
	AllowMixedGender *bool `json:"allow_mixed_gender,omitempty"`
}

// ToHotel 转换为酒店
func (in *HotelInput) ToHotel(defaultMixed bool) *model.Hotel {
	h := in.Hotel
	if h.TotalCapacity == 0 {
		h.TotalCapacity = h.ConfiguredCapacity()
	}
	h.AllowMixedGender = defaultMixed
	if in.AllowMixedGender != nil {
		h.AllowMixedGender = *in.AllowMixedGender
	}
	return &h
}

// AssignmentRequest 仅携带方案的请求
type AssignmentRequest struct {
	Assignment *model.Assignment `json:"assignment"`
}

// PlacementRequest 指定客户和房间的请求
type PlacementRequest struct {
	Assignment *model.Assignment `json:"assignment"`
	ClientID   string            `json:"client_id"`
	HotelID    string            `json:"hotel_id"`
	RoomID     string            `json:"room_id"`
	Force      bool              `json:"force,omitempty"`
}

// Ref 目标房间
func (p *PlacementRequest) Ref() model.RoomRef {
	return model.RoomRef{HotelID: p.HotelID, RoomID: p.RoomID}
}

// ClientRequest 指定客户的请求
type ClientRequest struct {
	Assignment *model.Assignment `json:"assignment"`
	ClientID   string            `json:"client_id"`
}

// SwapRequest 交换请求
type SwapRequest struct {
	Assignment *model.Assignment `json:"assignment"`
	ClientA    string            `json:"client_a"`
	ClientB    string            `json:"client_b"`
}

// AutoAssignRequest 自动分房请求；ClientIDs 为空时处理全部未分房客户
type AutoAssignRequest struct {
	Assignment *model.Assignment `json:"assignment"`
	ClientIDs  []string          `json:"client_ids,omitempty"`
}

// OptimizeRequest 优化请求
type OptimizeRequest struct {
	Assignment *model.Assignment `json:"assignment"`
	Iterations int               `json:"iterations,omitempty"`
	Seed       int64             `json:"seed,omitempty"`
}

// AssignmentResponse 返回新方案的响应
type AssignmentResponse struct {
	Assignment *model.Assignment    `json:"assignment"`
	Conflicts  []validator.Conflict `json:"conflicts,omitempty"`
}

// SuggestResponse 候选房间响应
type SuggestResponse struct {
	ClientID    string               `json:"client_id"`
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

// AutoAssignResponse 自动分房响应
type AutoAssignResponse struct {
	Assignment *model.Assignment `json:"assignment"`
	Result     *solver.Result    `json:"result"`
}

// OptimizeResponse 优化响应
type OptimizeResponse struct {
	Assignment     *model.Assignment `json:"assignment"`
	Fitness        float64           `json:"fitness"`
	InitialFitness float64           `json:"initial_fitness"`
	Improvement    float64           `json:"improvement"`
	Generations    int               `json:"generations"`
	DurationMs     int64             `json:"duration_ms"`
	StoppedEarly   bool              `json:"stopped_early"`
}

// ReuniteResponse 团队重聚响应
type ReuniteResponse struct {
	Assignment *model.Assignment        `json:"assignment"`
	Result     *heuristic.ReuniteResult `json:"result"`
}

// BalanceResponse 酒店均衡响应
type BalanceResponse struct {
	Assignment *model.Assignment        `json:"assignment"`
	Result     *heuristic.BalanceResult `json:"result"`
}

// ConflictsResponse 冲突检测响应
type ConflictsResponse struct {
	Valid           bool                       `json:"valid"`
	Blocking        bool                       `json:"blocking"` // 存在严重冲突，方案不能确认
	Conflicts       []validator.Conflict       `json:"conflicts"`
	Summary         validator.Summary          `json:"summary"`
	SeparatedGroups []validator.SeparatedGroup `json:"separated_groups"`
}

// ReportResponse 报告响应
type ReportResponse struct {
	Report  *report.DetailedReport   `json:"report"`
	Summary *report.ExecutiveSummary `json:"summary"`
	Text    string                   `json:"text"`
}

// Create 由酒店和客户创建空方案
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !decodePost(w, r, &req) {
		return
	}
	if appErr := validateCreateRequest(&req); appErr != nil {
		respondError(w, appErr)
		return
	}

	e, appErr := h.engine(r.Context())
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	defaultMixed := e.Config().DefaultAllowMixedGender
	hotels := make([]*model.Hotel, len(req.Hotels))
	for i, in := range req.Hotels {
		hotels[i] = in.ToHotel(defaultMixed)
	}
	respondJSON(w, http.StatusCreated, AssignmentResponse{Assignment: e.NewAssignment(hotels, req.Clients)})
}

// validateCreateRequest 验证创建请求
func validateCreateRequest(req *CreateRequest) *errors.AppError {
	ve := &errors.ValidationErrors{}

	if len(req.Hotels) == 0 {
		ve.Add("hotels", "酒店列表不能为空")
	}
	hotelIDs := make(map[string]bool, len(req.Hotels))
	for _, hotel := range req.Hotels {
		switch {
		case hotel == nil || hotel.ID == "":
			ve.Add("hotels", "酒店ID不能为空")
		case hotelIDs[hotel.ID]:
			ve.Add("hotels", "酒店ID重复: "+hotel.ID)
		default:
			hotelIDs[hotel.ID] = true
		}
		if hotel == nil {
			continue
		}
		for _, rc := range hotel.RoomConfig {
			if rc.Count < 0 || rc.Capacity < 0 {
				ve.Add("hotels", "房型数量和容量不能为负: "+hotel.ID)
			}
		}
		switch configured := hotel.ConfiguredCapacity(); {
		case hotel.TotalCapacity < 0:
			ve.Add("hotels", "酒店总容量不能为负: "+hotel.ID)
		case hotel.TotalCapacity > 0 && configured > hotel.TotalCapacity:
			ve.Add("hotels", fmt.Sprintf("酒店 %s 房型床位 %d 超过总容量 %d", hotel.ID, configured, hotel.TotalCapacity))
		}
	}

	clientIDs := make(map[string]bool, len(req.Clients))
	for _, c := range req.Clients {
		switch {
		case c == nil || c.ID == "":
			ve.Add("clients", "客户ID不能为空")
		case clientIDs[c.ID]:
			ve.Add("clients", "客户ID重复: "+c.ID)
		default:
			clientIDs[c.ID] = true
			if err := c.Validate(); err != nil {
				ve.Add("clients", err.Message)
			}
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// requireAssignment 检查请求是否携带方案及方案数据是否一致
func requireAssignment(a *model.Assignment) *errors.AppError {
	if a == nil {
		return errors.InvalidInput("assignment", "不能为空")
	}
	if err := a.Validate(); err != nil {
		return toAppError(err)
	}
	return nil
}

// Validate 校验客户能否入住指定房间
func (h *AssignmentHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req PlacementRequest
	if !decodePost(w, r, &req) {
		return
	}
	if appErr := requireAssignment(req.Assignment); appErr != nil {
		respondError(w, appErr)
		return
	}

	e, appErr := h.engine(r.Context())
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	result, err := e.Validate(req.Assignment, req.ClientID, req.Ref())
	if err != nil {
		respondError(w, toAppError(err))
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Suggest 为客户列出候选房间
func (h *AssignmentHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if !decodePost(w, r, &req) {
		return
	}
	if appErr := requireAssignment(req.Assignment); appErr != nil {
		respondError(w, appErr)
		return
	}

	e, appErr := h.engine(r.Context())
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	suggestions, err := e.Suggest(req.Assignment, req.ClientID)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}
	respondJSON(w, http.StatusOK, SuggestResponse{ClientID: req.ClientID, Suggestions: suggestions})
}

// Assign 手动分房
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req PlacementRequest
	if !decodePost(w, r, &req) {
		return
	}
	h.mutate(w, r, "manual_assign", req.Assignment, func(ctx context.Context) (*AssignmentResponse, error) {
		e, appErr := h.engine(ctx)
		if appErr != nil {
			return nil, appErr
		}
		a, conflicts, err := e.ManualAssign(req.Assignment, req.ClientID, req.Ref(), req.Force)
		if err != nil {
			return nil, err
		}
		return &AssignmentResponse{Assignment: a, Conflicts: conflicts}, nil
	})
}

// Unassign 取消分房
func (h *AssignmentHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if !decodePost(w, r, &req) {
		return
	}
	h.mutate(w, r, "unassign", req.Assignment, func(ctx context.Context) (*AssignmentResponse, error) {
		e, appErr := h.engine(ctx)
		if appErr != nil {
			return nil, appErr
		}
		a, err := e.Unassign(req.Assignment, req.ClientID)
		if err != nil {
			return nil, err
		}
		return &AssignmentResponse{Assignment: a}, nil
	})
}

// Move 移动客户到其他房间
func (h *AssignmentHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req PlacementRequest
	if !decodePost(w, r, &req) {
		return
	}
	h.mutate(w, r, "move", req.Assignment, func(ctx context.Context) (*AssignmentResponse, error) {
		e, appErr := h.engine(ctx)
		if appErr != nil {
			return nil, appErr
		}
		a, err := e.Move(req.Assignment, req.ClientID, req.Ref())
		if err != nil {
			return nil, err
		}
		return &AssignmentResponse{Assignment: a}, nil
	})
}

// Swap 交换两位客户的房间
func (h *AssignmentHandler) Swap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if !decodePost(w, r, &req) {
		return
	}
	h.mutate(w, r, "swap", req.Assignment, func(ctx context.Context) (*AssignmentResponse, error) {
		e, appErr := h.engine(ctx)
		if appErr != nil {
			return nil, appErr
		}
		a, err := e.Swap(req.Assignment, req.ClientA, req.ClientB)
		if err != nil {
			return nil, err
		}
		return &AssignmentResponse{Assignment: a}, nil
	})
}

// mutate 执行单次修改操作并记录指标
func (h *AssignmentHandler) mutate(w http.ResponseWriter, r *http.Request, op string, a *model.Assignment,
	fn func(ctx context.Context) (*AssignmentResponse, error)) {
	if appErr := requireAssignment(a); appErr != nil {
		respondError(w, appErr)
		return
	}

	start := time.Now()
	resp, err := fn(r.Context())
	h.record(op, start, err)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// AutoAssign 自动分房
func (h *AssignmentHandler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	var req AutoAssignRequest
	if !decodePost(w, r, &req) {
		return
	}
	if appErr := requireAssignment(req.Assignment); appErr != nil {
		respondError(w, appErr)
		return
	}

	var clients []*model.Client
	for _, id := range req.ClientIDs {
		c, ok := req.Assignment.Client(id)
		if !ok {
			respondError(w, errors.ClientNotFound(id))
			return
		}
		clients = append(clients, c)
	}

	e, appErr := h.engine(r.Context())
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	start := time.Now()
	a, result := e.AutoAssign(req.Assignment, clients)
	h.record("auto_assign", start, nil)
	respondJSON(w, http.StatusOK, AutoAssignResponse{Assignment: a, Result: result})
}

// Optimize 运行遗传优化；超时后返回当前最优方案
func (h *AssignmentHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if !decodePost(w, r, &req) {
		return
	}
	if appErr := requireAssignment(req.Assignment); appErr != nil {
		respondError(w, appErr)
		return
	}
	if req.Iterations < 0 {
		respondError(w, errors.InvalidInput("iterations", "不能为负数"))
		return
	}

	ctx := r.Context()
	if h.engineCfg.OptimizeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.engineCfg.OptimizeTimeout)
		defer cancel()
	}

	e, appErr := h.engine(ctx)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	start := time.Now()
	result, err := e.Optimize(ctx, req.Assignment, optimizer.Options{Iterations: req.Iterations, Seed: req.Seed})
	h.record("optimize", start, nil)
	if result == nil {
		respondError(w, toAppError(err))
		return
	}
	h.metrics.RecordOptimizerGenerations(result.Generations)

	respondJSON(w, http.StatusOK, OptimizeResponse{
		Assignment:     result.Optimized,
		Fitness:        result.Fitness,
		InitialFitness: result.InitialFitness,
		Improvement:    result.Improvement,
		Generations:    result.Generations,
		DurationMs:     result.Duration.Milliseconds(),
		StoppedEarly:   err != nil,
	})
}

// Reunite 团队重聚
func (h *AssignmentHandler) Reunite(w http.ResponseWriter, r *http.Request) {
	var req AssignmentRequest
	if !decodePost(w, r, &req) {
		return
	}
	if appErr := requireAssignment(req.Assignment); appErr != nil {
		respondError(w, appErr)
		return
	}

	e, appErr := h.engine(r.Context())
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	start := time.Now()
	a, result := e.AutoReuniteGroups(req.Assignment)
	h.record("reunite", start, nil)
	respondJSON(w, http.StatusOK, ReuniteResponse{Assignment: a, Result: result})
}

// Balance 酒店均衡
func (h *AssignmentHandler) Balance(w http.ResponseWriter, r *http.Request) {
	var req AssignmentRequest
	if !decodePost(w, r, &req) {
		return
	}
	if appErr := requireAssignment(req.Assignment); appErr != nil {
		respondError(w, appErr)
		return
	}

	e, appErr := h.engine(r.Context())
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	start := time.Now()
	a, result := e.AutoBalanceHotels(req.Assignment)
	h.record("balance", start, nil)
	respondJSON(w, http.StatusOK, BalanceResponse{Assignment: a, Result: result})
}

// Conflicts 检测冲突与团队拆分
func (h *AssignmentHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	var req AssignmentRequest
	if !decodePost(w, r, &req) {
		return
	}
	if appErr := requireAssignment(req.Assignment); appErr != nil {
		respondError(w, appErr)
		return
	}

	e, appErr := h.engine(r.Context())
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	conflicts := e.FindConflicts(req.Assignment)
	if conflicts == nil {
		conflicts = []validator.Conflict{}
	}
	groups := e.FindSeparatedGroups(req.Assignment)
	if groups == nil {
		groups = []validator.SeparatedGroup{}
	}
	respondJSON(w, http.StatusOK, ConflictsResponse{
		Valid:           len(conflicts) == 0,
		Blocking:        validator.BlocksConfirmation(conflicts),
		Conflicts:       conflicts,
		Summary:         validator.Summarize(conflicts),
		SeparatedGroups: groups,
	})
}

// Report 生成详细报告与执行摘要
func (h *AssignmentHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req AssignmentRequest
	if !decodePost(w, r, &req) {
		return
	}
	if appErr := requireAssignment(req.Assignment); appErr != nil {
		respondError(w, appErr)
		return
	}

	e, appErr := h.engine(r.Context())
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	detailed := e.DetailedReport(req.Assignment)
	h.metrics.ObserveReport(detailed)

	summary := report.CreateExecutiveSummary(detailed)
	respondJSON(w, http.StatusOK, ReportResponse{
		Report:  detailed,
		Summary: summary,
		Text:    report.RenderText(summary),
	})
}
