package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/paiban/roomassign/internal/export"
	"github.com/paiban/roomassign/internal/repository"
	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/model"
)

// SaveRequest 保存方案请求
type SaveRequest struct {
	Assignment *model.Assignment `json:"assignment"`
	Name       string            `json:"name"`
	Labels     []string          `json:"labels,omitempty"`
}

// SnapshotListResponse 快照列表响应
type SnapshotListResponse struct {
	Snapshots []*repository.Snapshot `json:"snapshots"`
	Total     int                    `json:"total"`
	Offset    int                    `json:"offset"`
	Limit     int                    `json:"limit"`
}

// Save 保存方案快照
func (h *AssignmentHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if !decodePost(w, r, &req) {
		return
	}
	if appErr := requireAssignment(req.Assignment); appErr != nil {
		respondError(w, appErr)
		return
	}
	if h.repo == nil {
		respondError(w, errors.New(errors.CodeDatabaseError, "方案存储不可用"))
		return
	}

	e, appErr := h.engine(r.Context())
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	snap := &repository.Snapshot{
		Name:         strings.TrimSpace(req.Name),
		Labels:       req.Labels,
		QualityScore: e.QualityScore(req.Assignment),
		Assignment:   req.Assignment,
	}
	if err := h.repo.Save(r.Context(), snap); err != nil {
		respondError(w, toAppError(err))
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

// Load 读取方案快照：?id= 按快照ID，?assignment_id= 取该方案最新版本
func (h *AssignmentHandler) Load(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	if h.repo == nil {
		respondError(w, errors.New(errors.CodeDatabaseError, "方案存储不可用"))
		return
	}

	q := r.URL.Query()
	var (
		snap *repository.Snapshot
		err  error
	)
	switch {
	case q.Get("id") != "":
		id, perr := uuid.Parse(q.Get("id"))
		if perr != nil {
			respondError(w, errors.Wrap(perr, errors.CodeInvalidInput, "无效的快照ID格式"))
			return
		}
		snap, err = h.repo.Load(r.Context(), id)
	case q.Get("assignment_id") != "":
		id, perr := uuid.Parse(q.Get("assignment_id"))
		if perr != nil {
			respondError(w, errors.Wrap(perr, errors.CodeInvalidInput, "无效的方案ID格式"))
			return
		}
		snap, err = h.repo.LoadLatest(r.Context(), id)
	default:
		respondError(w, errors.InvalidInput("id", "不能为空"))
		return
	}
	if err != nil {
		respondError(w, toAppError(err))
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Snapshots 列出（GET）或删除（DELETE ?id=）方案快照
func (h *AssignmentHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, errors.New(errors.CodeDatabaseError, "方案存储不可用"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		filter, appErr := parseListFilter(r)
		if appErr != nil {
			respondError(w, appErr)
			return
		}
		snaps, total, err := h.repo.List(r.Context(), filter)
		if err != nil {
			respondError(w, toAppError(err))
			return
		}
		if snaps == nil {
			snaps = []*repository.Snapshot{}
		}
		respondJSON(w, http.StatusOK, SnapshotListResponse{
			Snapshots: snaps,
			Total:     total,
			Offset:    filter.Offset,
			Limit:     filter.Limit,
		})

	case http.MethodDelete:
		id, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的快照ID格式"))
			return
		}
		if err := h.repo.Delete(r.Context(), id); err != nil {
			respondError(w, toAppError(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET和DELETE方法"))
	}
}

// parseListFilter 解析列表查询参数
func parseListFilter(r *http.Request) (repository.ListFilter, *errors.AppError) {
	q := r.URL.Query()
	filter := repository.DefaultListFilter()

	if v := q.Get("assignment_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errors.Wrap(err, errors.CodeInvalidInput, "无效的方案ID格式")
		}
		filter = filter.WithAssignmentID(id)
	}
	if labels := q["label"]; len(labels) > 0 {
		filter = filter.WithLabels(labels...)
	}
	filter.Search = q.Get("search")

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.InvalidInput("limit", "必须为非负整数")
		}
		filter = filter.WithLimit(n)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.InvalidInput("offset", "必须为非负整数")
		}
		filter = filter.WithOffset(n)
	}
	if v := q.Get("order_by"); v != "" {
		filter.OrderBy = v
	}
	if v := q.Get("order_dir"); v != "" {
		filter.OrderDir = v
	}
	return filter, nil
}

// Export 导出方案为 xlsx
func (h *AssignmentHandler) Export(w http.ResponseWriter, r *http.Request) {
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
	data, err := export.Workbook(req.Assignment, detailed)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(req.Assignment)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
