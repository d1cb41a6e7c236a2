package handler

import (
	"encoding/json"
	"net/http"

	"github.com/paiban/roomassign/internal/constraints"
	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/rules"
)

// RulesResponse 规则响应
type RulesResponse struct {
	Rules     *rules.Config `json:"rules"`     // 已保存的规则
	Effective *rules.Config `json:"effective"` // 叠加环境变量覆盖后实际生效的规则
}

// Rules 读取（GET）、更新（PUT）或重置（DELETE）分房规则
func (h *AssignmentHandler) Rules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.respondRules(w, r)

	case http.MethodPut:
		cfg := &rules.Config{}
		if err := json.NewDecoder(r.Body).Decode(cfg); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
			return
		}
		if err := h.rules.Put(r.Context(), cfg); err != nil {
			respondError(w, toAppError(err))
			return
		}
		h.respondRules(w, r)

	case http.MethodDelete:
		if err := h.rules.Reset(r.Context()); err != nil {
			respondError(w, toAppError(err))
			return
		}
		h.respondRules(w, r)

	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET、PUT和DELETE方法"))
	}
}

func (h *AssignmentHandler) respondRules(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.rules.Get(r.Context())
	if err != nil {
		respondError(w, toAppError(err))
		return
	}
	effective := cfg.Clone()
	h.engineCfg.Apply(effective)
	respondJSON(w, http.StatusOK, RulesResponse{Rules: cfg, Effective: effective})
}

// ConstraintLibrary 返回约束与评分规则目录，可用 ?category= 筛选
func (h *AssignmentHandler) ConstraintLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	cfg, err := h.rules.Get(r.Context())
	if err != nil {
		respondError(w, toAppError(err))
		return
	}
	h.engineCfg.Apply(cfg)

	library := constraints.GetLibrary(cfg)
	if category := r.URL.Query().Get("category"); category != "" {
		library = constraints.GetByCategory(cfg, category)
	}
	if library == nil {
		library = []constraints.ConstraintDefinition{}
	}
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{Library: library})
}
