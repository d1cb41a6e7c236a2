package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/validator"
)

// Action 建议执行的操作
type Action string

const (
	ActionAutoAssign         Action = "auto_assign"
	ActionResolveOverbooking Action = "resolve_overbooking"
	ActionSeparateGenders    Action = "separate_genders"
	ActionRelocateVIPs       Action = "relocate_vips"
	ActionReuniteGroups      Action = "reunite_groups"
	ActionBalanceHotels      Action = "balance_hotels"
	ActionOptimize           Action = "optimize"
)

// Recommendation 改进建议
type Recommendation struct {
	Priority string `json:"priority"` // high/medium/low
	Action   Action `json:"action"`
	Message  string `json:"message"`
}

// ValidationSummary 方案校验摘要
type ValidationSummary struct {
	IsValid  bool     `json:"is_valid"` // 无严重/高等级冲突
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// DetailedReport 详细报告
type DetailedReport struct {
	Report          *AssignmentReport          `json:"report"`
	Conflicts       []validator.Conflict       `json:"conflicts"`
	ConflictSummary validator.Summary          `json:"conflict_summary"`
	SeparatedGroups []validator.SeparatedGroup `json:"separated_groups"`
	Validation      ValidationSummary          `json:"validation"`
	Recommendations []Recommendation           `json:"recommendations"`
}

// GenerateDetailedReport 生成包含冲突、校验和建议的详细报告
func (g *Generator) GenerateDetailedReport(a *model.Assignment) *DetailedReport {
	r := g.GenerateAssignmentReport(a)
	conflicts := g.detector.DetectAll(a)

	d := &DetailedReport{
		Report:          r,
		Conflicts:       conflicts,
		ConflictSummary: validator.Summarize(conflicts),
		SeparatedGroups: validator.FindSeparatedGroups(a),
		Validation: ValidationSummary{
			IsValid:  true,
			Errors:   make([]string, 0),
			Warnings: make([]string, 0),
		},
	}

	for _, c := range conflicts {
		switch c.Severity {
		case validator.SeverityCritical, validator.SeverityHigh:
			d.Validation.IsValid = false
			d.Validation.Errors = append(d.Validation.Errors, c.Message)
		default:
			d.Validation.Warnings = append(d.Validation.Warnings, c.Message)
		}
	}
	if r.UnassignedClients > 0 {
		d.Validation.Warnings = append(d.Validation.Warnings, fmt.Sprintf("还有 %d 名客户未分房", r.UnassignedClients))
	}

	d.Recommendations = g.recommend(d)
	return d
}

// recommend 根据报告生成建议
func (g *Generator) recommend(d *DetailedReport) []Recommendation {
	r := d.Report
	s := d.ConflictSummary
	recs := make([]Recommendation, 0)

	if s.ByType[validator.ConflictOverCapacity] > 0 {
		recs = append(recs, Recommendation{
			Priority: "high",
			Action:   ActionResolveOverbooking,
			Message:  fmt.Sprintf("%d 个房间超订，请移出多余入住者后再确认方案", s.ByType[validator.ConflictOverCapacity]),
		})
	}
	if s.ByType[validator.ConflictMixedGender] > 0 {
		recs = append(recs, Recommendation{
			Priority: "high",
			Action:   ActionSeparateGenders,
			Message:  fmt.Sprintf("%d 个房间存在不允许的男女混住", s.ByType[validator.ConflictMixedGender]),
		})
	}
	if r.UnassignedClients > 0 {
		recs = append(recs, Recommendation{
			Priority: "high",
			Action:   ActionAutoAssign,
			Message:  fmt.Sprintf("%d 名客户未分房，可执行自动分房", r.UnassignedClients),
		})
	}
	if s.ByType[validator.ConflictVIPInRegularRoom] > 0 {
		recs = append(recs, Recommendation{
			Priority: "medium",
			Action:   ActionRelocateVIPs,
			Message:  fmt.Sprintf("%d 名VIP客户住在普通房间，建议调整到VIP房", s.ByType[validator.ConflictVIPInRegularRoom]),
		})
	}
	if len(d.SeparatedGroups) > 0 {
		names := make([]string, 0, len(d.SeparatedGroups))
		for _, sg := range d.SeparatedGroups {
			names = append(names, sg.GroupName)
		}
		recs = append(recs, Recommendation{
			Priority: "medium",
			Action:   ActionReuniteGroups,
			Message:  fmt.Sprintf("团队 %s 被拆分，可执行团队重聚", strings.Join(names, "、")),
		})
	}
	if len(g.OverloadedHotels(r)) > 0 && len(g.UnderusedHotels(r)) > 0 {
		recs = append(recs, Recommendation{
			Priority: "medium",
			Action:   ActionBalanceHotels,
			Message: fmt.Sprintf("酒店入住率不均衡（%.0f%% - %.0f%%），可执行酒店均衡",
				r.Balance.MinOccupancy, r.Balance.MaxOccupancy),
		})
	}
	if r.AssignedClients > 0 && r.QualityScore < qualityTarget {
		recs = append(recs, Recommendation{
			Priority: "low",
			Action:   ActionOptimize,
			Message:  fmt.Sprintf("方案质量分 %d 低于 %d，可运行优化器", r.QualityScore, qualityTarget),
		})
	}

	return recs
}

// qualityTarget 低于该质量分时建议优化
const qualityTarget = 70

// Status 方案状态
type Status string

const (
	StatusReady          Status = "ready"
	StatusNeedsAttention Status = "needs_attention"
	StatusBlocked        Status = "blocked"
)

// KeyMetrics 关键指标
type KeyMetrics struct {
	AssignmentRate float64 `json:"assignment_rate"`
	Occupancy      float64 `json:"occupancy"`
	QualityScore   int     `json:"quality_score"`
	Conflicts      int     `json:"conflicts"`
	CriticalIssues int     `json:"critical_issues"`
}

// ExecutiveSummary 执行摘要
type ExecutiveSummary struct {
	Status          Status           `json:"status"`
	Headline        string           `json:"headline"`
	KeyMetrics      KeyMetrics       `json:"key_metrics"`
	TopIssues       []string         `json:"top_issues"`
	Recommendations []Recommendation `json:"recommendations"`
}

const maxTopIssues = 5

// CreateExecutiveSummary 从详细报告生成执行摘要
func CreateExecutiveSummary(d *DetailedReport) *ExecutiveSummary {
	r := d.Report
	s := d.ConflictSummary

	summary := &ExecutiveSummary{
		KeyMetrics: KeyMetrics{
			AssignmentRate: r.AssignmentRate,
			Occupancy:      r.OverallOccupancy,
			QualityScore:   r.QualityScore,
			Conflicts:      s.Total,
			CriticalIssues: s.Critical,
		},
		TopIssues:       topIssues(d.Conflicts),
		Recommendations: d.Recommendations,
	}

	switch {
	case s.Critical > 0:
		summary.Status = StatusBlocked
		summary.Headline = fmt.Sprintf("存在 %d 个严重冲突，方案不能确认", s.Critical)
	case s.Total > 0 || r.UnassignedClients > 0:
		summary.Status = StatusNeedsAttention
		summary.Headline = fmt.Sprintf("已分房 %d/%d 人，存在 %d 个待处理问题", r.AssignedClients, r.TotalClients, s.Total)
	default:
		summary.Status = StatusReady
		summary.Headline = fmt.Sprintf("全部 %d 名客户已分房，方案可以确认", r.TotalClients)
	}

	return summary
}

// topIssues 按严重程度取前几个冲突描述
func topIssues(conflicts []validator.Conflict) []string {
	rank := map[validator.Severity]int{
		validator.SeverityCritical: 0,
		validator.SeverityHigh:     1,
		validator.SeverityMedium:   2,
	}
	sorted := make([]validator.Conflict, len(conflicts))
	copy(sorted, conflicts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank[sorted[i].Severity] < rank[sorted[j].Severity]
	})

	issues := make([]string, 0, maxTopIssues)
	for _, c := range sorted {
		if len(issues) == maxTopIssues {
			break
		}
		issues = append(issues, c.Message)
	}
	return issues
}

// RenderText 生成纯文本摘要
func RenderText(s *ExecutiveSummary) string {
	var b strings.Builder
	b.WriteString("=== 分房方案摘要 ===\n\n")
	fmt.Fprintf(&b, "状态: %s\n", s.Status)
	fmt.Fprintf(&b, "%s\n\n", s.Headline)

	b.WriteString("【关键指标】\n")
	fmt.Fprintf(&b, "  分房率: %.1f%%\n", s.KeyMetrics.AssignmentRate)
	fmt.Fprintf(&b, "  入住率: %.1f%%\n", s.KeyMetrics.Occupancy)
	fmt.Fprintf(&b, "  质量分: %d\n", s.KeyMetrics.QualityScore)
	fmt.Fprintf(&b, "  冲突数: %d（严重 %d）\n\n", s.KeyMetrics.Conflicts, s.KeyMetrics.CriticalIssues)

	if len(s.TopIssues) > 0 {
		b.WriteString("【主要问题】\n")
		for _, issue := range s.TopIssues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
		b.WriteString("\n")
	}

	if len(s.Recommendations) > 0 {
		b.WriteString("【建议】\n")
		for _, rec := range s.Recommendations {
			fmt.Fprintf(&b, "  - [%s] %s\n", rec.Priority, rec.Message)
		}
	}

	return b.String()
}
