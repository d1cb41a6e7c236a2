// Package constraints 分房约束与评分规则目录
package constraints

import (
	"strconv"

	"github.com/paiban/roomassign/pkg/assigner/constraint"
	"github.com/paiban/roomassign/pkg/rules"
)

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"` // 对应规则配置中的路径
	Type        string `json:"type"` // int, float, bool
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Type        string            `json:"type"`     // hard 硬约束, soft 软约束
	Category    string            `json:"category"` // 分类
	Description string            `json:"description"`
	Params      []ConstraintParam `json:"params"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
}

// GetLibrary 获取约束库，参数默认值取自 cfg（为空时使用默认规则）
func GetLibrary(cfg *rules.Config) []ConstraintDefinition {
	if cfg == nil {
		cfg = rules.DefaultConfig()
	}
	s := cfg.Scoring
	q := cfg.Quality
	o := cfg.Occupancy
	g := cfg.Genetic

	return []ConstraintDefinition{
		// 硬约束：分房前必须全部通过，强制分房除外
		{
			Name:        string(constraint.TypeCapacity),
			DisplayName: "房间容量",
			Type:        "hard",
			Category:    "房间",
			Description: "入住人数不得超过房间最大容量。超订只能通过强制分房产生，并作为严重冲突上报。",
		},
		{
			Name:        string(constraint.TypeGenderMixing),
			DisplayName: "禁止混住",
			Type:        "hard",
			Category:    "房间",
			Description: "酒店不允许混住时，客户只能入住空房或同性别客户所在的房间。",
			Params: []ConstraintParam{
				boolParam("default_allow_mixed_gender", "新建酒店的默认混住设置", cfg.DefaultAllowMixedGender),
			},
		},
		{
			Name:        string(constraint.TypeVIPPlacement),
			DisplayName: "VIP入住VIP房",
			Type:        "hard",
			Category:    "客户",
			Description: "VIP客户只能入住VIP房间；普通客户可以入住VIP房，但会被扣分。",
		},

		// 软约束：候选房间评分
		{
			Name:        "base_score",
			DisplayName: "基础分",
			Type:        "soft",
			Category:    "候选评分",
			Description: "每个通过硬约束的候选房间获得的基础分。",
			Params: []ConstraintParam{
				floatParam("scoring.base_score", "基础分", s.BaseScore, "0", ""),
			},
		},
		{
			Name:        "same_type_roommates",
			DisplayName: "同类型室友",
			Type:        "soft",
			Category:    "候选评分",
			Description: "房间内每位与客户类型相同的室友加分。",
			Params: []ConstraintParam{
				floatParam("scoring.same_type_bonus", "每位同类型室友加分", s.SameTypeBonus, "0", ""),
			},
		},
		{
			Name:        "group_cohesion",
			DisplayName: "团队同住",
			Type:        "soft",
			Category:    "候选评分",
			Description: "按房间内同团队成员比例加分，促使团队成员住在一起。",
			Params: []ConstraintParam{
				floatParam("scoring.group_cohesion_weight", "团队同住权重", s.GroupCohesionWeight, "0", ""),
			},
		},
		{
			Name:        "vip_room_usage",
			DisplayName: "VIP房使用",
			Type:        "soft",
			Category:    "候选评分",
			Description: "VIP客户入住VIP房加分，普通客户占用VIP房扣分。",
			Params: []ConstraintParam{
				floatParam("scoring.vip_room_weight", "VIP客户入住VIP房加分", s.VIPRoomWeight, "0", ""),
				floatParam("scoring.vip_waste_penalty", "普通客户占用VIP房扣分", s.VIPWastePenalty, "0", ""),
			},
		},
		{
			Name:        "fill_low_occupancy",
			DisplayName: "填充低入住率房间",
			Type:        "soft",
			Category:    "候选评分",
			Description: "入住率低于阈值的房间加分。",
			Params: []ConstraintParam{
				floatParam("scoring.low_occupancy_bonus", "低入住率房间加分", s.LowOccupancyBonus, "0", ""),
				floatParam("occupancy.low_threshold", "低入住率阈值(%)", o.LowThreshold, "0", "100"),
			},
		},
		{
			Name:        "high_stars_hotel",
			DisplayName: "高星级酒店",
			Type:        "soft",
			Category:    "候选评分",
			Description: "星级达到阈值的酒店加分。",
			Params: []ConstraintParam{
				floatParam("scoring.high_stars_bonus", "高星级加分", s.HighStarsBonus, "0", ""),
				intParam("scoring.high_stars_threshold", "星级阈值", s.HighStarsThreshold, "1", "5"),
			},
		},
		{
			Name:        "preferred_hotel",
			DisplayName: "偏好酒店",
			Type:        "soft",
			Category:    "候选评分",
			Description: "客户偏好中指定的酒店加分。",
			Params: []ConstraintParam{
				floatParam("scoring.preferred_hotel_bonus", "偏好酒店加分", s.PreferredHotelBonus, "0", ""),
			},
		},

		// 方案质量分
		{
			Name:        "quality_score",
			DisplayName: "方案质量分",
			Type:        "soft",
			Category:    "方案评估",
			Description: "按每位入住者累计得分，折算为0到100的质量分。",
			Params: []ConstraintParam{
				intParam("quality.base_points", "入住基础分", q.BasePoints, "0", ""),
				intParam("quality.vip_placement_points", "VIP入住VIP房得分", q.VIPPlacementPoints, "0", ""),
				intParam("quality.group_together_points", "与团队同住得分", q.GroupTogetherPoints, "0", ""),
				intParam("quality.high_occupancy_points", "高入住率房间得分", q.HighOccupancyPoints, "0", ""),
				floatParam("occupancy.high_threshold", "高入住率阈值(%)", o.HighThreshold, "0", "100"),
			},
		},
		{
			Name:        "hotel_balance",
			DisplayName: "酒店均衡",
			Type:        "soft",
			Category:    "方案评估",
			Description: "将过载酒店的散客迁往低入住率酒店。",
			Params: []ConstraintParam{
				floatParam("occupancy.balance_under_threshold", "低入住率酒店阈值(%)", o.BalanceUnderThreshold, "0", "100"),
				floatParam("occupancy.balance_over_threshold", "过载酒店阈值(%)", o.BalanceOverThreshold, "0", "100"),
				intParam("occupancy.balance_max_moves", "每次均衡最多迁移人数", o.BalanceMaxMoves, "0", ""),
			},
		},

		// 优化器
		{
			Name:        "genetic_optimizer",
			DisplayName: "遗传优化",
			Type:        "soft",
			Category:    "优化",
			Description: "以适应度为目标对整个方案做随机局部搜索。",
			Params: []ConstraintParam{
				intParam("genetic.population_size", "种群大小", g.PopulationSize, "1", ""),
				intParam("genetic.elite_size", "精英数量", g.EliteSize, "1", ""),
				intParam("genetic.generations", "迭代代数", g.Generations, "0", ""),
				floatParam("genetic.mutation_rate", "变异概率", g.MutationRate, "0", "1"),
				intParam("genetic.workers", "并行评估协程数(0或1为顺序评估)", g.Workers, "0", ""),
			},
		},
		{
			Name:        "fitness",
			DisplayName: "适应度",
			Type:        "soft",
			Category:    "优化",
			Description: "优化器评价方案的加分与扣分项。",
			Params: []ConstraintParam{
				floatParam("genetic.fitness.target_occupancy_bonus", "目标入住率房间加分", g.Fitness.TargetOccupancyBonus, "0", ""),
				floatParam("genetic.fitness.overbook_penalty", "每位超订人数扣分", g.Fitness.OverbookPenalty, "0", ""),
				floatParam("genetic.fitness.group_member_bonus", "同房团队成员加分", g.Fitness.GroupMemberBonus, "0", ""),
				floatParam("genetic.fitness.vip_placed_bonus", "VIP入住VIP房加分", g.Fitness.VIPPlacedBonus, "0", ""),
				floatParam("genetic.fitness.vip_misplaced_penalty", "VIP入住普通房扣分", g.Fitness.VIPMisplacedPenalty, "0", ""),
				floatParam("genetic.fitness.mixed_gender_penalty", "违规混住扣分", g.Fitness.MixedGenderPenalty, "0", ""),
			},
		},
	}
}

// GetByName 按名称查找约束定义
func GetByName(cfg *rules.Config, name string) (ConstraintDefinition, bool) {
	for _, def := range GetLibrary(cfg) {
		if def.Name == name {
			return def, true
		}
	}
	return ConstraintDefinition{}, false
}

// GetByCategory 按分类筛选
func GetByCategory(cfg *rules.Config, category string) []ConstraintDefinition {
	var result []ConstraintDefinition
	for _, def := range GetLibrary(cfg) {
		if def.Category == category {
			result = append(result, def)
		}
	}
	return result
}

func intParam(name, desc string, v int, min, max string) ConstraintParam {
	return ConstraintParam{Name: name, Type: "int", Description: desc, Default: strconv.Itoa(v), Min: min, Max: max}
}

func floatParam(name, desc string, v float64, min, max string) ConstraintParam {
	return ConstraintParam{Name: name, Type: "float", Description: desc, Default: strconv.FormatFloat(v, 'f', -1, 64), Min: min, Max: max}
}

func boolParam(name, desc string, v bool) ConstraintParam {
	return ConstraintParam{Name: name, Type: "bool", Description: desc, Default: strconv.FormatBool(v)}
}
