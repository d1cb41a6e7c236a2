// Package rules 定义分房规则与评分配置
//
// 配置以值的形式显式传入各引擎组件，不存在全局可变配置。
package rules

import (
	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/model"
)

// Config 分房规则配置
type Config struct {
	Scoring                 ScoringConfig            `yaml:"scoring" json:"scoring"`
	Quality                 QualityConfig            `yaml:"quality" json:"quality"`
	Occupancy               OccupancyConfig          `yaml:"occupancy" json:"occupancy"`
	Genetic                 GeneticConfig            `yaml:"genetic" json:"genetic"`
	Priorities              map[model.ClientType]int `yaml:"priorities" json:"priorities"`
	DefaultAllowMixedGender bool                     `yaml:"default_allow_mixed_gender" json:"default_allow_mixed_gender"`
	SuggestionLimit         int                      `yaml:"suggestion_limit" json:"suggestion_limit"` // 0 表示不限制
}

// ScoringConfig 候选房间评分权重
type ScoringConfig struct {
	BaseScore           float64 `yaml:"base_score" json:"base_score"`
	SameTypeBonus       float64 `yaml:"same_type_bonus" json:"same_type_bonus"`
	GroupCohesionWeight float64 `yaml:"group_cohesion_weight" json:"group_cohesion_weight"`
	VIPRoomWeight       float64 `yaml:"vip_room_weight" json:"vip_room_weight"`
	VIPWastePenalty     float64 `yaml:"vip_waste_penalty" json:"vip_waste_penalty"`
	LowOccupancyBonus   float64 `yaml:"low_occupancy_bonus" json:"low_occupancy_bonus"`
	HighStarsBonus      float64 `yaml:"high_stars_bonus" json:"high_stars_bonus"`
	HighStarsThreshold  int     `yaml:"high_stars_threshold" json:"high_stars_threshold"`
	PreferredHotelBonus float64 `yaml:"preferred_hotel_bonus" json:"preferred_hotel_bonus"`
}

// QualityConfig 方案质量分（每位入住者满分 = 各项之和）
type QualityConfig struct {
	BasePoints          int `yaml:"base_points" json:"base_points"`
	VIPPlacementPoints  int `yaml:"vip_placement_points" json:"vip_placement_points"`
	GroupTogetherPoints int `yaml:"group_together_points" json:"group_together_points"`
	HighOccupancyPoints int `yaml:"high_occupancy_points" json:"high_occupancy_points"`
}

// MaxPerOccupant 每位入住者可得的最高分
func (q QualityConfig) MaxPerOccupant() int {
	return q.BasePoints + q.VIPPlacementPoints + q.GroupTogetherPoints + q.HighOccupancyPoints
}

// OccupancyConfig 入住率阈值（百分比）
type OccupancyConfig struct {
	LowThreshold          float64 `yaml:"low_threshold" json:"low_threshold"`
	HighThreshold         float64 `yaml:"high_threshold" json:"high_threshold"`
	BalanceUnderThreshold float64 `yaml:"balance_under_threshold" json:"balance_under_threshold"`
	BalanceOverThreshold  float64 `yaml:"balance_over_threshold" json:"balance_over_threshold"`
	BalanceMaxMoves       int     `yaml:"balance_max_moves" json:"balance_max_moves"`
}

// GeneticConfig 遗传优化配置
type GeneticConfig struct {
	PopulationSize int           `yaml:"population_size" json:"population_size"`
	EliteSize      int           `yaml:"elite_size" json:"elite_size"`
	Generations    int           `yaml:"generations" json:"generations"`
	MutationRate   float64       `yaml:"mutation_rate" json:"mutation_rate"`
	Workers        int           `yaml:"workers" json:"workers"` // 并行评估协程数，0 或 1 表示顺序评估
	Fitness        FitnessConfig `yaml:"fitness" json:"fitness"`
}

// FitnessConfig 适应度权重
type FitnessConfig struct {
	TargetOccupancyBonus float64 `yaml:"target_occupancy_bonus" json:"target_occupancy_bonus"`
	OverbookPenalty      float64 `yaml:"overbook_penalty" json:"overbook_penalty"`
	GroupMemberBonus     float64 `yaml:"group_member_bonus" json:"group_member_bonus"`
	VIPPlacedBonus       float64 `yaml:"vip_placed_bonus" json:"vip_placed_bonus"`
	VIPMisplacedPenalty  float64 `yaml:"vip_misplaced_penalty" json:"vip_misplaced_penalty"`
	MixedGenderPenalty   float64 `yaml:"mixed_gender_penalty" json:"mixed_gender_penalty"`
}

// DefaultConfig 返回默认规则
func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			BaseScore:           10,
			SameTypeBonus:       5,
			GroupCohesionWeight: 15,
			VIPRoomWeight:       10,
			VIPWastePenalty:     5,
			LowOccupancyBonus:   3,
			HighStarsBonus:      2,
			HighStarsThreshold:  4,
			PreferredHotelBonus: 4,
		},
		Quality: QualityConfig{
			BasePoints:          3,
			VIPPlacementPoints:  3,
			GroupTogetherPoints: 2,
			HighOccupancyPoints: 2,
		},
		Occupancy: OccupancyConfig{
			LowThreshold:          50,
			HighThreshold:         80,
			BalanceUnderThreshold: 60,
			BalanceOverThreshold:  90,
			BalanceMaxMoves:       3,
		},
		Genetic: GeneticConfig{
			PopulationSize: 20,
			EliteSize:      10,
			Generations:    100,
			MutationRate:   0.3,
			Fitness: FitnessConfig{
				TargetOccupancyBonus: 10,
				OverbookPenalty:      50,
				GroupMemberBonus:     5,
				VIPPlacedBonus:       5,
				VIPMisplacedPenalty:  10,
				MixedGenderPenalty:   20,
			},
		},
		Priorities: map[model.ClientType]int{
			model.ClientVIP:        4,
			model.ClientStaff:      3,
			model.ClientGroup:      2,
			model.ClientSolo:       1,
			model.ClientInfluencer: 1,
		},
		DefaultAllowMixedGender: false,
	}
}

// Priority 客户类型的分房优先级（未配置的类型为0）
func (c *Config) Priority(t model.ClientType) int {
	return c.Priorities[t]
}

// Clone 深拷贝配置
func (c *Config) Clone() *Config {
	clone := *c
	clone.Priorities = make(map[model.ClientType]int, len(c.Priorities))
	for k, v := range c.Priorities {
		clone.Priorities[k] = v
	}
	return &clone
}

// Validate 校验配置
func (c *Config) Validate() error {
	ve := &errors.ValidationErrors{}

	if !validPercent(c.Occupancy.LowThreshold) {
		ve.Add("occupancy.low_threshold", "必须在0-100之间")
	}
	if !validPercent(c.Occupancy.HighThreshold) {
		ve.Add("occupancy.high_threshold", "必须在0-100之间")
	}
	if !validPercent(c.Occupancy.BalanceUnderThreshold) || !validPercent(c.Occupancy.BalanceOverThreshold) {
		ve.Add("occupancy.balance", "阈值必须在0-100之间")
	} else if c.Occupancy.BalanceUnderThreshold >= c.Occupancy.BalanceOverThreshold {
		ve.Add("occupancy.balance", "欠载阈值必须小于超载阈值")
	}
	if c.Occupancy.BalanceMaxMoves < 0 {
		ve.Add("occupancy.balance_max_moves", "不能为负数")
	}
	if c.Quality.MaxPerOccupant() <= 0 {
		ve.Add("quality", "每位入住者满分必须大于0")
	}
	if c.Genetic.PopulationSize <= 0 {
		ve.Add("genetic.population_size", "必须大于0")
	}
	if c.Genetic.EliteSize <= 0 || c.Genetic.EliteSize > c.Genetic.PopulationSize {
		ve.Add("genetic.elite_size", "必须在1到种群大小之间")
	}
	if c.Genetic.Generations < 0 {
		ve.Add("genetic.generations", "不能为负数")
	}
	if c.Genetic.MutationRate < 0 || c.Genetic.MutationRate > 1 {
		ve.Add("genetic.mutation_rate", "必须在0-1之间")
	}
	if c.Genetic.Workers < 0 {
		ve.Add("genetic.workers", "不能为负数")
	}
	if c.SuggestionLimit < 0 {
		ve.Add("suggestion_limit", "不能为负数")
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

func validPercent(v float64) bool {
	return v >= 0 && v <= 100
}
