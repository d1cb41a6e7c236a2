package optimizer

import (
	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/rules"
)

// FitnessEvaluator 优化器内部使用的加权适应度
// 与面向用户的质量分不同，分值越高越好。
type FitnessEvaluator struct {
	weights   rules.FitnessConfig
	occupancy rules.OccupancyConfig
}

// NewFitnessEvaluator 创建适应度评估器
func NewFitnessEvaluator(cfg *rules.Config) *FitnessEvaluator {
	if cfg == nil {
		cfg = rules.DefaultConfig()
	}
	return &FitnessEvaluator{
		weights:   cfg.Genetic.Fitness,
		occupancy: cfg.Occupancy,
	}
}

// Evaluate 计算方案适应度
func (f *FitnessEvaluator) Evaluate(a *model.Assignment) float64 {
	w := f.weights
	fitness := 0.0

	a.EachRoom(func(hotel *model.Hotel, room *model.LogicalRoom) {
		rate := room.OccupancyRate()
		switch {
		case rate > 100:
			fitness -= w.OverbookPenalty
		case rate >= f.occupancy.HighThreshold:
			fitness += w.TargetOccupancyBonus
		}

		occupants := a.OccupantClients(room)

		groupSizes := make(map[string]int)
		genders := make(map[model.Gender]bool)
		for _, c := range occupants {
			if c.InGroup() {
				groupSizes[c.GroupName]++
			}
			genders[c.Gender] = true
			if c.IsVIP() {
				if room.IsVIP {
					fitness += w.VIPPlacedBonus
				} else {
					fitness -= w.VIPMisplacedPenalty
				}
			}
		}
		for _, n := range groupSizes {
			if n > 1 {
				fitness += w.GroupMemberBonus * float64(n)
			}
		}
		if !hotel.AllowMixedGender && len(genders) >= 2 {
			fitness -= w.MixedGenderPenalty
		}
	})

	return fitness
}
