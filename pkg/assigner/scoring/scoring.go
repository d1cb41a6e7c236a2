// Package scoring 提供候选房间评分与方案质量评分
package scoring

import (
	"fmt"
	"math"

	"github.com/paiban/roomassign/pkg/assigner/constraint"
	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/rules"
)

// Candidate 候选房间评分结果
type Candidate struct {
	Valid   bool     `json:"valid"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// Scorer 评分器
type Scorer struct {
	cfg       *rules.Config
	validator *constraint.Validator
}

// NewScorer 创建评分器
func NewScorer(cfg *rules.Config, validator *constraint.Validator) *Scorer {
	if cfg == nil {
		cfg = rules.DefaultConfig()
	}
	if validator == nil {
		validator = constraint.NewDefaultValidator(nil)
	}
	return &Scorer{cfg: cfg, validator: validator}
}

// Validator 返回评分器使用的约束校验器
func (s *Scorer) Validator() *constraint.Validator {
	return s.validator
}

// ScoreCandidate 为 (客户, 房间) 打分
//
// 不满足约束时 Valid=false、得分为0，原因为约束错误。
// 入住率加分按插入前的房间状态计算，奖励当前仍宽松的房间。
// 得分为各项加减之和，不做截断。
func (s *Scorer) ScoreCandidate(lookup model.ClientLookup, client *model.Client, room *model.LogicalRoom, hotel *model.Hotel) Candidate {
	check := s.validator.Validate(lookup, client, room, hotel)
	if !check.IsValid {
		return Candidate{Valid: false, Score: 0, Reasons: check.Errors}
	}

	w := s.cfg.Scoring
	score := w.BaseScore
	reasons := []string{fmt.Sprintf("基础分 +%g", w.BaseScore)}

	occupants := model.ResolveOccupants(lookup, room)

	if hasOccupant(occupants, func(o *model.Client) bool { return o.ClientType == client.ClientType }) {
		score += w.SameTypeBonus
		reasons = append(reasons, fmt.Sprintf("同类型客户同住 +%g", w.SameTypeBonus))
	}

	if client.InGroup() && hasOccupant(occupants, func(o *model.Client) bool { return o.GroupName == client.GroupName }) {
		score += w.GroupCohesionWeight
		reasons = append(reasons, fmt.Sprintf("与团队 %s 成员同住 +%g", client.GroupName, w.GroupCohesionWeight))
	}

	if room.IsVIP {
		if client.IsVIP() {
			score += w.VIPRoomWeight
			reasons = append(reasons, fmt.Sprintf("VIP客户入住VIP房 +%g", w.VIPRoomWeight))
		} else {
			score -= w.VIPWastePenalty
			reasons = append(reasons, fmt.Sprintf("VIP房分给非VIP客户 -%g", w.VIPWastePenalty))
		}
	}

	if room.OccupancyRate() < s.cfg.Occupancy.LowThreshold {
		score += w.LowOccupancyBonus
		reasons = append(reasons, fmt.Sprintf("房间入住率较低 +%g", w.LowOccupancyBonus))
	}

	if hotel.Stars >= w.HighStarsThreshold {
		score += w.HighStarsBonus
		reasons = append(reasons, fmt.Sprintf("%d星酒店 +%g", hotel.Stars, w.HighStarsBonus))
	}

	if preferred, ok := client.Preference(model.PreferredHotelKey); ok && preferred == hotel.ID {
		score += w.PreferredHotelBonus
		reasons = append(reasons, fmt.Sprintf("客户偏好酒店 +%g", w.PreferredHotelBonus))
	}

	return Candidate{Valid: true, Score: score, Reasons: reasons}
}

// QualityScore 计算方案整体质量分（0-100）
//
// 按入住者逐一累计：每人满分 possible，实得 earned；没有入住者时为0。
func (s *Scorer) QualityScore(a *model.Assignment) int {
	q := s.cfg.Quality
	earned, possible := 0, 0

	a.EachRoom(func(_ *model.Hotel, room *model.LogicalRoom) {
		highOccupancy := room.OccupancyRate() >= s.cfg.Occupancy.HighThreshold
		occupants := a.OccupantClients(room)

		for _, occ := range room.Occupants {
			possible += q.MaxPerOccupant()
			earned += q.BasePoints

			client, ok := a.Client(occ.ClientID)
			if !ok {
				continue
			}
			if client.IsVIP() && room.IsVIP {
				earned += q.VIPPlacementPoints
			}
			if client.InGroup() && hasOccupant(occupants, func(o *model.Client) bool {
				return o.ID != client.ID && o.GroupName == client.GroupName
			}) {
				earned += q.GroupTogetherPoints
			}
			if highOccupancy {
				earned += q.HighOccupancyPoints
			}
		}
	})

	if possible == 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(possible)))
}

func hasOccupant(occupants []*model.Client, match func(*model.Client) bool) bool {
	for _, o := range occupants {
		if match(o) {
			return true
		}
	}
	return false
}
