// Package report 提供分房方案统计报告
package report

import (
	"sort"
	"time"

	"github.com/paiban/roomassign/pkg/assigner/scoring"
	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/rules"
	"github.com/paiban/roomassign/pkg/validator"
)

// AssignmentReport 分房统计报告
type AssignmentReport struct {
	AssignmentID string    `json:"assignment_id"`
	Version      int       `json:"version"`
	GeneratedAt  time.Time `json:"generated_at"`

	// 客户
	TotalClients      int     `json:"total_clients"`
	AssignedClients   int     `json:"assigned_clients"`
	UnassignedClients int     `json:"unassigned_clients"`
	AssignmentRate    float64 `json:"assignment_rate"` // %

	// 房间
	TotalRooms       int     `json:"total_rooms"`
	TotalCapacity    int     `json:"total_capacity"`
	OccupiedBeds     int     `json:"occupied_beds"`
	OverallOccupancy float64 `json:"overall_occupancy"` // %

	// 分布
	ClientTypeDistribution     map[model.ClientType]int     `json:"client_type_distribution"`
	GenderDistribution         map[model.Gender]int         `json:"gender_distribution"`
	AssignmentTypeDistribution map[model.AssignmentType]int `json:"assignment_type_distribution"`

	Hotels       []HotelStats   `json:"hotels"`
	Balance      BalanceMetrics `json:"balance"`
	QualityScore int            `json:"quality_score"`
}

// HotelStats 单个酒店统计
type HotelStats struct {
	HotelID           string  `json:"hotel_id"`
	Name              string  `json:"name"`
	Stars             int     `json:"stars"`
	Rooms             int     `json:"rooms"`
	Capacity          int     `json:"capacity"`
	Occupied          int     `json:"occupied"`
	OccupancyRate     float64 `json:"occupancy_rate"`
	FullRooms         int     `json:"full_rooms"`
	EmptyRooms        int     `json:"empty_rooms"`
	OverCapacityRooms int     `json:"over_capacity_rooms"`
	VIPRooms          int     `json:"vip_rooms"`
	VIPRoomsUsed      int     `json:"vip_rooms_used"`
}

// Generator 报告生成器
type Generator struct {
	cfg      *rules.Config
	scorer   *scoring.Scorer
	detector *validator.ConflictDetector
	now      func() time.Time
}

// NewGenerator 创建报告生成器
func NewGenerator(cfg *rules.Config, scorer *scoring.Scorer, detector *validator.ConflictDetector) *Generator {
	if cfg == nil {
		cfg = rules.DefaultConfig()
	}
	if scorer == nil {
		scorer = scoring.NewScorer(cfg, nil)
	}
	if detector == nil {
		detector = validator.NewConflictDetector(nil)
	}
	return &Generator{cfg: cfg, scorer: scorer, detector: detector, now: time.Now}
}

// SetClock 设置时间来源
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// GenerateAssignmentReport 统计方案的入住、分布和各酒店情况
func (g *Generator) GenerateAssignmentReport(a *model.Assignment) *AssignmentReport {
	r := &AssignmentReport{
		AssignmentID:               a.ID.String(),
		Version:                    a.Version,
		GeneratedAt:                g.now(),
		TotalClients:               len(a.Clients),
		ClientTypeDistribution:     make(map[model.ClientType]int),
		GenderDistribution:         make(map[model.Gender]int),
		AssignmentTypeDistribution: make(map[model.AssignmentType]int),
		Hotels:                     make([]HotelStats, 0, len(a.Hotels)),
	}

	for _, c := range a.Clients {
		r.ClientTypeDistribution[c.ClientType]++
		r.GenderDistribution[c.Gender]++
	}

	rates := make([]float64, 0, len(a.Hotels))
	for _, h := range a.Hotels {
		hs := HotelStats{HotelID: h.ID, Name: h.Name, Stars: h.Stars}
		for _, room := range a.Rooms[h.ID] {
			hs.Rooms++
			hs.Capacity += room.MaxCapacity
			hs.Occupied += room.OccupantCount()
			switch {
			case room.OccupantCount() == 0:
				hs.EmptyRooms++
			case room.IsOverCapacity():
				hs.OverCapacityRooms++
			case room.IsFull():
				hs.FullRooms++
			}
			if room.IsVIP {
				hs.VIPRooms++
				if room.OccupantCount() > 0 {
					hs.VIPRoomsUsed++
				}
			}
			for _, o := range room.Occupants {
				r.AssignmentTypeDistribution[o.AssignmentType]++
			}
		}
		hs.OccupancyRate = model.Percent(hs.Occupied, hs.Capacity)

		r.TotalRooms += hs.Rooms
		r.TotalCapacity += hs.Capacity
		r.OccupiedBeds += hs.Occupied
		r.Hotels = append(r.Hotels, hs)
		if hs.Capacity > 0 {
			rates = append(rates, hs.OccupancyRate)
		}
	}

	r.AssignedClients = len(a.Clients) - len(a.UnassignedClients())
	r.UnassignedClients = len(a.Clients) - r.AssignedClients
	r.AssignmentRate = model.Percent(r.AssignedClients, r.TotalClients)
	r.OverallOccupancy = model.Percent(r.OccupiedBeds, r.TotalCapacity)
	r.Balance = analyzeBalance(rates)
	r.QualityScore = g.scorer.QualityScore(a)

	return r
}

// UnderusedHotels 入住率低于欠载阈值的酒店
func (g *Generator) UnderusedHotels(r *AssignmentReport) []HotelStats {
	var result []HotelStats
	for _, h := range r.Hotels {
		if h.Capacity > 0 && h.OccupancyRate < g.cfg.Occupancy.BalanceUnderThreshold {
			result = append(result, h)
		}
	}
	return result
}

// OverloadedHotels 入住率高于超载阈值的酒店
func (g *Generator) OverloadedHotels(r *AssignmentReport) []HotelStats {
	var result []HotelStats
	for _, h := range r.Hotels {
		if h.Capacity > 0 && h.OccupancyRate > g.cfg.Occupancy.BalanceOverThreshold {
			result = append(result, h)
		}
	}
	return result
}

// SortedClientTypes 按人数降序返回客户类型（用于展示）
func (r *AssignmentReport) SortedClientTypes() []model.ClientType {
	types := make([]model.ClientType, 0, len(r.ClientTypeDistribution))
	for t := range r.ClientTypeDistribution {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		ci, cj := r.ClientTypeDistribution[types[i]], r.ClientTypeDistribution[types[j]]
		if ci != cj {
			return ci > cj
		}
		return types[i] < types[j]
	})
	return types
}
