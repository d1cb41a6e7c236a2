// Package heuristic 提供团队重聚与酒店均衡启发式
package heuristic

import (
	"fmt"
	"time"

	"github.com/paiban/roomassign/pkg/assigner/constraint"
	"github.com/paiban/roomassign/pkg/logger"
	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/rules"
	"github.com/paiban/roomassign/pkg/validator"
)

// Move 一次移动记录
type Move struct {
	ClientID string        `json:"client_id"`
	From     model.RoomRef `json:"from"`
	To       model.RoomRef `json:"to"`
	Reason   string        `json:"reason"`
}

// ReuniteResult 团队重聚结果
type ReuniteResult struct {
	Moves      []Move   `json:"moves"`
	Reunited   []string `json:"reunited"`   // 已重聚的团队
	Unresolved []string `json:"unresolved"` // 没有单个房间能容纳全部成员的团队
}

// BalanceResult 酒店均衡结果
type BalanceResult struct {
	Moves  []Move             `json:"moves"`
	Before map[string]float64 `json:"before"` // 酒店ID -> 入住率
	After  map[string]float64 `json:"after"`
}

// Heuristics 团队重聚与酒店均衡
type Heuristics struct {
	cfg       *rules.Config
	validator *constraint.Validator
	logger    *logger.EngineLogger
	now       func() time.Time
}

// New 创建启发式执行器
func New(cfg *rules.Config, v *constraint.Validator, log *logger.EngineLogger) *Heuristics {
	if cfg == nil {
		cfg = rules.DefaultConfig()
	}
	if v == nil {
		v = constraint.NewDefaultValidator(nil)
	}
	if log == nil {
		log = logger.NewNopEngineLogger()
	}
	return &Heuristics{cfg: cfg, validator: v, logger: log, now: time.Now}
}

// SetClock 设置时间来源
func (h *Heuristics) SetClock(now func() time.Time) {
	h.now = now
}

// AutoReuniteGroups 把被拆分的团队合并到同一房间
//
// 只在团队当前占用的房间中挑选，取能容纳全部其余成员且空位最多的房间。
// 没有这样的房间时团队保持拆分，不做部分合并，也不新开房间。
func (h *Heuristics) AutoReuniteGroups(a *model.Assignment) (*model.Assignment, *ReuniteResult) {
	start := time.Now()
	result := &ReuniteResult{
		Moves:      make([]Move, 0),
		Reunited:   make([]string, 0),
		Unresolved: make([]string, 0),
	}

	next := a.Clone()
	at := h.now()

	for _, group := range validator.FindSeparatedGroups(next) {
		target, ok := pickReuniteRoom(next, group)
		if !ok {
			result.Unresolved = append(result.Unresolved, group.GroupName)
			continue
		}

		for _, clientID := range group.Members {
			from, _ := next.Locate(clientID)
			if from == target {
				continue
			}
			next.MoveInPlace(clientID, target, model.AssignmentAutoReunite, at)
			result.Moves = append(result.Moves, Move{
				ClientID: clientID,
				From:     from,
				To:       target,
				Reason:   fmt.Sprintf("团队 %s 重聚", group.GroupName),
			})
		}
		result.Reunited = append(result.Reunited, group.GroupName)
	}

	next.Version = a.Version + 1
	h.logger.OperationComplete("auto_reunite", time.Since(start), map[string]interface{}{
		"moves":      len(result.Moves),
		"reunited":   len(result.Reunited),
		"unresolved": len(result.Unresolved),
	})
	return next, result
}

func pickReuniteRoom(a *model.Assignment, group validator.SeparatedGroup) (model.RoomRef, bool) {
	var best *model.LogicalRoom
	for _, ref := range group.Rooms {
		room, ok := a.Room(ref.HotelID, ref.RoomID)
		if !ok {
			continue
		}
		inRoom := 0
		for _, id := range group.Members {
			if room.HasOccupant(id) {
				inRoom++
			}
		}
		if room.AvailableSpots() < len(group.Members)-inRoom {
			continue
		}
		if best == nil || room.AvailableSpots() > best.AvailableSpots() {
			best = room
		}
	}
	if best == nil {
		return model.RoomRef{}, false
	}
	return best.Ref(), true
}

// hotelLoad 酒店入住情况
type hotelLoad struct {
	hotel    *model.Hotel
	capacity int
	occupied int
}

func (l hotelLoad) rate() float64 {
	return model.Percent(l.occupied, l.capacity)
}

func loadOf(a *model.Assignment, hotel *model.Hotel) hotelLoad {
	l := hotelLoad{hotel: hotel}
	for _, r := range a.Rooms[hotel.ID] {
		l.capacity += r.MaxCapacity
		l.occupied += r.OccupantCount()
	}
	return l
}

func availableSpots(a *model.Assignment, hotelID string) int {
	n := 0
	for _, r := range a.Rooms[hotelID] {
		n += r.AvailableSpots()
	}
	return n
}

// OccupancyByHotel 各酒店入住率（百分比）
func OccupancyByHotel(a *model.Assignment) map[string]float64 {
	rates := make(map[string]float64, len(a.Hotels))
	for _, hotel := range a.Hotels {
		rates[hotel.ID] = loadOf(a, hotel).rate()
	}
	return rates
}

// AutoBalanceHotels 把散客从超载酒店移到欠载酒店
//
// 入住率低于欠载阈值的酒店为欠载，高于超载阈值的为超载；每对（超载，欠载）
// 最多移动 min(单次上限, 欠载酒店空位) 人。只移动散客，团队和VIP保持不动；
// 目标房间须有空位并通过约束校验。
func (h *Heuristics) AutoBalanceHotels(a *model.Assignment) (*model.Assignment, *BalanceResult) {
	start := time.Now()
	occ := h.cfg.Occupancy
	result := &BalanceResult{
		Moves:  make([]Move, 0),
		Before: OccupancyByHotel(a),
	}

	var over, under []*model.Hotel
	for _, hotel := range a.Hotels {
		l := loadOf(a, hotel)
		if l.capacity == 0 {
			continue
		}
		switch rate := l.rate(); {
		case rate > occ.BalanceOverThreshold:
			over = append(over, hotel)
		case rate < occ.BalanceUnderThreshold:
			under = append(under, hotel)
		}
	}

	next := a.Clone()
	at := h.now()

	for _, src := range over {
		for _, dst := range under {
			limit := occ.BalanceMaxMoves
			if spots := availableSpots(next, dst.ID); spots < limit {
				limit = spots
			}
			for moved := 0; moved < limit; moved++ {
				move, ok := h.moveOneSolo(next, src, dst, at)
				if !ok {
					break
				}
				result.Moves = append(result.Moves, move)
			}
		}
	}

	next.Version = a.Version + 1
	result.After = OccupancyByHotel(next)
	h.logger.OperationComplete("auto_balance", time.Since(start), map[string]interface{}{
		"moves": len(result.Moves),
		"over":  len(over),
		"under": len(under),
	})
	return next, result
}

// moveOneSolo 从 src 找一位可移入 dst 的散客并移动
func (h *Heuristics) moveOneSolo(a *model.Assignment, src, dst *model.Hotel, at time.Time) (Move, bool) {
	for _, fromRoom := range a.Rooms[src.ID] {
		for _, client := range a.OccupantClients(fromRoom) {
			if client.ClientType != model.ClientSolo {
				continue
			}
			for _, toRoom := range a.Rooms[dst.ID] {
				if toRoom.IsFull() || !h.validator.CanAssign(a, client, toRoom, dst) {
					continue
				}
				from := fromRoom.Ref()
				to := toRoom.Ref()
				a.MoveInPlace(client.ID, to, model.AssignmentAutoBalance, at)
				return Move{
					ClientID: client.ID,
					From:     from,
					To:       to,
					Reason:   fmt.Sprintf("均衡 %s -> %s", src.Name, dst.Name),
				}, true
			}
		}
	}
	return Move{}, false
}
