// Package model 定义分房引擎的核心数据模型
package model

import (
	"fmt"
	"time"
)

// RoomType 房型
type RoomType string

const (
	RoomSingle RoomType = "single"
	RoomDouble RoomType = "double"
	RoomTriple RoomType = "triple"
	RoomQuad   RoomType = "quad"
	RoomSuite  RoomType = "suite"
	RoomDorm   RoomType = "dorm"
)

// DefaultCapacity 房型默认容量
func (t RoomType) DefaultCapacity() int {
	switch t {
	case RoomSingle:
		return 1
	case RoomDouble, RoomSuite:
		return 2
	case RoomTriple:
		return 3
	case RoomQuad:
		return 4
	case RoomDorm:
		return 8
	default:
		return 0
	}
}

// RoomTypeConfig 酒店房型配置
type RoomTypeConfig struct {
	RoomType RoomType `json:"room_type"`
	Count    int      `json:"count"`
	Capacity int      `json:"capacity,omitempty"` // 0 表示使用房型默认容量
	IsVIP    bool     `json:"is_vip"`
}

// Hotel 酒店
type Hotel struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	TotalCapacity    int              `json:"total_capacity"`
	AllowMixedGender bool             `json:"allow_mixed_gender"`
	Location         *Location        `json:"location,omitempty"`
	Stars            int              `json:"stars"`
	RoomConfig       []RoomTypeConfig `json:"room_config,omitempty"`
}

// AssignmentType 分配来源
type AssignmentType string

const (
	AssignmentManual      AssignmentType = "manual"
	AssignmentAuto        AssignmentType = "auto"
	AssignmentAutoReunite AssignmentType = "auto_reunite"
	AssignmentAutoBalance AssignmentType = "auto_balance"
)

// RoomOccupant 房间入住记录
type RoomOccupant struct {
	ClientID       string         `json:"client_id"`
	AssignedAt     time.Time      `json:"assigned_at"`
	AssignmentType AssignmentType `json:"assignment_type"`
}

// LogicalRoom 逻辑房间（按房型/容量/VIP定义的房位，不对应物理房号）
type LogicalRoom struct {
	HotelID     string         `json:"hotel_id"`
	RoomID      string         `json:"room_id"`
	RoomType    RoomType       `json:"room_type"`
	MaxCapacity int            `json:"max_capacity"`
	IsVIP       bool           `json:"is_vip"`
	Occupants   []RoomOccupant `json:"occupants"`
}

// Ref 返回房间定位
func (r *LogicalRoom) Ref() RoomRef {
	return RoomRef{HotelID: r.HotelID, RoomID: r.RoomID}
}

// OccupantCount 入住人数
func (r *LogicalRoom) OccupantCount() int {
	return len(r.Occupants)
}

// AvailableSpots 剩余床位（超订时为0）
func (r *LogicalRoom) AvailableSpots() int {
	if spots := r.MaxCapacity - len(r.Occupants); spots > 0 {
		return spots
	}
	return 0
}

// OccupancyRate 入住率（百分比，超订时大于100）
func (r *LogicalRoom) OccupancyRate() float64 {
	return Percent(len(r.Occupants), r.MaxCapacity)
}

// IsFull 是否已满
func (r *LogicalRoom) IsFull() bool {
	return len(r.Occupants) >= r.MaxCapacity
}

// IsOverCapacity 是否超订
func (r *LogicalRoom) IsOverCapacity() bool {
	return len(r.Occupants) > r.MaxCapacity
}

// HasOccupant 检查客户是否住在该房间
func (r *LogicalRoom) HasOccupant(clientID string) bool {
	return r.occupantIndex(clientID) >= 0
}

func (r *LogicalRoom) occupantIndex(clientID string) int {
	for i, o := range r.Occupants {
		if o.ClientID == clientID {
			return i
		}
	}
	return -1
}

// Clone 深拷贝房间
func (r *LogicalRoom) Clone() *LogicalRoom {
	clone := *r
	clone.Occupants = make([]RoomOccupant, len(r.Occupants))
	copy(clone.Occupants, r.Occupants)
	return &clone
}

// GenerateRooms 根据酒店房型配置生成逻辑房间（无入住）
func GenerateRooms(h *Hotel) []*LogicalRoom {
	rooms := make([]*LogicalRoom, 0)
	for _, cfg := range h.RoomConfig {
		capacity := cfg.Capacity
		if capacity <= 0 {
			capacity = cfg.RoomType.DefaultCapacity()
		}
		for i := 0; i < cfg.Count; i++ {
			rooms = append(rooms, &LogicalRoom{
				HotelID:     h.ID,
				RoomID:      fmt.Sprintf("%s-%s-%d", h.ID, cfg.RoomType, len(rooms)+1),
				RoomType:    cfg.RoomType,
				MaxCapacity: capacity,
				IsVIP:       cfg.IsVIP,
				Occupants:   make([]RoomOccupant, 0, capacity),
			})
		}
	}
	return rooms
}

// ConfiguredCapacity 房型配置的总床位
func (h *Hotel) ConfiguredCapacity() int {
	total := 0
	for _, cfg := range h.RoomConfig {
		capacity := cfg.Capacity
		if capacity <= 0 {
			capacity = cfg.RoomType.DefaultCapacity()
		}
		total += capacity * cfg.Count
	}
	return total
}
