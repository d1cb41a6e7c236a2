// Package validator 提供分房方案冲突检测功能
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paiban/roomassign/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictOverCapacity     ConflictType = "OVER_CAPACITY"            // 超订
	ConflictMixedGender      ConflictType = "MIXED_GENDER_NOT_ALLOWED" // 不允许的男女混住
	ConflictVIPInRegularRoom ConflictType = "VIP_IN_REGULAR_ROOM"      // VIP 入住普通房
	ConflictGroupSeparated   ConflictType = "GROUP_SEPARATED"          // 团队被拆分
)

// Severity 冲突严重程度
type Severity string

const (
	SeverityCritical Severity = "critical" // 阻止确认
	SeverityHigh     Severity = "high"     // 强警告
	SeverityMedium   Severity = "medium"   // 提示
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType           `json:"type"`
	Severity Severity               `json:"severity"`
	Message  string                 `json:"message"`
	HotelID  string                 `json:"hotel_id,omitempty"`
	RoomID   string                 `json:"room_id,omitempty"`
	ClientID string                 `json:"client_id,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// SeparatedGroup 被拆分的团队
type SeparatedGroup struct {
	GroupName string          `json:"group_name"`
	Members   []string        `json:"members"`
	Rooms     []model.RoomRef `json:"rooms"`
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	CheckCapacity    bool // 是否检查超订
	CheckMixedGender bool // 是否检查混住
	CheckVIPRooms    bool // 是否检查VIP房型
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckCapacity:    true,
		CheckMixedGender: true,
		CheckVIPRooms:    true,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// FindConflicts 扫描所有房间的冲突
// 结果顺序确定：按酒店、房间顺序，同一房间内依次为超订、混住、VIP。
func (d *ConflictDetector) FindConflicts(a *model.Assignment) []Conflict {
	conflicts := make([]Conflict, 0)
	a.EachRoom(func(hotel *model.Hotel, room *model.LogicalRoom) {
		conflicts = append(conflicts, d.detectRoom(a, hotel, room)...)
	})
	return conflicts
}

// DetectForRoom 检测单个房间的冲突
func (d *ConflictDetector) DetectForRoom(a *model.Assignment, ref model.RoomRef) []Conflict {
	hotel, ok := a.Hotel(ref.HotelID)
	if !ok {
		return nil
	}
	room, ok := a.Room(ref.HotelID, ref.RoomID)
	if !ok {
		return nil
	}
	return d.detectRoom(a, hotel, room)
}

// DetectAll 检测房间冲突和团队拆分
func (d *ConflictDetector) DetectAll(a *model.Assignment) []Conflict {
	conflicts := d.FindConflicts(a)
	for _, g := range FindSeparatedGroups(a) {
		rooms := make([]string, 0, len(g.Rooms))
		for _, r := range g.Rooms {
			rooms = append(rooms, r.String())
		}
		conflicts = append(conflicts, Conflict{
			Type:     ConflictGroupSeparated,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("团队 %s 的 %d 名成员分散在 %d 个房间", g.GroupName, len(g.Members), len(g.Rooms)),
			Details: map[string]interface{}{
				"group_name": g.GroupName,
				"members":    g.Members,
				"rooms":      rooms,
			},
		})
	}
	return conflicts
}

func (d *ConflictDetector) detectRoom(a *model.Assignment, hotel *model.Hotel, room *model.LogicalRoom) []Conflict {
	var conflicts []Conflict

	if d.config.CheckCapacity && room.IsOverCapacity() {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictOverCapacity,
			Severity: SeverityCritical,
			Message: fmt.Sprintf("房间 %s 超订：%d 人入住，最大容量 %d",
				room.RoomID, room.OccupantCount(), room.MaxCapacity),
			HotelID: hotel.ID,
			RoomID:  room.RoomID,
			Details: map[string]interface{}{
				"occupants":    room.OccupantCount(),
				"max_capacity": room.MaxCapacity,
			},
		})
	}

	occupants := a.OccupantClients(room)

	if d.config.CheckMixedGender && !hotel.AllowMixedGender {
		if genders := distinctGenders(occupants); len(genders) >= 2 {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictMixedGender,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("酒店 %s 不允许男女混住，房间 %s 有 %s", hotel.Name, room.RoomID, strings.Join(genders, "/")),
				HotelID:  hotel.ID,
				RoomID:   room.RoomID,
				Details: map[string]interface{}{
					"genders": genders,
				},
			})
		}
	}

	if d.config.CheckVIPRooms && !room.IsVIP {
		for _, c := range occupants {
			if !c.IsVIP() {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Type:     ConflictVIPInRegularRoom,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("VIP客户 %s 入住了普通房间 %s", c.FullName(), room.RoomID),
				HotelID:  hotel.ID,
				RoomID:   room.RoomID,
				ClientID: c.ID,
			})
		}
	}

	return conflicts
}

// FindSeparatedGroups 查找成员分散在多个房间的团队（按团队名排序）
func FindSeparatedGroups(a *model.Assignment) []SeparatedGroup {
	type groupState struct {
		members []string
		rooms   []model.RoomRef
		seen    map[model.RoomRef]bool
	}
	groups := make(map[string]*groupState)

	a.EachRoom(func(_ *model.Hotel, room *model.LogicalRoom) {
		for _, c := range a.OccupantClients(room) {
			if !c.InGroup() {
				continue
			}
			g, ok := groups[c.GroupName]
			if !ok {
				g = &groupState{seen: make(map[model.RoomRef]bool)}
				groups[c.GroupName] = g
			}
			g.members = append(g.members, c.ID)
			if ref := room.Ref(); !g.seen[ref] {
				g.seen[ref] = true
				g.rooms = append(g.rooms, ref)
			}
		}
	})

	result := make([]SeparatedGroup, 0)
	for name, g := range groups {
		if len(g.rooms) < 2 {
			continue
		}
		result = append(result, SeparatedGroup{GroupName: name, Members: g.members, Rooms: g.rooms})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GroupName < result[j].GroupName })
	return result
}

// Summary 冲突统计
type Summary struct {
	Total    int                  `json:"total"`
	Critical int                  `json:"critical"`
	High     int                  `json:"high"`
	Medium   int                  `json:"medium"`
	ByType   map[ConflictType]int `json:"by_type"`
}

// Summarize 按严重程度统计冲突
func Summarize(conflicts []Conflict) Summary {
	s := Summary{Total: len(conflicts), ByType: make(map[ConflictType]int)}
	for _, c := range conflicts {
		switch c.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		}
		s.ByType[c.Type]++
	}
	return s
}

// BlocksConfirmation 存在严重冲突时不能确认方案
func BlocksConfirmation(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func distinctGenders(clients []*model.Client) []string {
	seen := make(map[model.Gender]bool)
	var genders []string
	for _, c := range clients {
		if !seen[c.Gender] {
			seen[c.Gender] = true
			genders = append(genders, string(c.Gender))
		}
	}
	sort.Strings(genders)
	return genders
}
