// Package model 定义分房引擎的核心数据模型
package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/roomassign/pkg/errors"
)

// Assignment 分房方案快照
//
// 快照按写时复制使用：所有修改方法返回新快照，原快照保持不变。
// 酒店与客户视为不可变数据，在快照间共享；房间及入住列表每次复制。
// 同一客户在整个方案中至多出现在一个房间。
type Assignment struct {
	ID      uuid.UUID                 `json:"id"`
	Version int                       `json:"version"`
	Hotels  []*Hotel                  `json:"hotels"`
	Rooms   map[string][]*LogicalRoom `json:"rooms"`   // key: hotel id
	Clients map[string]*Client        `json:"clients"` // key: client id
}

// NewAssignment 创建空方案，按房型配置生成各酒店房间
func NewAssignment(hotels []*Hotel, clients []*Client) *Assignment {
	a := &Assignment{
		ID:      uuid.New(),
		Hotels:  make([]*Hotel, 0, len(hotels)),
		Rooms:   make(map[string][]*LogicalRoom, len(hotels)),
		Clients: make(map[string]*Client, len(clients)),
	}
	for _, h := range hotels {
		a.Hotels = append(a.Hotels, h)
		a.Rooms[h.ID] = GenerateRooms(h)
	}
	for _, c := range clients {
		a.Clients[c.ID] = c
	}
	return a
}

// Clone 深拷贝方案（房间与入住记录复制，酒店与客户共享）
func (a *Assignment) Clone() *Assignment {
	clone := &Assignment{
		ID:      a.ID,
		Version: a.Version,
		Hotels:  make([]*Hotel, len(a.Hotels)),
		Rooms:   make(map[string][]*LogicalRoom, len(a.Rooms)),
		Clients: make(map[string]*Client, len(a.Clients)),
	}
	copy(clone.Hotels, a.Hotels)
	for hotelID, rooms := range a.Rooms {
		cloned := make([]*LogicalRoom, len(rooms))
		for i, r := range rooms {
			cloned[i] = r.Clone()
		}
		clone.Rooms[hotelID] = cloned
	}
	for id, c := range a.Clients {
		clone.Clients[id] = c
	}
	return clone
}

// Hotel 按ID查询酒店
func (a *Assignment) Hotel(id string) (*Hotel, bool) {
	for _, h := range a.Hotels {
		if h.ID == id {
			return h, true
		}
	}
	return nil, false
}

// Room 按定位查询房间
func (a *Assignment) Room(hotelID, roomID string) (*LogicalRoom, bool) {
	for _, r := range a.Rooms[hotelID] {
		if r.RoomID == roomID {
			return r, true
		}
	}
	return nil, false
}

// Client 按ID查询客户
func (a *Assignment) Client(id string) (*Client, bool) {
	c, ok := a.Clients[id]
	return c, ok
}

// Locate 查找客户所在房间
func (a *Assignment) Locate(clientID string) (RoomRef, bool) {
	for _, h := range a.Hotels {
		for _, r := range a.Rooms[h.ID] {
			if r.HasOccupant(clientID) {
				return r.Ref(), true
			}
		}
	}
	return RoomRef{}, false
}

// EachRoom 按酒店顺序、房间顺序遍历
func (a *Assignment) EachRoom(fn func(h *Hotel, r *LogicalRoom)) {
	for _, h := range a.Hotels {
		for _, r := range a.Rooms[h.ID] {
			fn(h, r)
		}
	}
}

// OccupantClients 解析房间内的客户（目录中缺失的客户被跳过）
func (a *Assignment) OccupantClients(r *LogicalRoom) []*Client {
	return ResolveOccupants(a, r)
}

// ResolveOccupants 通过查询接口解析房间内的客户
func ResolveOccupants(lookup ClientLookup, r *LogicalRoom) []*Client {
	clients := make([]*Client, 0, len(r.Occupants))
	for _, o := range r.Occupants {
		if c, ok := lookup.Client(o.ClientID); ok {
			clients = append(clients, c)
		}
	}
	return clients
}

// AssignedCount 已分房人数
func (a *Assignment) AssignedCount() int {
	count := 0
	a.EachRoom(func(_ *Hotel, r *LogicalRoom) {
		count += len(r.Occupants)
	})
	return count
}

// UnassignedClients 未分房客户（按ID排序）
func (a *Assignment) UnassignedClients() []*Client {
	assigned := make(map[string]bool)
	a.EachRoom(func(_ *Hotel, r *LogicalRoom) {
		for _, o := range r.Occupants {
			assigned[o.ClientID] = true
		}
	})

	result := make([]*Client, 0)
	for id, c := range a.Clients {
		if !assigned[id] {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// WithClients 返回登记了新客户的快照（已存在的ID被覆盖）
func (a *Assignment) WithClients(clients ...*Client) *Assignment {
	next := a.Clone()
	for _, c := range clients {
		next.Clients[c.ID] = c
	}
	next.Version++
	return next
}

// WithOccupantAdded 返回将客户加入指定房间的新快照
// 客户若已在其他房间，先从原房间移除；不检查容量（超订可表示，由冲突检测发现）。
func (a *Assignment) WithOccupantAdded(ref RoomRef, occupant RoomOccupant) (*Assignment, error) {
	if _, ok := a.Hotel(ref.HotelID); !ok {
		return nil, errors.HotelNotFound(ref.HotelID)
	}
	if _, ok := a.Room(ref.HotelID, ref.RoomID); !ok {
		return nil, errors.RoomNotFound(ref.HotelID, ref.RoomID)
	}
	if _, ok := a.Clients[occupant.ClientID]; !ok {
		return nil, errors.ClientNotFound(occupant.ClientID)
	}

	next := a.Clone()
	next.removeOccupant(occupant.ClientID)
	room, _ := next.Room(ref.HotelID, ref.RoomID)
	room.Occupants = append(room.Occupants, occupant)
	next.Version++
	return next, nil
}

// WithOccupantRemoved 返回将客户移出房间的新快照
func (a *Assignment) WithOccupantRemoved(clientID string) (*Assignment, error) {
	if _, ok := a.Clients[clientID]; !ok {
		return nil, errors.ClientNotFound(clientID)
	}
	if _, ok := a.Locate(clientID); !ok {
		return nil, errors.ClientNotAssigned(clientID)
	}

	next := a.Clone()
	next.removeOccupant(clientID)
	next.Version++
	return next, nil
}

// removeOccupant 就地移除客户（仅用于刚复制的快照）
func (a *Assignment) removeOccupant(clientID string) (RoomOccupant, bool) {
	for _, h := range a.Hotels {
		for _, r := range a.Rooms[h.ID] {
			if idx := r.occupantIndex(clientID); idx >= 0 {
				removed := r.Occupants[idx]
				r.Occupants = append(r.Occupants[:idx], r.Occupants[idx+1:]...)
				return removed, true
			}
		}
	}
	return RoomOccupant{}, false
}

// Assign 分配客户到房间
func (a *Assignment) Assign(clientID string, ref RoomRef, kind AssignmentType, at time.Time) (*Assignment, error) {
	return a.WithOccupantAdded(ref, RoomOccupant{
		ClientID:       clientID,
		AssignedAt:     at,
		AssignmentType: kind,
	})
}

// Unassign 取消客户分房
func (a *Assignment) Unassign(clientID string) (*Assignment, error) {
	return a.WithOccupantRemoved(clientID)
}

// Move 将已分房客户移到另一个房间
func (a *Assignment) Move(clientID string, to RoomRef, kind AssignmentType, at time.Time) (*Assignment, error) {
	if _, ok := a.Clients[clientID]; !ok {
		return nil, errors.ClientNotFound(clientID)
	}
	if _, ok := a.Locate(clientID); !ok {
		return nil, errors.ClientNotAssigned(clientID)
	}
	return a.Assign(clientID, to, kind, at)
}

// Swap 交换两个已分房客户的房间
func (a *Assignment) Swap(clientA, clientB string, kind AssignmentType, at time.Time) (*Assignment, error) {
	for _, id := range []string{clientA, clientB} {
		if _, ok := a.Clients[id]; !ok {
			return nil, errors.ClientNotFound(id)
		}
	}
	refA, ok := a.Locate(clientA)
	if !ok {
		return nil, errors.ClientNotAssigned(clientA)
	}
	refB, ok := a.Locate(clientB)
	if !ok {
		return nil, errors.ClientNotAssigned(clientB)
	}
	if refA == refB {
		return a.Clone(), nil
	}

	next, err := a.Assign(clientA, refB, kind, at)
	if err != nil {
		return nil, err
	}
	next, err = next.Assign(clientB, refA, kind, at)
	if err != nil {
		return nil, err
	}
	next.Version = a.Version + 1
	return next, nil
}

// MoveInPlace 就地移动客户（调用方须持有独占的快照副本，如优化器种群个体）
func (a *Assignment) MoveInPlace(clientID string, to RoomRef, kind AssignmentType, at time.Time) bool {
	room, ok := a.Room(to.HotelID, to.RoomID)
	if !ok {
		return false
	}
	if _, ok := a.removeOccupant(clientID); !ok {
		return false
	}
	room.Occupants = append(room.Occupants, RoomOccupant{
		ClientID:       clientID,
		AssignedAt:     at,
		AssignmentType: kind,
	})
	return true
}

// DuplicateOccupants 返回出现在多个房间的客户ID（正常方案应为空）
func (a *Assignment) DuplicateOccupants() []string {
	seen := make(map[string]int)
	a.EachRoom(func(_ *Hotel, r *LogicalRoom) {
		for _, o := range r.Occupants {
			seen[o.ClientID]++
		}
	})
	var dups []string
	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}

// Validate 检查方案数据一致性
//
// 外部载入的快照在进入引擎前调用：酒店与房间归属、客户目录、
// 客户枚举取值以及同一客户至多入住一个房间。
func (a *Assignment) Validate() error {
	var problems []string

	hotelIDs := make(map[string]bool, len(a.Hotels))
	for i, h := range a.Hotels {
		switch {
		case h == nil || h.ID == "":
			problems = append(problems, fmt.Sprintf("第 %d 个酒店缺少ID", i+1))
		case hotelIDs[h.ID]:
			problems = append(problems, fmt.Sprintf("酒店ID重复: %s", h.ID))
		default:
			hotelIDs[h.ID] = true
		}
	}

	for id, c := range a.Clients {
		if c == nil {
			problems = append(problems, fmt.Sprintf("客户 %s 数据为空", id))
			continue
		}
		if c.ID != id {
			problems = append(problems, fmt.Sprintf("客户目录键 %s 与客户ID %s 不一致", id, c.ID))
			continue
		}
		if err := c.Validate(); err != nil {
			problems = append(problems, err.Message)
		}
	}

	for hotelID, rooms := range a.Rooms {
		if !hotelIDs[hotelID] {
			problems = append(problems, fmt.Sprintf("房间归属未知酒店 %s", hotelID))
		}
		roomIDs := make(map[string]bool, len(rooms))
		for _, r := range rooms {
			if r == nil {
				problems = append(problems, fmt.Sprintf("酒店 %s 存在空房间", hotelID))
				continue
			}
			if r.HotelID != hotelID {
				problems = append(problems, fmt.Sprintf("房间 %s 的酒店ID %s 与所属酒店 %s 不一致", r.RoomID, r.HotelID, hotelID))
			}
			if roomIDs[r.RoomID] {
				problems = append(problems, fmt.Sprintf("酒店 %s 房间ID重复: %s", hotelID, r.RoomID))
			}
			roomIDs[r.RoomID] = true
			for _, o := range r.Occupants {
				if _, ok := a.Clients[o.ClientID]; !ok {
					problems = append(problems, fmt.Sprintf("房间 %s 中的客户 %s 不在客户目录中", r.RoomID, o.ClientID))
				}
			}
		}
	}

	// 结构有误时 EachRoom 无法安全遍历
	if len(problems) == 0 {
		if dups := a.DuplicateOccupants(); len(dups) > 0 {
			problems = append(problems, fmt.Sprintf("客户同时入住多个房间: %s", strings.Join(dups, ", ")))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errors.New(errors.CodeInvalidInput, "方案数据不一致").
		WithDetails(strings.Join(problems, "; ")).
		WithField("problems", problems)
}
