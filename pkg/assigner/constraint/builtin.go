package constraint

import (
	"fmt"

	"github.com/paiban/roomassign/pkg/model"
)

// baseConstraint 约束基类
type baseConstraint struct {
	name string
	typ  Type
}

// Name 返回约束名称
func (c *baseConstraint) Name() string { return c.name }

// Type 返回约束类型
func (c *baseConstraint) Type() Type { return c.typ }

// CapacityConstraint 房间容量约束
// 插入前人数等于最大容量即视为已满。
type CapacityConstraint struct {
	baseConstraint
}

// NewCapacityConstraint 创建容量约束
func NewCapacityConstraint() *CapacityConstraint {
	return &CapacityConstraint{baseConstraint{name: "房间容量", typ: TypeCapacity}}
}

// Check 检查房间是否还有空位
func (c *CapacityConstraint) Check(_ model.ClientLookup, _ *model.Client, room *model.LogicalRoom, _ *model.Hotel) (bool, string) {
	if room.OccupantCount() >= room.MaxCapacity {
		return false, fmt.Sprintf("房间 %s 已满（%d/%d）", room.RoomID, room.OccupantCount(), room.MaxCapacity)
	}
	return true, ""
}

// GenderMixingConstraint 性别混住约束
type GenderMixingConstraint struct {
	baseConstraint
}

// NewGenderMixingConstraint 创建性别混住约束
func NewGenderMixingConstraint() *GenderMixingConstraint {
	return &GenderMixingConstraint{baseConstraint{name: "性别混住", typ: TypeGenderMixing}}
}

// Check 酒店不允许混住时，房间内须已有同性别入住者
func (c *GenderMixingConstraint) Check(lookup model.ClientLookup, client *model.Client, room *model.LogicalRoom, hotel *model.Hotel) (bool, string) {
	if hotel.AllowMixedGender || room.OccupantCount() == 0 {
		return true, ""
	}

	occupants := model.ResolveOccupants(lookup, room)
	if len(occupants) == 0 {
		return true, ""
	}
	for _, o := range occupants {
		if o.Gender == client.Gender {
			return true, ""
		}
	}
	return false, fmt.Sprintf("酒店 %s 不允许男女混住，房间 %s 已有其他性别入住者", hotel.Name, room.RoomID)
}

// VIPPlacementConstraint VIP 房型约束
type VIPPlacementConstraint struct {
	baseConstraint
}

// NewVIPPlacementConstraint 创建VIP房型约束
func NewVIPPlacementConstraint() *VIPPlacementConstraint {
	return &VIPPlacementConstraint{baseConstraint{name: "VIP房型", typ: TypeVIPPlacement}}
}

// Check VIP 客户只能入住 VIP 房间
func (c *VIPPlacementConstraint) Check(_ model.ClientLookup, client *model.Client, room *model.LogicalRoom, _ *model.Hotel) (bool, string) {
	if client.IsVIP() && !room.IsVIP {
		return false, fmt.Sprintf("VIP客户 %s 必须入住VIP房间，%s 不是VIP房间", client.FullName(), room.RoomID)
	}
	return true, ""
}
