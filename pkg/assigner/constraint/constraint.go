// Package constraint 定义分房硬约束接口和校验器
package constraint

import (
	"sync"

	"github.com/paiban/roomassign/pkg/logger"
	"github.com/paiban/roomassign/pkg/model"
)

// Type 约束类型标识
type Type string

const (
	TypeCapacity     Type = "capacity"
	TypeGenderMixing Type = "gender_mixing"
	TypeVIPPlacement Type = "vip_placement"
)

// Constraint 约束接口
//
// Check 针对"把 client 放入 room"这一预期操作求值，room 为插入前的状态。
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Check 返回是否满足，不满足时附带原因
	Check(lookup model.ClientLookup, client *model.Client, room *model.LogicalRoom, hotel *model.Hotel) (bool, string)
}

// Violation 约束违反详情
type Violation struct {
	ConstraintType Type   `json:"constraint_type"`
	ConstraintName string `json:"constraint_name"`
	ClientID       string `json:"client_id"`
	HotelID        string `json:"hotel_id"`
	RoomID         string `json:"room_id"`
	Message        string `json:"message"`
}

// Result 校验结果
type Result struct {
	IsValid    bool        `json:"is_valid"`
	Errors     []string    `json:"errors"`
	Violations []Violation `json:"violations,omitempty"`
}

// Validator 约束校验器
type Validator struct {
	constraints []Constraint
	mu          sync.RWMutex
	logger      *logger.EngineLogger
}

// NewValidator 创建空校验器
func NewValidator(log *logger.EngineLogger) *Validator {
	if log == nil {
		log = logger.NewNopEngineLogger()
	}
	return &Validator{
		constraints: make([]Constraint, 0),
		logger:      log,
	}
}

// NewDefaultValidator 创建注册了内置约束的校验器
func NewDefaultValidator(log *logger.EngineLogger) *Validator {
	v := NewValidator(log)
	v.Register(NewCapacityConstraint())
	v.Register(NewGenderMixingConstraint())
	v.Register(NewVIPPlacementConstraint())
	return v
}

// Register 注册约束（同类型约束被替换）
func (v *Validator) Register(c Constraint) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, existing := range v.constraints {
		if existing.Type() == c.Type() {
			v.constraints[i] = c
			return
		}
	}
	v.constraints = append(v.constraints, c)
}

// Unregister 注销约束
func (v *Validator) Unregister(t Type) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, c := range v.constraints {
		if c.Type() == t {
			v.constraints = append(v.constraints[:i], v.constraints[i+1:]...)
			return
		}
	}
}

// GetAll 获取所有约束
func (v *Validator) GetAll() []Constraint {
	v.mu.RLock()
	defer v.mu.RUnlock()

	result := make([]Constraint, len(v.constraints))
	copy(result, v.constraints)
	return result
}

// Validate 校验客户能否放入房间
// 各约束相互独立，全部求值，错误按注册顺序累积。
func (v *Validator) Validate(lookup model.ClientLookup, client *model.Client, room *model.LogicalRoom, hotel *model.Hotel) Result {
	result := Result{
		IsValid: true,
		Errors:  make([]string, 0),
	}

	for _, c := range v.GetAll() {
		ok, msg := c.Check(lookup, client, room, hotel)
		if ok {
			continue
		}
		result.IsValid = false
		result.Errors = append(result.Errors, msg)
		result.Violations = append(result.Violations, Violation{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			ClientID:       client.ID,
			HotelID:        room.HotelID,
			RoomID:         room.RoomID,
			Message:        msg,
		})
		v.logger.ConstraintViolation(c.Name(), msg)
	}

	return result
}

// CanAssign 只判断是否可行
func (v *Validator) CanAssign(lookup model.ClientLookup, client *model.Client, room *model.LogicalRoom, hotel *model.Hotel) bool {
	for _, c := range v.GetAll() {
		if ok, _ := c.Check(lookup, client, room, hotel); !ok {
			return false
		}
	}
	return true
}
