// Package model 定义分房引擎的核心数据模型
package model

import (
	"fmt"
	"strings"

	"github.com/paiban/roomassign/pkg/errors"
)

// Gender 性别
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// IsValid 检查性别取值
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// ClientType 客户类型
type ClientType string

const (
	ClientVIP        ClientType = "vip"
	ClientInfluencer ClientType = "influencer"
	ClientStaff      ClientType = "staff"
	ClientGroup      ClientType = "group"
	ClientSolo       ClientType = "solo"
)

// AllClientTypes 所有客户类型（报表输出顺序）
var AllClientTypes = []ClientType{ClientVIP, ClientInfluencer, ClientStaff, ClientGroup, ClientSolo}

// IsValid 检查客户类型取值
func (t ClientType) IsValid() bool {
	for _, ct := range AllClientTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// PreferredHotelKey 偏好酒店的偏好键
const PreferredHotelKey = "preferred_hotel"

// Client 参会客户
type Client struct {
	ID          string            `json:"id"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Gender      Gender            `json:"gender"`
	ClientType  ClientType        `json:"client_type"`
	GroupName   string            `json:"group_name,omitempty"`
	Age         *int              `json:"age,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// FullName 返回全名
func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// IsVIP 是否为VIP客户
func (c *Client) IsVIP() bool {
	return c.ClientType == ClientVIP
}

// InGroup 是否属于某个团组
func (c *Client) InGroup() bool {
	return c.GroupName != ""
}

// Preference 获取偏好值
func (c *Client) Preference(key string) (string, bool) {
	if c.Preferences == nil {
		return "", false
	}
	v, ok := c.Preferences[key]
	return v, ok && v != ""
}

// Validate 检查客户标识与枚举取值
func (c *Client) Validate() *errors.AppError {
	if c.ID == "" {
		return errors.InvalidInput("client.id", "不能为空")
	}
	if !c.Gender.IsValid() {
		return errors.InvalidInput("client.gender", fmt.Sprintf("客户 %s 的性别 %q 无效", c.ID, c.Gender)).
			WithField("client_id", c.ID)
	}
	if !c.ClientType.IsValid() {
		return errors.InvalidInput("client.client_type", fmt.Sprintf("客户 %s 的类型 %q 无效", c.ID, c.ClientType)).
			WithField("client_id", c.ID)
	}
	return nil
}
