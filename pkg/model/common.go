// Package model 定义分房引擎的核心数据模型
package model

// Location 地理位置
type Location struct {
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
}

// RoomRef 房间定位（酒店ID + 房间ID）
type RoomRef struct {
	HotelID string `json:"hotel_id"`
	RoomID  string `json:"room_id"`
}

// String 返回 hotel/room 形式
func (r RoomRef) String() string {
	return r.HotelID + "/" + r.RoomID
}

// ClientLookup 客户查询接口
type ClientLookup interface {
	Client(id string) (*Client, bool)
}

// Percent 计算百分比，分母为0时返回0
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
