// Package suggest 为客户生成排序后的候选房间
package suggest

import (
	"sort"

	"github.com/paiban/roomassign/pkg/assigner/scoring"
	"github.com/paiban/roomassign/pkg/model"
)

// Suggestion 候选房间
type Suggestion struct {
	HotelID        string         `json:"hotel_id"`
	HotelName      string         `json:"hotel_name"`
	RoomID         string         `json:"room_id"`
	RoomType       model.RoomType `json:"room_type"`
	Score          float64        `json:"score"`
	Reasons        []string       `json:"reasons"`
	AvailableSpots int            `json:"available_spots"`
	OccupancyRate  float64        `json:"occupancy_rate"`
}

// Ref 返回候选房间定位
func (s *Suggestion) Ref() model.RoomRef {
	return model.RoomRef{HotelID: s.HotelID, RoomID: s.RoomID}
}

// Generator 候选房间生成器
type Generator struct {
	scorer *scoring.Scorer
	limit  int
}

// NewGenerator 创建生成器，limit 为0表示不限制返回数量
func NewGenerator(scorer *scoring.Scorer, limit int) *Generator {
	if scorer == nil {
		scorer = scoring.NewScorer(nil, nil)
	}
	return &Generator{scorer: scorer, limit: limit}
}

// Suggest 列出客户可入住的房间，按得分降序
//
// 仅考虑有空位的房间，跳过客户当前所在房间；得分相同时保持酒店、房间顺序。
// 没有可用房间时返回空切片，这是正常结果。
func (g *Generator) Suggest(a *model.Assignment, client *model.Client) []Suggestion {
	current, placed := a.Locate(client.ID)
	result := make([]Suggestion, 0)

	a.EachRoom(func(hotel *model.Hotel, room *model.LogicalRoom) {
		if room.IsFull() {
			return
		}
		if placed && room.Ref() == current {
			return
		}

		c := g.scorer.ScoreCandidate(a, client, room, hotel)
		if !c.Valid {
			return
		}
		result = append(result, Suggestion{
			HotelID:        hotel.ID,
			HotelName:      hotel.Name,
			RoomID:         room.RoomID,
			RoomType:       room.RoomType,
			Score:          c.Score,
			Reasons:        c.Reasons,
			AvailableSpots: room.AvailableSpots(),
			OccupancyRate:  room.OccupancyRate(),
		})
	})

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})

	if g.limit > 0 && len(result) > g.limit {
		result = result[:g.limit]
	}
	return result
}

// FindBestRoomForClient 返回得分最高的候选房间，没有时返回 nil
func (g *Generator) FindBestRoomForClient(a *model.Assignment, client *model.Client) *Suggestion {
	suggestions := g.Suggest(a, client)
	if len(suggestions) == 0 {
		return nil
	}
	best := suggestions[0]
	return &best
}
