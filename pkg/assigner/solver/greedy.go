// Package solver 提供自动分房求解器
package solver

import (
	"fmt"
	"sort"
	"time"

	"github.com/paiban/roomassign/pkg/assigner/suggest"
	"github.com/paiban/roomassign/pkg/logger"
	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/rules"
)

// Placement 一次自动分配
type Placement struct {
	ClientID string  `json:"client_id"`
	HotelID  string  `json:"hotel_id"`
	RoomID   string  `json:"room_id"`
	Score    float64 `json:"score"`
}

// Result 自动分房结果
type Result struct {
	Assigned   int           `json:"assigned"`
	Failed     int           `json:"failed"`
	Errors     []string      `json:"errors"`
	Placements []Placement   `json:"placements"`
	Duration   time.Duration `json:"duration"`
}

// GreedySolver 贪心求解器
//
// 按客户类型优先级依次为每位客户选择当前得分最高的房间，不回溯、不前瞻：
// 局部最优的选择可能占掉后续客户需要的空位。
type GreedySolver struct {
	cfg       *rules.Config
	generator *suggest.Generator
	logger    *logger.EngineLogger
	now       func() time.Time
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver(cfg *rules.Config, generator *suggest.Generator, log *logger.EngineLogger) *GreedySolver {
	if cfg == nil {
		cfg = rules.DefaultConfig()
	}
	if generator == nil {
		generator = suggest.NewGenerator(nil, 0)
	}
	if log == nil {
		log = logger.NewNopEngineLogger()
	}
	return &GreedySolver{
		cfg:       cfg,
		generator: generator,
		logger:    log,
		now:       time.Now,
	}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// SetClock 设置时间来源
func (s *GreedySolver) SetClock(now func() time.Time) {
	s.now = now
}

// AutoAssign 为客户自动分房，返回新快照
// 目录中没有的客户先登记；已分房的客户记为失败。
func (s *GreedySolver) AutoAssign(a *model.Assignment, clients []*model.Client) (*model.Assignment, *Result) {
	startTime := time.Now()
	s.logger.OperationStart("auto_assign", len(clients), countRooms(a))

	result := &Result{
		Errors:     make([]string, 0),
		Placements: make([]Placement, 0),
	}

	var missing []*model.Client
	for _, c := range clients {
		if _, ok := a.Client(c.ID); !ok {
			missing = append(missing, c)
		}
	}
	next := a.Clone()
	if len(missing) > 0 {
		next = next.WithClients(missing...)
	}

	// 按优先级排序，同优先级保持输入顺序
	ordered := make([]*model.Client, len(clients))
	copy(ordered, clients)
	sort.SliceStable(ordered, func(i, j int) bool {
		return s.cfg.Priority(ordered[i].ClientType) > s.cfg.Priority(ordered[j].ClientType)
	})

	at := s.now()
	for _, client := range ordered {
		if ref, ok := next.Locate(client.ID); ok {
			s.fail(result, client, fmt.Sprintf("客户 %s 已分配在 %s", client.FullName(), ref))
			continue
		}

		best := s.generator.FindBestRoomForClient(next, client)
		if best == nil {
			s.fail(result, client, fmt.Sprintf("客户 %s 没有满足约束的可用房间", client.FullName()))
			continue
		}

		room, ok := next.Room(best.HotelID, best.RoomID)
		if !ok || room.IsFull() {
			s.fail(result, client, fmt.Sprintf("客户 %s 的目标房间 %s 已满", client.FullName(), best.RoomID))
			continue
		}

		placed, err := next.Assign(client.ID, best.Ref(), model.AssignmentAuto, at)
		if err != nil {
			s.fail(result, client, err.Error())
			continue
		}
		next = placed
		result.Assigned++
		result.Placements = append(result.Placements, Placement{
			ClientID: client.ID,
			HotelID:  best.HotelID,
			RoomID:   best.RoomID,
			Score:    best.Score,
		})
	}

	next.Version = a.Version + 1
	result.Duration = time.Since(startTime)
	s.logger.OperationComplete("auto_assign", result.Duration, map[string]interface{}{
		"assigned": result.Assigned,
		"failed":   result.Failed,
	})
	return next, result
}

func (s *GreedySolver) fail(result *Result, client *model.Client, reason string) {
	result.Failed++
	result.Errors = append(result.Errors, reason)
	s.logger.PlacementFailed(client.ID, reason)
}

func countRooms(a *model.Assignment) int {
	n := 0
	for _, rooms := range a.Rooms {
		n += len(rooms)
	}
	return n
}
