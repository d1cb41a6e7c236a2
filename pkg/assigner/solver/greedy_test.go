package solver

import (
	"strings"
	"testing"
	"time"

	"github.com/paiban/roomassign/pkg/model"
)

func TestGreedySolver_AutoAssign(t *testing.T) {
	hotels := []*model.Hotel{
		{
			ID:   "h1",
			Name: "海景酒店",
			RoomConfig: []model.RoomTypeConfig{
				{RoomType: model.RoomSuite, Count: 1, Capacity: 1, IsVIP: true},
				{RoomType: model.RoomDouble, Count: 1},
			},
		},
	}
	clients := []*model.Client{
		{ID: "s1", Gender: model.GenderMale, ClientType: model.ClientSolo},
		{ID: "s2", Gender: model.GenderMale, ClientType: model.ClientSolo},
		{ID: "v1", Gender: model.GenderFemale, ClientType: model.ClientVIP},
	}
	a := model.NewAssignment(hotels, clients)

	solver := NewGreedySolver(nil, nil, nil)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	solver.SetClock(func() time.Time { return fixed })

	next, result := solver.AutoAssign(a, clients)

	if result.Assigned != 3 || result.Failed != 0 {
		t.Fatalf("result = %d/%d, expected 3/0 (%v)", result.Assigned, result.Failed, result.Errors)
	}
	if result.Placements[0].ClientID != "v1" || result.Placements[0].RoomID != "h1-suite-1" {
		t.Errorf("VIP should be placed first into the VIP room, got %+v", result.Placements[0])
	}
	for _, id := range []string{"s1", "s2"} {
		if ref, _ := next.Locate(id); ref.RoomID != "h1-double-2" {
			t.Errorf("%s placed in %s, expected h1-double-2", id, ref.RoomID)
		}
	}

	room, _ := next.Room("h1", "h1-double-2")
	for _, o := range room.Occupants {
		if o.AssignmentType != model.AssignmentAuto || !o.AssignedAt.Equal(fixed) {
			t.Errorf("occupant %+v should be an auto placement at the solver clock", o)
		}
	}

	if a.AssignedCount() != 0 {
		t.Error("input snapshot must not change")
	}
	if next.Version != a.Version+1 {
		t.Errorf("Version = %d, expected %d", next.Version, a.Version+1)
	}
}

func TestGreedySolver_PriorityOrder(t *testing.T) {
	hotels := []*model.Hotel{
		{ID: "h1", RoomConfig: []model.RoomTypeConfig{{RoomType: model.RoomSingle, Count: 1}}},
	}
	clients := []*model.Client{
		{ID: "solo", Gender: model.GenderMale, ClientType: model.ClientSolo},
		{ID: "staff", Gender: model.GenderMale, ClientType: model.ClientStaff},
	}
	a := model.NewAssignment(hotels, clients)

	next, result := NewGreedySolver(nil, nil, nil).AutoAssign(a, clients)

	if result.Assigned != 1 || result.Failed != 1 {
		t.Fatalf("result = %d/%d, expected 1/1", result.Assigned, result.Failed)
	}
	if _, ok := next.Locate("staff"); !ok {
		t.Error("staff has higher priority and should get the only room")
	}
	if len(result.Errors) != 1 || result.Errors[0] == "" {
		t.Errorf("failure should carry a reason, got %v", result.Errors)
	}
}

func TestGreedySolver_Failures(t *testing.T) {
	hotels := []*model.Hotel{
		{ID: "h1", RoomConfig: []model.RoomTypeConfig{{RoomType: model.RoomDouble, Count: 1}}},
	}
	placed := &model.Client{ID: "p", Gender: model.GenderMale, ClientType: model.ClientSolo}
	a := model.NewAssignment(hotels, []*model.Client{placed})
	a, _ = a.Assign("p", model.RoomRef{HotelID: "h1", RoomID: "h1-double-1"}, model.AssignmentManual, time.Now())

	tests := []struct {
		name     string
		client   *model.Client
		contains string
	}{
		{"已分房", placed, "已分配"},
		{"VIP没有VIP房", &model.Client{ID: "v", Gender: model.GenderMale, ClientType: model.ClientVIP}, "没有满足约束"},
		{"混住被拒绝", &model.Client{ID: "f", Gender: model.GenderFemale, ClientType: model.ClientSolo}, "没有满足约束"},
	}

	solver := NewGreedySolver(nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, result := solver.AutoAssign(a, []*model.Client{tt.client})
			if result.Failed != 1 || result.Assigned != 0 {
				t.Fatalf("result = %d/%d, expected 0/1", result.Assigned, result.Failed)
			}
			if !strings.Contains(result.Errors[0], tt.contains) {
				t.Errorf("error %q should contain %q", result.Errors[0], tt.contains)
			}
			if _, ok := next.Client(tt.client.ID); !ok {
				t.Error("unknown clients should be registered in the returned snapshot")
			}
		})
	}
}

func TestGreedySolver_NeverOverbooks(t *testing.T) {
	hotels := []*model.Hotel{
		{ID: "h1", AllowMixedGender: true, RoomConfig: []model.RoomTypeConfig{{RoomType: model.RoomTriple, Count: 2}}},
	}
	var clients []*model.Client
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		clients = append(clients, &model.Client{ID: id, Gender: model.GenderOther, ClientType: model.ClientSolo})
	}
	a := model.NewAssignment(hotels, clients)

	next, result := NewGreedySolver(nil, nil, nil).AutoAssign(a, clients)
	if result.Assigned != 6 || result.Failed != 2 {
		t.Errorf("result = %d/%d, expected 6/2", result.Assigned, result.Failed)
	}
	next.EachRoom(func(_ *model.Hotel, r *model.LogicalRoom) {
		if r.IsOverCapacity() {
			t.Errorf("room %s overbooked", r.RoomID)
		}
	})
	if dups := next.DuplicateOccupants(); len(dups) != 0 {
		t.Errorf("duplicate occupants: %v", dups)
	}
}
