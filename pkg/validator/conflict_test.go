package validator

import (
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/paiban/roomassign/pkg/model"
)

func newConflictAssignment(t *testing.T, place map[string]model.RoomRef) *model.Assignment {
	t.Helper()

	hotels := []*model.Hotel{
		{
			ID:   "h1",
			Name: "海景酒店",
			RoomConfig: []model.RoomTypeConfig{
				{RoomType: model.RoomDouble, Count: 2},
				{RoomType: model.RoomSuite, Count: 1, IsVIP: true},
			},
		},
		{
			ID:               "h2",
			Name:             "青年旅舍",
			AllowMixedGender: true,
			RoomConfig: []model.RoomTypeConfig{
				{RoomType: model.RoomDorm, Count: 1},
			},
		},
	}
	clients := []*model.Client{
		{ID: "m1", Gender: model.GenderMale, ClientType: model.ClientSolo},
		{ID: "m2", Gender: model.GenderMale, ClientType: model.ClientSolo},
		{ID: "f1", Gender: model.GenderFemale, ClientType: model.ClientSolo},
		{ID: "v1", Gender: model.GenderFemale, ClientType: model.ClientVIP},
		{ID: "g1", Gender: model.GenderMale, ClientType: model.ClientGroup, GroupName: "Smith"},
		{ID: "g2", Gender: model.GenderMale, ClientType: model.ClientGroup, GroupName: "Smith"},
		{ID: "g3", Gender: model.GenderFemale, ClientType: model.ClientGroup, GroupName: "Jones"},
	}
	a := model.NewAssignment(hotels, clients)

	now := time.Now()
	ids := make([]string, 0, len(place))
	for id := range place {
		ids = append(ids, id)
	}
	// 固定插入顺序
	sort.Strings(ids)
	for _, id := range ids {
		var err error
		a, err = a.Assign(id, place[id], model.AssignmentManual, now)
		if err != nil {
			t.Fatalf("Assign(%s) error = %v", id, err)
		}
	}
	return a
}

var (
	double1 = model.RoomRef{HotelID: "h1", RoomID: "h1-double-1"}
	double2 = model.RoomRef{HotelID: "h1", RoomID: "h1-double-2"}
	suite3  = model.RoomRef{HotelID: "h1", RoomID: "h1-suite-3"}
	dorm1   = model.RoomRef{HotelID: "h2", RoomID: "h2-dorm-1"}
)

func TestConflictDetector_FindConflicts(t *testing.T) {
	tests := []struct {
		name     string
		place    map[string]model.RoomRef
		expected []ConflictType
	}{
		{
			name:     "无冲突",
			place:    map[string]model.RoomRef{"m1": double1, "m2": double1, "v1": suite3},
			expected: nil,
		},
		{
			name:     "超订",
			place:    map[string]model.RoomRef{"m1": double1, "m2": double1, "g1": double1},
			expected: []ConflictType{ConflictOverCapacity},
		},
		{
			name:     "不允许混住",
			place:    map[string]model.RoomRef{"m1": double2, "f1": double2},
			expected: []ConflictType{ConflictMixedGender},
		},
		{
			name:     "允许混住的酒店",
			place:    map[string]model.RoomRef{"m1": dorm1, "f1": dorm1},
			expected: nil,
		},
		{
			name:     "VIP入住普通房",
			place:    map[string]model.RoomRef{"v1": dorm1},
			expected: []ConflictType{ConflictVIPInRegularRoom},
		},
		{
			name:     "同一房间多种冲突",
			place:    map[string]model.RoomRef{"m1": double1, "m2": double1, "v1": double1},
			expected: []ConflictType{ConflictOverCapacity, ConflictMixedGender, ConflictVIPInRegularRoom},
		},
	}

	detector := NewConflictDetector(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newConflictAssignment(t, tt.place)
			conflicts := detector.FindConflicts(a)

			if len(conflicts) != len(tt.expected) {
				t.Fatalf("Expected %d conflicts, got %d: %+v", len(tt.expected), len(conflicts), conflicts)
			}
			for i, typ := range tt.expected {
				if conflicts[i].Type != typ {
					t.Errorf("conflict %d = %s, expected %s", i, conflicts[i].Type, typ)
				}
			}
		})
	}
}

func TestConflictDetector_Severity(t *testing.T) {
	a := newConflictAssignment(t, map[string]model.RoomRef{"m1": double1, "m2": double1, "v1": double1})
	conflicts := NewConflictDetector(nil).FindConflicts(a)

	expected := map[ConflictType]Severity{
		ConflictOverCapacity:     SeverityCritical,
		ConflictMixedGender:      SeverityHigh,
		ConflictVIPInRegularRoom: SeverityMedium,
	}
	for _, c := range conflicts {
		if c.Severity != expected[c.Type] {
			t.Errorf("%s severity = %s, expected %s", c.Type, c.Severity, expected[c.Type])
		}
		if c.HotelID != "h1" || c.RoomID != "h1-double-1" {
			t.Errorf("%s located at %s/%s", c.Type, c.HotelID, c.RoomID)
		}
	}
	if !BlocksConfirmation(conflicts) {
		t.Error("critical conflict should block confirmation")
	}

	s := Summarize(conflicts)
	if s.Total != 3 || s.Critical != 1 || s.High != 1 || s.Medium != 1 {
		t.Errorf("Summarize() = %+v", s)
	}
}

func TestConflictDetector_Idempotent(t *testing.T) {
	a := newConflictAssignment(t, map[string]model.RoomRef{
		"m1": double1, "m2": double1, "f1": double1, "v1": dorm1, "g1": double2, "g2": suite3,
	})
	detector := NewConflictDetector(nil)

	first := detector.DetectAll(a)
	second := detector.DetectAll(a)
	if !reflect.DeepEqual(first, second) {
		t.Error("DetectAll should be idempotent on an unmodified assignment")
	}
}

func TestFindSeparatedGroups(t *testing.T) {
	a := newConflictAssignment(t, map[string]model.RoomRef{
		"g1": double1, "g2": dorm1, "g3": double2,
	})

	groups := FindSeparatedGroups(a)
	if len(groups) != 1 {
		t.Fatalf("Expected 1 separated group, got %d", len(groups))
	}
	g := groups[0]
	if g.GroupName != "Smith" || len(g.Rooms) != 2 || len(g.Members) != 2 {
		t.Errorf("unexpected group %+v", g)
	}

	conflicts := NewConflictDetector(nil).DetectAll(a)
	last := conflicts[len(conflicts)-1]
	if last.Type != ConflictGroupSeparated || last.Severity != SeverityMedium {
		t.Errorf("DetectAll should report the separated group, got %+v", last)
	}
	if BlocksConfirmation(conflicts) {
		t.Error("separated group must not block confirmation")
	}
}

func TestFindSeparatedGroups_TogetherIsNotSeparated(t *testing.T) {
	a := newConflictAssignment(t, map[string]model.RoomRef{"g1": double1, "g2": double1})
	if groups := FindSeparatedGroups(a); len(groups) != 0 {
		t.Errorf("Expected no separated groups, got %+v", groups)
	}
}

func TestConflictDetector_DetectForRoom(t *testing.T) {
	a := newConflictAssignment(t, map[string]model.RoomRef{"m1": double2, "f1": double2})
	detector := NewConflictDetector(nil)

	if got := detector.DetectForRoom(a, double2); len(got) != 1 {
		t.Errorf("Expected 1 conflict, got %d", len(got))
	}
	if got := detector.DetectForRoom(a, double1); len(got) != 0 {
		t.Errorf("Expected 0 conflicts, got %d", len(got))
	}
	if got := detector.DetectForRoom(a, model.RoomRef{HotelID: "x"}); got != nil {
		t.Errorf("unknown room should yield nil, got %v", got)
	}
}
