package engine

import (
	"testing"

	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/rules"
	"github.com/paiban/roomassign/pkg/validator"
)

func newEngineAssignment(e *Engine) *model.Assignment {
	hotels := []*model.Hotel{
		{ID: "h1", Name: "海景酒店", RoomConfig: []model.RoomTypeConfig{
			{RoomType: model.RoomDouble, Count: 2},
			{RoomType: model.RoomSuite, Count: 1, IsVIP: true},
		}},
	}
	clients := []*model.Client{
		{ID: "m1", Gender: model.GenderMale, ClientType: model.ClientSolo},
		{ID: "m2", Gender: model.GenderMale, ClientType: model.ClientSolo},
		{ID: "m3", Gender: model.GenderMale, ClientType: model.ClientSolo},
		{ID: "f1", Gender: model.GenderFemale, ClientType: model.ClientSolo},
		{ID: "v1", Gender: model.GenderFemale, ClientType: model.ClientVIP},
	}
	return e.NewAssignment(hotels, clients)
}

func ref(roomID string) model.RoomRef {
	return model.RoomRef{HotelID: "h1", RoomID: roomID}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := rules.DefaultConfig()
	cfg.Genetic.PopulationSize = 0

	if _, err := New(cfg); err == nil {
		t.Error("New() should reject an invalid config")
	}
}

func TestEngine_ConfigIsCopy(t *testing.T) {
	e := newTestEngine(t)
	cfg := e.Config()
	cfg.SuggestionLimit = 1

	if e.Config().SuggestionLimit == 1 {
		t.Error("Config() should return a copy")
	}
}

func TestEngine_ManualAssign(t *testing.T) {
	e := newTestEngine(t)
	a := newEngineAssignment(e)

	a, conflicts, err := e.ManualAssign(a, "m1", ref("h1-double-1"), false)
	if err != nil {
		t.Fatalf("ManualAssign() error = %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("conflicts = %v", conflicts)
	}
	if a.Version != 1 {
		t.Errorf("Version = %d, expected 1", a.Version)
	}

	t.Run("违反约束返回错误", func(t *testing.T) {
		before := a.Version
		_, _, err := e.ManualAssign(a, "f1", ref("h1-double-1"), false)
		if !errors.Is(err, errors.CodeConstraintViolation) {
			t.Fatalf("error = %v, expected CONSTRAINT_VIOLATION", err)
		}
		appErr, _ := errors.As(err)
		if appErr.Fields["client_id"] != "f1" {
			t.Errorf("Fields = %v", appErr.Fields)
		}
		if a.Version != before {
			t.Error("failed assignment must not change the input snapshot")
		}
	})

	t.Run("强制分房返回冲突", func(t *testing.T) {
		next, conflicts, err := e.ManualAssign(a, "f1", ref("h1-double-1"), true)
		if err != nil {
			t.Fatalf("ManualAssign(force) error = %v", err)
		}
		if len(conflicts) != 1 || conflicts[0].Type != validator.ConflictMixedGender {
			t.Errorf("conflicts = %+v", conflicts)
		}
		room, _ := next.Room("h1", "h1-double-1")
		if room.OccupantCount() != 2 {
			t.Errorf("OccupantCount() = %d", room.OccupantCount())
		}
	})

	t.Run("强制超订", func(t *testing.T) {
		next, _, _ := e.ManualAssign(a, "m2", ref("h1-double-1"), false)
		next, conflicts, err := e.ManualAssign(next, "m3", ref("h1-double-1"), true)
		if err != nil {
			t.Fatalf("ManualAssign(force) error = %v", err)
		}
		if len(conflicts) == 0 || conflicts[0].Type != validator.ConflictOverCapacity || conflicts[0].Severity != validator.SeverityCritical {
			t.Errorf("conflicts = %+v", conflicts)
		}
	})

	t.Run("重复分配到同一房间", func(t *testing.T) {
		next, _, err := e.ManualAssign(a, "m1", ref("h1-double-1"), false)
		if err != nil {
			t.Fatalf("ManualAssign() error = %v", err)
		}
		room, _ := next.Room("h1", "h1-double-1")
		if room.OccupantCount() != 1 {
			t.Errorf("OccupantCount() = %d, expected 1", room.OccupantCount())
		}
	})

	t.Run("引用不存在", func(t *testing.T) {
		tests := []struct {
			name     string
			clientID string
			ref      model.RoomRef
			code     errors.Code
		}{
			{"客户", "nobody", ref("h1-double-1"), errors.CodeClientNotFound},
			{"酒店", "m2", model.RoomRef{HotelID: "h9", RoomID: "x"}, errors.CodeHotelNotFound},
			{"房间", "m2", ref("h1-double-9"), errors.CodeRoomNotFound},
		}
		for _, tt := range tests {
			_, _, err := e.ManualAssign(a, tt.clientID, tt.ref, false)
			if !errors.Is(err, tt.code) {
				t.Errorf("%s: error = %v, expected %s", tt.name, err, tt.code)
			}
		}
	})
}

func TestEngine_MoveAndSwap(t *testing.T) {
	e := newTestEngine(t)
	a := newEngineAssignment(e)

	if _, err := e.Move(a, "m1", ref("h1-double-2")); !errors.Is(err, errors.CodeClientNotAssigned) {
		t.Errorf("Move(unassigned) error = %v", err)
	}
	if _, err := e.Move(a, "ghost", ref("h1-double-2")); !errors.Is(err, errors.CodeClientNotFound) {
		t.Errorf("Move(unknown) error = %v", err)
	}

	a, _, _ = e.ManualAssign(a, "m1", ref("h1-double-1"), false)
	a, _, _ = e.ManualAssign(a, "f1", ref("h1-double-2"), false)

	moved, err := e.Move(a, "m1", ref("h1-double-2"))
	if !errors.Is(err, errors.CodeConstraintViolation) {
		t.Errorf("Move into a mixed room error = %v", err)
	}
	if moved != nil {
		t.Error("failed move should not return a snapshot")
	}

	swapped, err := e.Swap(a, "m1", "f1")
	if err != nil {
		t.Fatalf("Swap() error = %v", err)
	}
	if r, _ := swapped.Locate("m1"); r.RoomID != "h1-double-2" {
		t.Errorf("m1 in %s after swap", r.RoomID)
	}
	if swapped.Version != a.Version+1 {
		t.Errorf("Version = %d, expected %d", swapped.Version, a.Version+1)
	}

	unassigned, err := e.Unassign(swapped, "m1")
	if err != nil {
		t.Fatalf("Unassign() error = %v", err)
	}
	if _, ok := unassigned.Locate("m1"); ok {
		t.Error("m1 should be unassigned")
	}
}

func TestEngine_SuggestAndScore(t *testing.T) {
	e := newTestEngine(t)
	a := newEngineAssignment(e)

	suggestions, err := e.Suggest(a, "v1")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].RoomID != "h1-suite-3" {
		t.Errorf("VIP suggestions = %+v", suggestions)
	}

	best, err := e.FindBestRoom(a, "v1")
	if err != nil || best == nil || best.RoomID != "h1-suite-3" {
		t.Errorf("FindBestRoom() = %+v, %v", best, err)
	}

	candidate, err := e.ScoreCandidate(a, "v1", ref("h1-double-1"))
	if err != nil {
		t.Fatalf("ScoreCandidate() error = %v", err)
	}
	if candidate.Valid || candidate.Score != 0 {
		t.Errorf("VIP in regular room = %+v", candidate)
	}

	if _, err := e.Suggest(a, "ghost"); !errors.Is(err, errors.CodeClientNotFound) {
		t.Errorf("Suggest(unknown) error = %v", err)
	}
}

func TestEngine_Reports(t *testing.T) {
	e := newTestEngine(t)
	a := newEngineAssignment(e)
	a, result := e.AutoAssign(a, nil)

	r := e.Report(a)
	if r.AssignedClients != result.Assigned || r.UnassignedClients != result.Failed {
		t.Errorf("report %d/%d vs auto assign %d/%d", r.AssignedClients, r.UnassignedClients, result.Assigned, result.Failed)
	}
	if r.QualityScore != e.QualityScore(a) {
		t.Errorf("QualityScore mismatch: %d vs %d", r.QualityScore, e.QualityScore(a))
	}

	s := e.ExecutiveSummary(a)
	if s.KeyMetrics.CriticalIssues != 0 {
		t.Errorf("auto assignment should have no critical issues: %+v", s)
	}
	if len(e.DetailedReport(a).Conflicts) != len(e.DetectAll(a)) {
		t.Error("detailed report conflicts should match DetectAll")
	}
}
