package scoring

import (
	"testing"
	"time"

	"github.com/paiban/roomassign/pkg/model"
)

func newScoringAssignment() *model.Assignment {
	hotels := []*model.Hotel{
		{
			ID:    "h1",
			Name:  "海景酒店",
			Stars: 4,
			RoomConfig: []model.RoomTypeConfig{
				{RoomType: model.RoomDouble, Count: 2},
				{RoomType: model.RoomSuite, Count: 1, IsVIP: true},
			},
		},
		{
			ID:    "h2",
			Name:  "快捷酒店",
			Stars: 2,
			RoomConfig: []model.RoomTypeConfig{
				{RoomType: model.RoomDouble, Count: 1},
			},
		},
	}
	clients := []*model.Client{
		{ID: "s1", Gender: model.GenderMale, ClientType: model.ClientSolo, GroupName: "Smith"},
		{ID: "s2", Gender: model.GenderMale, ClientType: model.ClientSolo, GroupName: "Smith"},
		{ID: "v1", Gender: model.GenderFemale, ClientType: model.ClientVIP},
		{ID: "p1", Gender: model.GenderFemale, ClientType: model.ClientStaff,
			Preferences: map[string]string{model.PreferredHotelKey: "h2"}},
	}
	return model.NewAssignment(hotels, clients)
}

func TestScorer_ScoreCandidate(t *testing.T) {
	a := newScoringAssignment()
	a, _ = a.Assign("s1", model.RoomRef{HotelID: "h1", RoomID: "h1-double-2"}, model.AssignmentManual, time.Now())
	scorer := NewScorer(nil, nil)

	tests := []struct {
		name     string
		client   string
		ref      model.RoomRef
		valid    bool
		expected float64
	}{
		{"空房间基础分", "s2", model.RoomRef{HotelID: "h1", RoomID: "h1-double-1"}, true, 15},
		{"同类型同团队", "s2", model.RoomRef{HotelID: "h1", RoomID: "h1-double-2"}, true, 32},
		{"VIP房给非VIP", "s2", model.RoomRef{HotelID: "h1", RoomID: "h1-suite-3"}, true, 10},
		{"VIP入住VIP房", "v1", model.RoomRef{HotelID: "h1", RoomID: "h1-suite-3"}, true, 25},
		{"偏好酒店", "p1", model.RoomRef{HotelID: "h2", RoomID: "h2-double-1"}, true, 17},
		{"VIP入住普通房无效", "v1", model.RoomRef{HotelID: "h1", RoomID: "h1-double-1"}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hotel, _ := a.Hotel(tt.ref.HotelID)
			room, _ := a.Room(tt.ref.HotelID, tt.ref.RoomID)
			client, _ := a.Client(tt.client)

			c := scorer.ScoreCandidate(a, client, room, hotel)
			if c.Valid != tt.valid {
				t.Fatalf("Valid = %v, expected %v (%v)", c.Valid, tt.valid, c.Reasons)
			}
			if c.Score != tt.expected {
				t.Errorf("Score = %v, expected %v (%v)", c.Score, tt.expected, c.Reasons)
			}
			if len(c.Reasons) == 0 {
				t.Error("reasons should not be empty")
			}
		})
	}
}

func TestScorer_OccupancyBonusUsesCurrentState(t *testing.T) {
	a := model.NewAssignment(
		[]*model.Hotel{{ID: "h", RoomConfig: []model.RoomTypeConfig{{RoomType: model.RoomQuad, Count: 1}}}},
		[]*model.Client{
			{ID: "a", Gender: model.GenderMale, ClientType: model.ClientStaff},
			{ID: "b", Gender: model.GenderMale, ClientType: model.ClientSolo},
		},
	)
	a, _ = a.Assign("a", model.RoomRef{HotelID: "h", RoomID: "h-quad-1"}, model.AssignmentManual, time.Now())

	hotel, _ := a.Hotel("h")
	room, _ := a.Room("h", "h-quad-1")
	client, _ := a.Client("b")

	// 插入前 25%，插入后 50%：按插入前计算应得到加分
	c := NewScorer(nil, nil).ScoreCandidate(a, client, room, hotel)
	if c.Score != 13 {
		t.Errorf("Score = %v, expected 13 (%v)", c.Score, c.Reasons)
	}
}

func TestScorer_QualityScore(t *testing.T) {
	now := time.Now()
	scorer := NewScorer(nil, nil)

	tests := []struct {
		name     string
		place    map[string]model.RoomRef
		expected int
	}{
		{"无入住者", nil, 0},
		{"单人入住双人房", map[string]model.RoomRef{
			"s1": {HotelID: "h1", RoomID: "h1-double-1"},
		}, 30},
		{"团队满房", map[string]model.RoomRef{
			"s1": {HotelID: "h1", RoomID: "h1-double-1"},
			"s2": {HotelID: "h1", RoomID: "h1-double-1"},
		}, 70},
		{"VIP入住VIP房", map[string]model.RoomRef{
			"v1": {HotelID: "h1", RoomID: "h1-suite-3"},
		}, 60},
		{"团队分开", map[string]model.RoomRef{
			"s1": {HotelID: "h1", RoomID: "h1-double-1"},
			"s2": {HotelID: "h1", RoomID: "h1-double-2"},
		}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newScoringAssignment()
			for id, ref := range tt.place {
				var err error
				a, err = a.Assign(id, ref, model.AssignmentManual, now)
				if err != nil {
					t.Fatalf("Assign(%s) error = %v", id, err)
				}
			}
			if got := scorer.QualityScore(a); got != tt.expected {
				t.Errorf("QualityScore() = %d, expected %d", got, tt.expected)
			}
		})
	}
}
