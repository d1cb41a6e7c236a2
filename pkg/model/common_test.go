package model

import (
	"testing"
)

func TestClient_Helpers(t *testing.T) {
	c := &Client{
		FirstName:   "Mei",
		LastName:    "Chen",
		ClientType:  ClientVIP,
		GroupName:   "Smith",
		Preferences: map[string]string{PreferredHotelKey: "h2"},
	}

	if c.FullName() != "Mei Chen" {
		t.Errorf("FullName() = %q", c.FullName())
	}
	if !c.IsVIP() || !c.InGroup() {
		t.Error("IsVIP/InGroup should be true")
	}
	if v, ok := c.Preference(PreferredHotelKey); !ok || v != "h2" {
		t.Errorf("Preference() = %q, %v", v, ok)
	}
	if _, ok := (&Client{}).Preference(PreferredHotelKey); ok {
		t.Error("nil preferences should report missing")
	}
}

func TestEnums_IsValid(t *testing.T) {
	if !GenderOther.IsValid() || Gender("x").IsValid() {
		t.Error("Gender.IsValid mismatch")
	}
	if !ClientInfluencer.IsValid() || ClientType("guest").IsValid() {
		t.Error("ClientType.IsValid mismatch")
	}
}

func TestClient_Validate(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		valid  bool
	}{
		{"有效客户", Client{ID: "c1", Gender: GenderFemale, ClientType: ClientVIP}, true},
		{"缺少ID", Client{Gender: GenderFemale, ClientType: ClientVIP}, false},
		{"类型大写", Client{ID: "c1", Gender: GenderFemale, ClientType: "VIP"}, false},
		{"未知类型", Client{ID: "c1", Gender: GenderFemale, ClientType: "guest"}, false},
		{"性别为空", Client{ID: "c1", ClientType: ClientSolo}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.client.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, expected nil", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate() = nil, expected error")
			}
		})
	}
}
