package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/report"
)

func exportFixture(t *testing.T) (*model.Assignment, *report.DetailedReport) {
	t.Helper()
	hotels := []*model.Hotel{
		{ID: "h1", Name: "海景酒店", Stars: 4, RoomConfig: []model.RoomTypeConfig{{RoomType: model.RoomDouble, Count: 2}}},
	}
	clients := []*model.Client{
		{ID: "c1", FirstName: "Ann", LastName: "Lee", Gender: model.GenderFemale, ClientType: model.ClientSolo},
		{ID: "c2", Gender: model.GenderMale, ClientType: model.ClientSolo},
		{ID: "c3", Gender: model.GenderMale, ClientType: model.ClientSolo},
	}
	a := model.NewAssignment(hotels, clients)
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ref := model.RoomRef{HotelID: "h1", RoomID: "h1-double-1"}
	for _, id := range []string{"c1", "c2", "c3"} {
		var err error
		a, err = a.Assign(id, ref, model.AssignmentManual, at)
		require.NoError(t, err)
	}
	return a, report.NewGenerator(nil, nil, nil).GenerateDetailedReport(a)
}

func TestWorkbook_Sheets(t *testing.T) {
	a, d := exportFixture(t)

	data, err := Workbook(a, d)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetHotels, SheetRooms, SheetConflicts}, f.GetSheetList())

	rooms, err := f.GetRows(SheetRooms)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, roomHeader, rooms[0])
	assert.Equal(t, "h1-double-1", rooms[1][1])
	assert.Equal(t, "150", rooms[1][6])
	assert.True(t, strings.HasPrefix(rooms[1][7], "Ann Lee"))

	conflicts, err := f.GetRows(SheetConflicts)
	require.NoError(t, err)
	require.Len(t, conflicts, 1+len(d.Conflicts))
	assert.Equal(t, "critical", conflicts[1][0])
	assert.Equal(t, "OVER_CAPACITY", conflicts[1][1])

	status, err := f.GetCellValue(SheetSummary, "B4")
	require.NoError(t, err)
	assert.Equal(t, "blocked", status)

	hotels, err := f.GetRows(SheetHotels)
	require.NoError(t, err)
	require.Len(t, hotels, 2)
	assert.Equal(t, "海景酒店", hotels[1][1])
}

func TestFileName(t *testing.T) {
	a, _ := exportFixture(t)

	name := FileName(a)

	assert.True(t, strings.HasPrefix(name, "assignment-"+a.ID.String()[:8]))
	assert.True(t, strings.HasSuffix(name, "-v3.xlsx"))
}
