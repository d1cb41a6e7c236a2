// Package export 将分房方案导出为 Excel 工作簿
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/paiban/roomassign/pkg/errors"
	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/report"
	"github.com/paiban/roomassign/pkg/validator"
)

// 工作表名称
const (
	SheetSummary   = "Summary"
	SheetHotels    = "Hotels"
	SheetRooms     = "Rooms"
	SheetConflicts = "Conflicts"
)

// ContentType xlsx 的 MIME 类型
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	hotelHeader    = []string{"Hotel ID", "Name", "Stars", "Rooms", "Capacity", "Occupied", "Occupancy %", "Full", "Empty", "Over Capacity", "VIP Rooms", "VIP Used"}
	roomHeader     = []string{"Hotel", "Room ID", "Type", "VIP", "Capacity", "Occupants", "Occupancy %", "Guests"}
	conflictHeader = []string{"Severity", "Type", "Hotel", "Room", "Client", "Message"}
)

// Workbook 生成包含摘要、酒店、房间和冲突四个工作表的 xlsx 文件
func Workbook(a *model.Assignment, d *report.DetailedReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, exportError(err, "创建表头样式失败")
	}

	w := &sheetWriter{f: f, headerStyle: headerStyle}
	w.summary(d)
	w.table(SheetHotels, hotelHeader, hotelRows(d.Report))
	w.table(SheetRooms, roomHeader, roomRows(a))
	w.table(SheetConflicts, conflictHeader, conflictRows(d.Conflicts))
	if w.err != nil {
		return nil, exportError(w.err, "写入工作表失败")
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, exportError(err, "删除默认工作表失败")
	}
	if idx, err := f.GetSheetIndex(SheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, exportError(err, "写出工作簿失败")
	}
	return buf.Bytes(), nil
}

// FileName 导出文件名
func FileName(a *model.Assignment) string {
	return fmt.Sprintf("assignment-%s-v%d.xlsx", a.ID.String()[:8], a.Version)
}

func exportError(err error, msg string) error {
	return errors.Wrap(err, errors.CodeExportFailed, msg)
}

// sheetWriter 记录第一个写入错误，后续写入直接跳过
type sheetWriter struct {
	f           *excelize.File
	headerStyle int
	err         error
}

func (w *sheetWriter) summary(d *report.DetailedReport) {
	if w.err != nil {
		return
	}
	if _, w.err = w.f.NewSheet(SheetSummary); w.err != nil {
		return
	}

	r := d.Report
	s := report.CreateExecutiveSummary(d)
	rows := [][]interface{}{
		{"Assignment", r.AssignmentID},
		{"Version", r.Version},
		{"Generated At", r.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Status", string(s.Status)},
		{"Headline", s.Headline},
		{"Total Clients", r.TotalClients},
		{"Assigned Clients", r.AssignedClients},
		{"Assignment Rate %", round1(r.AssignmentRate)},
		{"Overall Occupancy %", round1(r.OverallOccupancy)},
		{"Quality Score", r.QualityScore},
		{"Conflicts", d.ConflictSummary.Total},
		{"Critical Conflicts", d.ConflictSummary.Critical},
		{"Separated Groups", len(d.SeparatedGroups)},
		{"Occupancy Gini", r.Balance.Gini},
	}
	for _, rec := range d.Recommendations {
		rows = append(rows, []interface{}{"Recommendation (" + rec.Priority + ")", rec.Message})
	}

	for i, row := range rows {
		w.row(SheetSummary, i+1, row)
	}
	if w.err == nil {
		w.err = w.f.SetColWidth(SheetSummary, "A", "A", 26)
	}
	if w.err == nil {
		w.err = w.f.SetColWidth(SheetSummary, "B", "B", 60)
	}
}

func (w *sheetWriter) table(sheet string, header []string, rows [][]interface{}) {
	if w.err != nil {
		return
	}
	if _, w.err = w.f.NewSheet(sheet); w.err != nil {
		return
	}

	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	w.row(sheet, 1, cells)
	if w.err == nil {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		w.err = w.f.SetCellStyle(sheet, "A1", last, w.headerStyle)
	}
	for i, row := range rows {
		w.row(sheet, i+2, row)
	}
	if w.err == nil {
		lastCol, _ := excelize.ColumnNumberToName(len(header))
		w.err = w.f.SetColWidth(sheet, "A", lastCol, 16)
	}
}

func (w *sheetWriter) row(sheet string, rowNum int, values []interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func hotelRows(r *report.AssignmentReport) [][]interface{} {
	rows := make([][]interface{}, 0, len(r.Hotels))
	for _, h := range r.Hotels {
		rows = append(rows, []interface{}{
			h.HotelID, h.Name, h.Stars, h.Rooms, h.Capacity, h.Occupied, round1(h.OccupancyRate),
			h.FullRooms, h.EmptyRooms, h.OverCapacityRooms, h.VIPRooms, h.VIPRoomsUsed,
		})
	}
	return rows
}

func roomRows(a *model.Assignment) [][]interface{} {
	rows := make([][]interface{}, 0)
	a.EachRoom(func(h *model.Hotel, r *model.LogicalRoom) {
		guests := make([]string, 0, r.OccupantCount())
		for _, c := range a.OccupantClients(r) {
			name := c.FullName()
			if name == "" {
				name = c.ID
			}
			guests = append(guests, name)
		}
		vip := "no"
		if r.IsVIP {
			vip = "yes"
		}
		rows = append(rows, []interface{}{
			h.Name, r.RoomID, string(r.RoomType), vip, r.MaxCapacity, r.OccupantCount(),
			round1(r.OccupancyRate()), strings.Join(guests, ", "),
		})
	})
	return rows
}

func conflictRows(conflicts []validator.Conflict) [][]interface{} {
	rows := make([][]interface{}, 0, len(conflicts))
	for _, c := range conflicts {
		rows = append(rows, []interface{}{
			string(c.Severity), string(c.Type), c.HotelID, c.RoomID, c.ClientID, c.Message,
		})
	}
	return rows
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
