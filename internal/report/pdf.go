// Package report renders attendance and time entries for download.
package report

import (
	"fmt"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"

	"worktime-backend/internal/attendance"
)

var tableGrid = []uint{2, 2, 2, 2, 2, 2}

// MonthlyAttendancePDF renders one row per day of the month followed by the
// month totals.
func MonthlyAttendancePDF(monthly *attendance.Monthly) ([]byte, error) {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(20, 10, 20)

	m.RegisterHeader(func() {
		m.Row(10, func() {
			m.Col(12, func() {
				m.Text("Monthly attendance", props.Text{
					Top:   3,
					Style: consts.Bold,
					Align: consts.Center,
					Size:  16,
				})
			})
		})
		m.Row(8, func() {
			m.Col(12, func() {
				m.Text(fmt.Sprintf("%s  |  %d members", monthly.Month, monthly.Members), props.Text{
					Top:   2,
					Align: consts.Center,
					Size:  11,
				})
			})
		})
	})

	headers := []string{"Date", "Day", "Present", "Absent", "Rate", "Hours"}
	rows := make([][]string, 0, len(monthly.Days))
	for _, day := range monthly.Days {
		rows = append(rows, []string{
			day.Date,
			day.DayName,
			fmt.Sprintf("%d", day.PresentCount),
			fmt.Sprintf("%d", day.AbsentCount),
			fmt.Sprintf("%.1f%%", day.AttendanceRate),
			fmt.Sprintf("%.2f", day.TotalHours),
		})
	}

	m.TableList(headers, rows, props.TableList{
		HeaderProp: props.TableListContent{
			Size:      9,
			GridSizes: tableGrid,
		},
		ContentProp: props.TableListContent{
			Size:      9,
			GridSizes: tableGrid,
		},
		Align:                consts.Center,
		AlternatedBackground: &color.Color{Red: 240, Green: 240, Blue: 240},
		HeaderContentSpace:   1,
		Line:                 false,
	})

	stats := monthly.Stats
	summary := []string{
		fmt.Sprintf("Present days: %d", stats.PresentDays),
		fmt.Sprintf("Absent days: %d", stats.AbsentDays),
		fmt.Sprintf("Attendance rate: %.1f%%", stats.AttendanceRate),
		fmt.Sprintf("Total hours: %.2f", stats.TotalHours),
		fmt.Sprintf("Average hours per day: %.2f", stats.AverageHoursPerDay),
	}
	m.Row(6, func() {})
	for _, line := range summary {
		m.Row(6, func() {
			m.Col(12, func() {
				m.Text(line, props.Text{
					Style: consts.Bold,
					Align: consts.Right,
					Size:  10,
				})
			})
		})
	}

	buf, err := m.Output()
	if err != nil {
		return nil, fmt.Errorf("rendering attendance pdf: %w", err)
	}
	return buf.Bytes(), nil
}
