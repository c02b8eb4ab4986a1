package httpapi

import (
	"bytes"
	"fmt"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"

	"github.com/xuri/excelize/v2"
)

// SalaryExportHeader 导出表头
var SalaryExportHeader = []string{
	"User ID",
	"Year Month",
	"Total Distance (km)",
	"Total Minutes",
	"Total Vital Count",
	"Distance Pay",
	"Time Pay",
	"Vital Pay",
	"Total Amount",
	"Updated At",
}

var salaryColumnWidths = []float64{10, 12, 20, 15, 18, 14, 12, 12, 14, 22}

// GenerateSalaryExport 生成月度工资 Excel，每个护士一行
func GenerateSalaryExport(yearMonth string, rows []*domain.Salary) ([]byte, error) {
	f := excelize.NewFile()

	sheetName := "Salaries " + yearMonth
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range SalaryExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, salaryColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, s := range rows {
		values := []any{
			s.UserID,
			s.YearMonth,
			s.TotalDistanceKm,
			s.TotalMinutes,
			s.TotalVitalCount,
			s.DistancePay,
			s.TimePay,
			s.VitalPay,
			s.TotalAmount,
			"",
		}
		if !s.UpdatedAt.IsZero() {
			values[9] = s.UpdatedAt.Format("2006-01-02 15:04:05")
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel: %w", err)
	}
	return buf.Bytes(), nil
}
