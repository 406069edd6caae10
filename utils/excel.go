package utils

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelWorkbook accumulates one sheet per table and saves the workbook in a
// single SaveAs at Close time.
type ExcelWorkbook struct {
	filePath string
	file     *excelize.File
	sheets   int
}

func NewExcelWorkbook(filePath string) *ExcelWorkbook {
	return &ExcelWorkbook{
		filePath: filePath,
		file:     excelize.NewFile(),
	}
}

// AddSheet writes headers plus rows onto a fresh sheet. The first sheet
// replaces the default "Sheet1"; Excel caps sheet names at 31 characters.
func (w *ExcelWorkbook) AddSheet(name string, headers []string, rows [][]interface{}) error {
	if len(name) > 31 {
		name = name[:31]
	}
	if w.sheets == 0 {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("error naming sheet %s: %w", name, err)
		}
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("error creating sheet %s: %w", name, err)
		}
	}
	w.sheets++

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := w.file.SetCellValue(name, cell, h); err != nil {
			return fmt.Errorf("error writing header: %w", err)
		}
	}
	for r, row := range rows {
		for i, v := range row {
			if v == nil {
				continue
			}
			if t, ok := v.(time.Time); ok {
				v = t.Format("2006-01-02")
			}
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := w.file.SetCellValue(name, cell, v); err != nil {
				return fmt.Errorf("error writing row %d: %w", r+2, err)
			}
		}
	}
	return nil
}

func (w *ExcelWorkbook) Save() error {
	if err := w.file.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("error saving Excel file: %w", err)
	}
	return nil
}

func (w *ExcelWorkbook) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
