package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"tpcpower/internal/columnar"
)

const xlsxTimeFormat = "yyyy-mm-dd hh:mm:ss"

// encodeXLSX writes the frame to a single worksheet named after the dataset.
// Times are stored as spreadsheet dates, measures as numbers and missing
// values as empty cells.
func encodeXLSX(f *frame) ([]byte, error) {
	book := excelize.NewFile()
	defer book.Close()

	sheet := f.name
	if err := book.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name worksheet: %w", err)
	}

	headerStyle, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	timeFormat := xlsxTimeFormat
	timeStyle, err := book.NewStyle(&excelize.Style{CustomNumFmt: &timeFormat})
	if err != nil {
		return nil, fmt.Errorf("failed to create time style: %w", err)
	}

	header := make([]interface{}, len(f.columns))
	for i, c := range f.columns {
		header[i] = c.Name
	}
	if err := book.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(f.columns), 1)
	if err != nil {
		return nil, err
	}
	if err := book.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style headers: %w", err)
	}

	values := make([]columnar.Value, len(f.columns))
	cells := make([]interface{}, len(f.columns))
	for i := 0; i < f.len; i++ {
		f.row(i, values)
		for j, col := range f.columns {
			cells[j] = cellValue(col.Kind, values[j])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := book.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	for j, col := range f.columns {
		if col.Kind != columnar.KindTimestamp || f.len == 0 {
			continue
		}
		top, _ := excelize.CoordinatesToCellName(j+1, 2)
		bottom, _ := excelize.CoordinatesToCellName(j+1, f.len+1)
		if err := book.SetCellStyle(sheet, top, bottom, timeStyle); err != nil {
			return nil, fmt.Errorf("failed to style time column: %w", err)
		}
		name, _ := excelize.ColumnNumberToName(j + 1)
		if err := book.SetColWidth(sheet, name, name, 20); err != nil {
			return nil, err
		}
	}

	buf, err := book.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(kind columnar.Kind, v columnar.Value) interface{} {
	if v.Null {
		return nil
	}
	switch kind {
	case columnar.KindTimestamp:
		return v.Time.UTC()
	case columnar.KindDouble:
		return v.Float
	case columnar.KindInt64:
		return v.Int
	case columnar.KindBool:
		return v.Bool
	}
	return v.Str
}
