package tabular

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first worksheet of a workbook.
func ParseXLSX(data []byte) (Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Document{}, ErrEmptyDocument
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Document{}, fmt.Errorf("%w: sheet %q: %v", ErrMalformedDocument, sheets[0], err)
	}

	return fromRecords(rows)
}

// EncodeXLSX writes the document into a single worksheet with a bold, frozen
// header. Integer cells are stored as numbers.
func EncodeXLSX(doc Document, sheet string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(doc.Header))
	for i, h := range doc.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, row := range doc.Rows {
		values := make([]interface{}, len(row))
		for j, cell := range row {
			if n, err := strconv.Atoi(cell); err == nil {
				values[j] = n
				continue
			}
			values[j] = cell
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if len(doc.Header) > 0 {
		if err := styleHeader(f, sheet, len(doc.Header)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write to buffer: %w", err)
	}

	return buf.Bytes(), nil
}

func styleHeader(f *excelize.File, sheet string, width int) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0EBF5"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(width, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 14); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// AddDropList restricts the cells of columns [fromCol, toCol] (1-based) on data
// rows 2..rows+1 to the given values.
func AddDropList(data []byte, fromCol, toCol, rows int, values []string) ([]byte, error) {
	if rows == 0 || toCol < fromCol {
		return data, nil
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	defer f.Close()

	topLeft, err := excelize.CoordinatesToCellName(fromCol, 2)
	if err != nil {
		return nil, err
	}
	bottomRight, err := excelize.CoordinatesToCellName(toCol, rows+1)
	if err != nil {
		return nil, err
	}

	dv := excelize.NewDataValidation(true)
	dv.Sqref = topLeft + ":" + bottomRight
	if err := dv.SetDropList(values); err != nil {
		return nil, fmt.Errorf("set drop list: %w", err)
	}
	if err := f.AddDataValidation(f.GetSheetName(0), dv); err != nil {
		return nil, fmt.Errorf("add data validation: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write to buffer: %w", err)
	}
	return buf.Bytes(), nil
}
