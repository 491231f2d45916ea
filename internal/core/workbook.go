package core

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportWorkbook renders a target's export as a single-sheet XLSX workbook
// for users whose spreadsheet software mangles CSV encodings. The sheet
// mirrors the CSV export exactly: same headers, same rows, same placeholder
// row when the collection is empty.
func (s *Service) ExportWorkbook(ctx context.Context, target string) ([]byte, error) {
	doc, err := s.ExportTable(ctx, target)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for col, header := range doc.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("build workbook: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("build workbook: %w", err)
		}
	}

	for i, row := range doc.Rows {
		for col, header := range doc.Headers {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("build workbook: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, row[header]); err != nil {
				return nil, fmt.Errorf("build workbook: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
