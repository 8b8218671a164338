// Package sources adapts non-JSON inputs (spreadsheet workbooks, PDF
// liner notes) into the map[string]any record shape the evaluator
// consumes, supplementing §6's inline-JSON records input.
package sources

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RecordsFromXLSX reads one sheet of an album-export workbook and
// returns one map[string]any per data row, keyed by header cell,
// adapted from the teacher's readXLSX (internal/tools/spreadsheet_tool.go)
// but returning evaluator-ready records instead of a tool-call preview.
//
// sheetName selects a sheet; an empty string uses the workbook's
// active sheet.
func RecordsFromXLSX(path, sheetName string) ([]map[string]any, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources: open xlsx: %w", err)
	}
	defer f.Close()

	sheetNames := f.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("sources: no sheets found in %s", path)
	}

	target := sheetName
	if target == "" {
		target = f.GetSheetName(f.GetActiveSheetIndex())
		if target == "" {
			target = sheetNames[0]
		}
	}

	rows, err := f.GetRows(target)
	if err != nil {
		return nil, fmt.Errorf("sources: read sheet %q: %w", target, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := rows[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
		if headers[i] == "" {
			headers[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	records := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		record := make(map[string]any, len(headers))
		for i, header := range headers {
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			record[header] = cell
		}
		records = append(records, record)
	}
	return records, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
