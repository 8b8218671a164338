package sources

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFixtureWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "albums.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestRecordsFromXLSX(t *testing.T) {
	path := writeFixtureWorkbook(t, [][]string{
		{"album_id", "album_title"},
		{"42", "Nebraska"},
		{"43", "Born in the U.S.A."},
	})

	records, err := RecordsFromXLSX(path, "")
	if err != nil {
		t.Fatalf("RecordsFromXLSX: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["album_title"] != "Nebraska" {
		t.Errorf("got %+v", records[0])
	}
}

func TestRecordsFromXLSXSkipsEmptyRows(t *testing.T) {
	path := writeFixtureWorkbook(t, [][]string{
		{"album_id", "album_title"},
		{"42", "Nebraska"},
		{"", ""},
		{"43", "Born in the U.S.A."},
	})

	records, err := RecordsFromXLSX(path, "")
	if err != nil {
		t.Fatalf("RecordsFromXLSX: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (blank row skipped)", len(records))
	}
}
