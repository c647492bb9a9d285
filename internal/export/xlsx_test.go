package export

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"plate-service/internal/model"
)

func TestPlateRecordsXLSX(t *testing.T) {
	makeVal := "Ford"
	records := []model.PlateRecord{
		{
			ID:         1,
			PlateText:  "ABC 123",
			SourceType: model.SourceTypeOCR,
			SendState:  model.SendStateSent,
			CreatedAt:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			IsHot:      true,
			Make:       &makeVal,
			Flags:      datatypes.JSON(`["stolen","armed"]`),
		},
		{
			ID:         2,
			PlateText:  "XYZ 999",
			SourceType: model.SourceTypeManual,
			SendState:  model.SendStateUnsent,
			CreatedAt:  time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC),
		},
	}

	buf, err := PlateRecordsXLSX(records)
	if err != nil {
		t.Fatalf("PlateRecordsXLSX returned error: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (header + 2 records)", len(rows))
	}

	if rows[0][0] != "ID" || rows[0][1] != "Plate" {
		t.Errorf("unexpected header row: %v", rows[0])
	}
	if rows[1][1] != "ABC 123" {
		t.Errorf("row 1 plate = %q, want %q", rows[1][1], "ABC 123")
	}
	if rows[1][9] != "stolen, armed" {
		t.Errorf("row 1 flags = %q, want %q", rows[1][9], "stolen, armed")
	}
	if rows[2][3] != "unsent" {
		t.Errorf("row 2 send state = %q, want %q", rows[2][3], "unsent")
	}
}

func TestPlateRecordsXLSXEmpty(t *testing.T) {
	buf, err := PlateRecordsXLSX(nil)
	if err != nil {
		t.Fatalf("PlateRecordsXLSX returned error: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty export produced no bytes")
	}
}
