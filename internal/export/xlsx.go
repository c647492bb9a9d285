package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"plate-service/internal/model"
)

const sheetName = "Plates"

var headers = []interface{}{
	"ID", "Plate", "Source", "Send State", "Captured At",
	"Hot", "Make", "Model", "Color", "Flags", "Notes",
}

// PlateRecordsXLSX renders the records into a spreadsheet, newest first as
// given. Returns the serialized workbook ready to stream.
func PlateRecordsXLSX(records []model.PlateRecord) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		row := []interface{}{
			rec.ID,
			rec.PlateText,
			string(rec.SourceType),
			string(rec.SendState),
			rec.CreatedAt.Format(time.RFC3339),
			rec.IsHot,
			derefOrEmpty(rec.Make),
			derefOrEmpty(rec.Model),
			derefOrEmpty(rec.Color),
			flagList(rec.Flags),
			derefOrEmpty(rec.Notes),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf, nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func flagList(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var flags []string
	if err := json.Unmarshal(raw, &flags); err != nil {
		return string(raw)
	}
	return strings.Join(flags, ", ")
}
