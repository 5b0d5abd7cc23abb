package xlsx

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"rowkit/internal/config"
)

// workbook builds an in-memory workbook with a second sheet named Data.
func workbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet("Data"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	for cell, v := range map[string]any{
		"A1": "id", "B1": " name ", "A2": 1, "B2": "alice", "A4": 3, "B4": "carol",
	} {
		if err := f.SetCellValue("Data", cell, v); err != nil {
			t.Fatalf("SetCellValue: %v", err)
		}
	}
	if err := f.SetCellValue("Sheet1", "A1", "other"); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

/*
TestOpen_Sheet reads the named sheet, trims the header and skips blank rows.
*/
func TestOpen_Sheet(t *testing.T) {
	t.Parallel()

	tbl, err := Open(bytes.NewReader(workbook(t)), config.Options{"sheet": "Data"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if diff := cmp.Diff([]string{"id", "name"}, tbl.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}

	out := make(chan []any, 8)
	if err := tbl.Stream(context.Background(), out); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	close(out)
	var rows [][]any
	for r := range out {
		rows = append(rows, r)
	}
	want := [][]any{{"1", "alice"}, {"3", "carol"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}

/*
TestOpen_Errors covers a missing sheet and a non-workbook input.
*/
func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Open(bytes.NewReader(workbook(t)), config.Options{"sheet": "Nope"}); err == nil {
		t.Fatalf("expected error for missing sheet")
	}
	if _, err := Open(bytes.NewReader([]byte("not a zip")), config.Options{}); err == nil {
		t.Fatalf("expected error for non-xlsx input")
	}
}
