package export

import (
	"testing"

	"github.com/deepdhani/kmrl/internal/certificates"
)

func TestExpiringWorkbook(t *testing.T) {
	rows := []certificates.ExpiringRow{
		{TrainID: "T1", Department: "RS", ExpiryDate: "14/03/2025", DaysToExpiry: 4},
		{TrainID: "T2", Department: "SIG", ExpiryDate: "16/03/2025", DaysToExpiry: 6},
	}

	workbook, err := ExpiringWorkbook(rows)
	if err != nil {
		t.Fatalf("ExpiringWorkbook: %v", err)
	}
	defer workbook.Close()

	header, err := workbook.GetCellValue(sheetName, "A1")
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header != "Train ID" {
		t.Fatalf("unexpected header: %q", header)
	}

	train, err := workbook.GetCellValue(sheetName, "A2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if train != "T1" {
		t.Fatalf("unexpected cell value: %q", train)
	}

	expiry, err := workbook.GetCellValue(sheetName, "C3")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if expiry != "16/03/2025" {
		t.Fatalf("unexpected expiry: %q", expiry)
	}
}

func TestExpiringWorkbookEmpty(t *testing.T) {
	workbook, err := ExpiringWorkbook(nil)
	if err != nil {
		t.Fatalf("ExpiringWorkbook: %v", err)
	}
	defer workbook.Close()

	header, err := workbook.GetCellValue(sheetName, "D1")
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header != "Days to Expiry" {
		t.Fatalf("unexpected header: %q", header)
	}
}
