package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/deepdhani/kmrl/internal/certificates"
)

const sheetName = "Sheet1"

// ExpiringWorkbook renders the expiring-certificates report as a spreadsheet
// for the dashboard's download button. The caller owns closing the file.
func ExpiringWorkbook(rows []certificates.ExpiringRow) (*excelize.File, error) {
	f := excelize.NewFile()

	headers := []string{"Train ID", "Department", "Expiry Date", "Days to Expiry"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for r, row := range rows {
		values := []any{row.TrainID, row.Department, row.ExpiryDate, row.DaysToExpiry}
		for c, value := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", r, err)
			}
		}
	}

	return f, nil
}
