/*
xlsx.go - Spreadsheet renderer for invoice artifacts

Same layout as the CSV renderer, written as an excelize workbook. Costs are
written as pre-formatted strings rather than numeric cells so the workbook
shows exactly the two-decimal figures that appear on the CSV and in the
aggregator's total.
*/
package artifact

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/carebase/billing-engine/billing"
)

const sheetName = "Invoice"

func composeXLSX(lines []billing.ShiftDetail, meta billing.InvoiceMetadata) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}

	rows := [][]any{
		{"Invoice Number", meta.Number},
		{"Invoice Date", meta.InvoiceDate.Format(billing.DateFormat)},
		{"Carer", meta.CarerName},
		{"Client", meta.ClientName},
		{"Period", meta.PeriodFrom.Format(billing.DateFormat) + " to " + meta.PeriodTo.Format(billing.DateFormat)},
		{},
		{"Date", "Start", "End", "Description", "Cost"},
	}

	total := billing.ZeroMoney()
	for _, line := range lines {
		total = total.Add(line.Cost)
		rows = append(rows, []any{
			line.Date.Format(billing.DateFormat),
			line.StartTime,
			line.EndTime,
			line.Description,
			line.Cost.String(),
		})
	}
	rows = append(rows, []any{}, []any{"Total", "", "", "", total.String()})

	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, ref, cell); err != nil {
				return nil, fmt.Errorf("cell %s: %w", ref, err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "D", 16); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "E", "E", 12); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
