/*
Package artifact renders invoice documents.

PURPOSE:
  Implements billing.Composer. Composition is a pure transform: the same
  shift lines and metadata always produce byte-identical output, so a
  regenerated download is reproducible and testable by comparing bytes.

FORMATS:
  - CSV  (text/csv): the default renderer, encoding/csv over a buffer
  - XLSX (spreadsheet): excelize workbook, selected when the requested
    file name ends in .xlsx

LAYOUT (both formats):
  Header block (number, date, carer, client, period), one row per shift
  (date, time range, description, cost), then the grand total. Omitting a
  line for any in-scope shift is a correctness defect; the renderers only
  ever iterate the full slice they are given.

DETERMINISM RULES:
  - Money is formatted to exactly two decimal places
  - Dates are formatted as YYYY-MM-DD
  - No clocks, counters, or map iteration anywhere in the render path

SEE ALSO:
  - xlsx.go: the excelize renderer
  - billing/invoices.go: regeneration on download
*/
package artifact

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path"
	"strings"

	"github.com/carebase/billing-engine/billing"
)

const (
	mimeCSV  = "text/csv"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Composer renders invoice artifacts. It is stateless and safe for
// concurrent use.
type Composer struct{}

// NewComposer returns a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Compose renders the invoice document. The format follows the requested
// file name's extension; anything that is not .xlsx renders as CSV.
func (c *Composer) Compose(lines []billing.ShiftDetail, meta billing.InvoiceMetadata) (billing.Artifact, error) {
	name := artifactName(meta)
	if strings.EqualFold(path.Ext(name), ".xlsx") {
		payload, err := composeXLSX(lines, meta)
		if err != nil {
			return billing.Artifact{}, fmt.Errorf("render xlsx: %w", err)
		}
		return billing.Artifact{Name: name, Payload: payload, MIMEType: mimeXLSX}, nil
	}

	payload, err := composeCSV(lines, meta)
	if err != nil {
		return billing.Artifact{}, fmt.Errorf("render csv: %w", err)
	}
	return billing.Artifact{Name: name, Payload: payload, MIMEType: mimeCSV}, nil
}

// artifactName prefers the stored file name and otherwise derives one from
// the invoice number.
func artifactName(meta billing.InvoiceMetadata) string {
	if meta.FileName != "" {
		return meta.FileName
	}
	return fmt.Sprintf("Invoice-%s.csv", meta.Number)
}

// composeCSV writes the header block, one row per shift, and the total.
func composeCSV(lines []billing.ShiftDetail, meta billing.InvoiceMetadata) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := [][]string{
		{"Invoice Number", meta.Number},
		{"Invoice Date", meta.InvoiceDate.Format(billing.DateFormat)},
		{"Carer", meta.CarerName},
		{"Client", meta.ClientName},
		{"Period", meta.PeriodFrom.Format(billing.DateFormat) + " to " + meta.PeriodTo.Format(billing.DateFormat)},
		{},
		{"Date", "Start", "End", "Description", "Cost"},
	}
	for _, row := range header {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	total := billing.ZeroMoney()
	for _, line := range lines {
		total = total.Add(line.Cost)
		row := []string{
			line.Date.Format(billing.DateFormat),
			line.StartTime,
			line.EndTime,
			line.Description,
			line.Cost.String(),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	if err := w.Write([]string{}); err != nil {
		return nil, err
	}
	if err := w.Write([]string{"Total", "", "", "", total.String()}); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
