package artifact_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/carebase/billing-engine/artifact"
	"github.com/carebase/billing-engine/billing"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func fixtureMeta(fileName string) billing.InvoiceMetadata {
	return billing.InvoiceMetadata{
		Number:      "INV-100",
		InvoiceDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		CarerName:   "Ana Kowalski",
		ClientName:  "Margaret Hart",
		PeriodFrom:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		PeriodTo:    time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
		FileName:    fileName,
	}
}

func fixtureLines() []billing.ShiftDetail {
	return []billing.ShiftDetail{
		{
			ShiftID: "s1", Date: time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC),
			StartTime: "09:00", EndTime: "13:00",
			CarerID: "c1", CarerName: "Ana Kowalski",
			Description: "Day Care", Cost: billing.NewMoney(90),
		},
		{
			ShiftID: "s2", Date: time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC),
			StartTime: "21:00", EndTime: "07:00",
			CarerID: "c1", CarerName: "Ana Kowalski",
			Description: "Night Care", Cost: billing.NewMoney(280),
		},
		{
			ShiftID: "s3", Date: time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC),
			StartTime: "10:00", EndTime: "12:00",
			CarerID: "c1", CarerName: "Ana Kowalski",
			Description: "Manual", Cost: billing.NewMoney(45),
		},
	}
}

// =============================================================================
// CSV TESTS
// =============================================================================

func TestCompose_CSVLayout(t *testing.T) {
	c := artifact.NewComposer()

	art, err := c.Compose(fixtureLines(), fixtureMeta(""))
	require.NoError(t, err)
	assert.Equal(t, "Invoice-INV-100.csv", art.Name)
	assert.Equal(t, "text/csv", art.MIMEType)

	r := csv.NewReader(bytes.NewReader(art.Payload))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	// Header block
	assert.Equal(t, []string{"Invoice Number", "INV-100"}, records[0])
	assert.Equal(t, []string{"Invoice Date", "2025-02-01"}, records[1])
	assert.Equal(t, []string{"Carer", "Ana Kowalski"}, records[2])
	assert.Equal(t, []string{"Client", "Margaret Hart"}, records[3])
	assert.Equal(t, []string{"Period", "2025-01-01 to 2025-01-31"}, records[4])

	// One row per shift line in order, then the total
	assert.Equal(t, []string{"2025-01-03", "09:00", "13:00", "Day Care", "90.00"}, records[6])
	assert.Equal(t, []string{"2025-01-05", "21:00", "07:00", "Night Care", "280.00"}, records[7])
	assert.Equal(t, []string{"2025-01-08", "10:00", "12:00", "Manual", "45.00"}, records[8])

	last := records[len(records)-1]
	assert.Equal(t, "Total", last[0])
	assert.Equal(t, "415.00", last[len(last)-1])
}

func TestCompose_CSVIsDeterministic(t *testing.T) {
	// GIVEN: The same lines and metadata
	c := artifact.NewComposer()

	// WHEN: Composing twice
	first, err := c.Compose(fixtureLines(), fixtureMeta("Jan-2025.csv"))
	require.NoError(t, err)
	second, err := c.Compose(fixtureLines(), fixtureMeta("Jan-2025.csv"))
	require.NoError(t, err)

	// THEN: The payloads are byte-identical
	assert.Equal(t, first.Payload, second.Payload)
	assert.Equal(t, "Jan-2025.csv", first.Name)
}

func TestCompose_EmptyLines(t *testing.T) {
	c := artifact.NewComposer()

	art, err := c.Compose(nil, fixtureMeta(""))
	require.NoError(t, err)
	assert.Contains(t, string(art.Payload), "Total")
	assert.Contains(t, string(art.Payload), "0.00")
}

// =============================================================================
// XLSX TESTS
// =============================================================================

func TestCompose_XLSX(t *testing.T) {
	c := artifact.NewComposer()

	art, err := c.Compose(fixtureLines(), fixtureMeta("Jan-2025.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "Jan-2025.xlsx", art.Name)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", art.MIMEType)

	f, err := excelize.OpenReader(bytes.NewReader(art.Payload))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Invoice")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Invoice Number", rows[0][0])
	assert.Equal(t, "INV-100", rows[0][1])

	var sawNight, sawTotal bool
	for _, row := range rows {
		for _, cell := range row {
			if cell == "Night Care" {
				sawNight = true
			}
			if cell == "415.00" {
				sawTotal = true
			}
		}
	}
	assert.True(t, sawNight, "every shift line should be present")
	assert.True(t, sawTotal, "grand total should be present")
}

func TestCompose_XLSXIsDeterministic(t *testing.T) {
	// GIVEN: The same lines and metadata
	c := artifact.NewComposer()

	// WHEN: Composing the workbook twice with time passing in between
	first, err := c.Compose(fixtureLines(), fixtureMeta("Jan-2025.xlsx"))
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	second, err := c.Compose(fixtureLines(), fixtureMeta("Jan-2025.xlsx"))
	require.NoError(t, err)

	// THEN: The payloads are byte-identical; no timestamps or counters
	// leak into the archive
	assert.Equal(t, first.Payload, second.Payload)
}
