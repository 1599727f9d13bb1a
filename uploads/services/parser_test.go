package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvFile(rows ...string) string {
	header := strings.Join(allColumns, ",")
	return strings.Join(append([]string{header}, rows...), "\n")
}

// rowCSV builds one data line from a partial column map, empty elsewhere.
func rowCSV(fields map[string]string) string {
	record := make([]string, len(allColumns))
	for i, col := range allColumns {
		record[i] = fields[col]
	}
	return strings.Join(record, ",")
}

func standardRow(overrides map[string]string) string {
	fields := map[string]string{
		ColStandardCode:     "101",
		ColStandardVersion:  "1",
		ColInformation:      "Learn things",
		ColContactEmail:     "admissions@provider.ac.uk",
		ColContactPhone:     "01234 567890",
		ColDuration:         "18",
		ColDeliveryMethod:   "employer",
		ColNationalDelivery: "yes",
	}
	for k, v := range overrides {
		fields[k] = v
	}
	return rowCSV(fields)
}

func TestParseApprenticeshipCSV(t *testing.T) {
	t.Run("parses rows with numbers starting at 2", func(t *testing.T) {
		rows, err := ParseApprenticeshipCSV(strings.NewReader(csvFile(
			standardRow(nil),
			standardRow(map[string]string{ColStandardCode: "102"}),
		)))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 2, rows[0].RowNumber)
		assert.Equal(t, 3, rows[1].RowNumber)
		assert.Equal(t, "101", rows[0].Fields[ColStandardCode])
		assert.Equal(t, "102", rows[1].Fields[ColStandardCode])
	})

	t.Run("trims whitespace from values", func(t *testing.T) {
		rows, err := ParseApprenticeshipCSV(strings.NewReader(csvFile(
			standardRow(map[string]string{ColInformation: "  padded  "}),
		)))
		require.NoError(t, err)
		assert.Equal(t, "padded", rows[0].Fields[ColInformation])
	})

	t.Run("strips a byte order mark from the first header", func(t *testing.T) {
		input := "\uFEFF" + csvFile(standardRow(nil))
		rows, err := ParseApprenticeshipCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "101", rows[0].Fields[ColStandardCode])
	})

	t.Run("matches headers case insensitively", func(t *testing.T) {
		lower := strings.ToLower(strings.Join(allColumns, ","))
		input := lower + "\n" + standardRow(nil)
		rows, err := ParseApprenticeshipCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "101", rows[0].Fields[ColStandardCode])
	})

	t.Run("skips blank lines without consuming row numbers incorrectly", func(t *testing.T) {
		input := csvFile(
			standardRow(nil),
			strings.Repeat(",", len(allColumns)-1),
			standardRow(map[string]string{ColStandardCode: "103"}),
		)
		rows, err := ParseApprenticeshipCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 2, rows[0].RowNumber)
		assert.Equal(t, 4, rows[1].RowNumber)
	})

	t.Run("rejects an empty file", func(t *testing.T) {
		_, err := ParseApprenticeshipCSV(strings.NewReader(""))
		fe, ok := AsFileError(err)
		require.True(t, ok)
		assert.Equal(t, FileErrorEmpty, fe.Code)
	})

	t.Run("rejects a header-only file", func(t *testing.T) {
		_, err := ParseApprenticeshipCSV(strings.NewReader(csvFile()))
		fe, ok := AsFileError(err)
		require.True(t, ok)
		assert.Equal(t, FileErrorEmpty, fe.Code)
	})

	t.Run("rejects missing headers and names them", func(t *testing.T) {
		var kept []string
		for _, col := range allColumns {
			if col != ColDeliveryMethod && col != ColContactEmail {
				kept = append(kept, col)
			}
		}
		input := strings.Join(kept, ",") + "\nvalue"
		_, err := ParseApprenticeshipCSV(strings.NewReader(input))
		fe, ok := AsFileError(err)
		require.True(t, ok)
		assert.Equal(t, FileErrorMissingHeaders, fe.Code)
		assert.ElementsMatch(t, []string{ColDeliveryMethod, ColContactEmail}, fe.MissingHeaders)
	})

	t.Run("rejects duplicate rows naming both row numbers", func(t *testing.T) {
		_, err := ParseApprenticeshipCSV(strings.NewReader(csvFile(
			standardRow(nil),
			standardRow(map[string]string{ColInformation: "different text but same identity"}),
		)))
		fe, ok := AsFileError(err)
		require.True(t, ok)
		assert.Equal(t, FileErrorDuplicateRows, fe.Code)
		assert.Equal(t, []int{2, 3}, fe.DuplicateRows)
	})

	t.Run("duplicate detection is case insensitive", func(t *testing.T) {
		_, err := ParseApprenticeshipCSV(strings.NewReader(csvFile(
			standardRow(map[string]string{ColDeliveryMethod: "employer"}),
			standardRow(map[string]string{ColDeliveryMethod: "EMPLOYER"}),
		)))
		fe, ok := AsFileError(err)
		require.True(t, ok)
		assert.Equal(t, FileErrorDuplicateRows, fe.Code)
	})

	t.Run("rows differing on identity columns are not duplicates", func(t *testing.T) {
		rows, err := ParseApprenticeshipCSV(strings.NewReader(csvFile(
			standardRow(nil),
			standardRow(map[string]string{ColDeliveryMethod: "classroom", ColVenue: "Main Campus"}),
		)))
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}
