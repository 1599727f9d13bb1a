package services

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Canonical column headers of the apprenticeship upload template.
const (
	ColStandardCode         = "STANDARD_CODE"
	ColStandardVersion      = "STANDARD_VERSION"
	ColFrameworkCode        = "FRAMEWORK_CODE"
	ColFrameworkProgType    = "FRAMEWORK_PROG_TYPE"
	ColFrameworkPathwayCode = "FRAMEWORK_PATHWAY_CODE"
	ColInformation          = "APPRENTICESHIP_INFORMATION"
	ColWebpage              = "APPRENTICESHIP_WEBPAGE"
	ColContactEmail         = "CONTACT_EMAIL"
	ColContactPhone         = "CONTACT_PHONE"
	ColContactURL           = "CONTACT_URL"
	ColCost                 = "COST"
	ColDuration             = "DURATION"
	ColDeliveryMethod       = "DELIVERY_METHOD"
	ColVenue                = "VENUE"
	ColVenueReference       = "YOUR_VENUE_REFERENCE"
	ColRadius               = "RADIUS"
	ColDeliveryMode         = "DELIVERY_MODE"
	ColAcrossEngland        = "ACROSS_ENGLAND"
	ColNationalDelivery     = "NATIONAL_DELIVERY"
	ColRegion               = "REGION"
	ColSubRegion            = "SUB_REGION"
)

// allColumns lists every template column in template order. Used for header
// validation and for rebuilding CSV downloads.
var allColumns = []string{
	ColStandardCode,
	ColStandardVersion,
	ColFrameworkCode,
	ColFrameworkProgType,
	ColFrameworkPathwayCode,
	ColInformation,
	ColWebpage,
	ColContactEmail,
	ColContactPhone,
	ColContactURL,
	ColCost,
	ColDuration,
	ColDeliveryMethod,
	ColVenue,
	ColVenueReference,
	ColRadius,
	ColDeliveryMode,
	ColAcrossEngland,
	ColNationalDelivery,
	ColRegion,
	ColSubRegion,
}

// AllColumns returns the template columns in order.
func AllColumns() []string {
	out := make([]string, len(allColumns))
	copy(out, allColumns)
	return out
}

// duplicateKeyColumns are the columns whose combined values identify a row
// for duplicate detection. Two rows sharing all of these values describe the
// same delivery and the file is rejected as a whole.
var duplicateKeyColumns = []string{
	ColStandardCode,
	ColStandardVersion,
	ColFrameworkCode,
	ColFrameworkProgType,
	ColFrameworkPathwayCode,
	ColDeliveryMethod,
	ColVenue,
	ColVenueReference,
}

// File-level failure codes. A file-level failure means no upload rows were
// produced at all.
const (
	FileErrorEmpty          = "FILE_EMPTY"
	FileErrorMissingHeaders = "FILE_MISSING_HEADERS"
	FileErrorDuplicateRows  = "FILE_DUPLICATE_ROWS"
	FileErrorMalformed      = "FILE_MALFORMED"
)

// FileError reports a problem with the file as a whole.
type FileError struct {
	Code           string
	MissingHeaders []string
	// DuplicateRows holds the 1-based row numbers of the first pair of
	// duplicate rows found.
	DuplicateRows []int
	RowNumber     int
	Cause         error
}

func (e *FileError) Error() string {
	switch e.Code {
	case FileErrorEmpty:
		return "the file contains no rows"
	case FileErrorMissingHeaders:
		return fmt.Sprintf("the file is missing required columns: %s", strings.Join(e.MissingHeaders, ", "))
	case FileErrorDuplicateRows:
		return fmt.Sprintf("rows %d and %d are duplicates of each other", e.DuplicateRows[0], e.DuplicateRows[1])
	case FileErrorMalformed:
		return fmt.Sprintf("row %d could not be read: %v", e.RowNumber, e.Cause)
	}
	return e.Code
}

func (e *FileError) Unwrap() error { return e.Cause }

// AsFileError unwraps err to a *FileError if it is one.
func AsFileError(err error) (*FileError, bool) {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// RawRow is one data row of the uploaded file, keyed by canonical header
// name. RowNumber counts from 2, row 1 being the header.
type RawRow struct {
	RowNumber int
	Fields    map[string]string
}

// ParseApprenticeshipCSV reads the whole file, validates the header and
// returns one RawRow per data row. It fails the whole file on a missing
// header, an empty file or a duplicate row pair, and never partially
// succeeds.
func ParseApprenticeshipCSV(r io.Reader) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &FileError{Code: FileErrorEmpty}
	}
	if err != nil {
		return nil, &FileError{Code: FileErrorMalformed, RowNumber: 1, Cause: err}
	}

	columnIndex, missing := matchHeader(header)
	if len(missing) > 0 {
		return nil, &FileError{Code: FileErrorMissingHeaders, MissingHeaders: missing}
	}

	var rows []RawRow
	seen := make(map[string]int)
	rowNumber := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		rowNumber++
		if err != nil {
			return nil, &FileError{Code: FileErrorMalformed, RowNumber: rowNumber, Cause: err}
		}
		if isBlankRecord(record) {
			continue
		}

		fields := make(map[string]string, len(allColumns))
		for col, idx := range columnIndex {
			if idx < len(record) {
				fields[col] = strings.TrimSpace(record[idx])
			} else {
				fields[col] = ""
			}
		}

		key := duplicateKey(fields)
		if first, ok := seen[key]; ok {
			return nil, &FileError{Code: FileErrorDuplicateRows, DuplicateRows: []int{first, rowNumber}}
		}
		seen[key] = rowNumber

		rows = append(rows, RawRow{RowNumber: rowNumber, Fields: fields})
	}

	if len(rows) == 0 {
		return nil, &FileError{Code: FileErrorEmpty}
	}
	return rows, nil
}

// matchHeader maps canonical column names to positions in the header row.
// Matching ignores case and surrounding whitespace so hand-edited templates
// still parse.
func matchHeader(header []string) (map[string]int, []string) {
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		normalized[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))] = i
	}

	columnIndex := make(map[string]int, len(allColumns))
	var missing []string
	for _, col := range allColumns {
		idx, ok := normalized[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		columnIndex[col] = idx
	}
	return columnIndex, missing
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// duplicateKey hashes the identifying columns of a row. Values are compared
// case-insensitively, matching how venues and qualifications resolve.
func duplicateKey(fields map[string]string) string {
	h := sha256.New()
	for _, col := range duplicateKeyColumns {
		h.Write([]byte(strings.ToUpper(fields[col])))
		h.Write([]byte{0})
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
