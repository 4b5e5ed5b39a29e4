// Package csvfile parses uploaded CSV sensor exports into records.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bandungair/udara/internal/domain/reading"
)

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("csv: missing header row")

// Read parses CSV data whose first row is the column header. Shorter data
// rows are padded with empty strings, matching how worksheet rows behave.
func Read(r io.Reader) ([]reading.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}

	var records []reading.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		rec := reading.NewRecord()
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(row) {
				rec.Set(name, row[i])
			} else {
				rec.Set(name, "")
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
