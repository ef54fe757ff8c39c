package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// ParseCSV reads comma separated text. LF and CRLF line endings are both accepted
// and quoted fields may contain commas.
func ParseCSV(data []byte) (Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	return fromRecords(records)
}

// EncodeCSV writes the header and rows as LF separated CSV.
func EncodeCSV(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(doc.Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range doc.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}
