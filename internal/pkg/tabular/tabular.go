package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyDocument      = errors.New("document must contain a header row and at least one data row")
	ErrMalformedDocument  = errors.New("document could not be read")
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	xlsxMagic             = []byte("PK\x03\x04")
	utf8BOM               = []byte("\xef\xbb\xbf")
	supportedFormatsLabel = "csv, xlsx"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name or a file extension with or without the dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w %q (supported: %s)", ErrUnsupportedFormat, s, supportedFormatsLabel)
	}
}

// DetectFormat picks the format from the file name, falling back to content sniffing.
func DetectFormat(filename string, data []byte) (Format, error) {
	if ext := filepath.Ext(filename); ext != "" {
		return ParseFormat(ext)
	}
	if bytes.HasPrefix(data, xlsxMagic) {
		return FormatXLSX, nil
	}
	return FormatCSV, nil
}

// ContentType is the MIME type used when offering a document for download.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Row is one line of cells. Rows may be shorter than the header.
type Row []string

// Cell returns the trimmed cell at i, or "" when the row is too short.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

// Blank reports whether every cell of the row is empty.
func (r Row) Blank() bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Document is a header row followed by data rows.
type Document struct {
	Header Row
	Rows   []Row
}

// Parse decodes raw bytes in the given format.
func Parse(format Format, data []byte) (Document, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(data)
	case FormatXLSX:
		return ParseXLSX(data)
	default:
		return Document{}, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}

// Encode renders the document in the given format.
func Encode(format Format, doc Document) ([]byte, error) {
	switch format {
	case FormatCSV:
		return EncodeCSV(doc)
	case FormatXLSX:
		return EncodeXLSX(doc, "Attendance")
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}

// fromRecords drops blank records and splits header from data.
func fromRecords(records [][]string) (Document, error) {
	kept := make([]Row, 0, len(records))
	for _, rec := range records {
		row := Row(rec)
		if row.Blank() {
			continue
		}
		kept = append(kept, row)
	}

	if len(kept) < 2 {
		return Document{}, ErrEmptyDocument
	}

	return Document{Header: kept[0], Rows: kept[1:]}, nil
}
