// Package tabular converts between delimited text and loosely-typed row maps.
//
// The codec knows nothing about any particular schema: it deals only in
// header lists and rows keyed by header name. Schema-specific shaping lives
// in internal/schema.
//
// Output is spreadsheet-friendly by construction: a UTF-8 byte-order marker
// is always prepended so Excel detects the encoding, and every field is
// quoted regardless of content, which keeps the format mechanically simple.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// bom is the UTF-8 byte-order marker commonly added by Windows spreadsheet
// tools, and expected by them on download.
var bom = []byte{0xEF, 0xBB, 0xBF}

// Row maps a column header to its string value. A decoded Row always carries
// the document's full header set; missing cells are empty strings.
type Row map[string]string

// Document is an ordered list of rows under a fixed header set. Header order
// is significant for encoding; decoding looks cells up by name.
type Document struct {
	Headers []string
	Rows    []Row
}

// MalformedTableError reports a structural problem in delimited input,
// pointing at the offending line so the user can fix the file.
type MalformedTableError struct {
	Line   int // 1-based line number in the input, 0 if unknown
	Reason string
}

func (e *MalformedTableError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed table at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed table: %s", e.Reason)
}

// DecodeOptions tunes how strictly Decode treats data rows.
type DecodeOptions struct {
	// PadShortRows pads data rows that carry fewer fields than the header
	// with empty cells instead of failing. Adapters whose tabular form
	// legitimately leaves trailing cells blank (grouped child rows edited
	// by hand) opt in; everything else gets the strict check.
	PadShortRows bool
}

// Encode renders headers and rows as CSV: BOM, header line, one line per
// row. Every field is individually double-quoted with embedded quotes
// doubled. Cells are emitted in header order; a row's missing cells become
// empty fields. Encode never fails.
func Encode(headers []string, rows []Row) []byte {
	var b bytes.Buffer
	b.Write(bom)

	writeLine(&b, headers)
	cells := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			cells[i] = row[h]
		}
		writeLine(&b, cells)
	}

	return b.Bytes()
}

// writeLine writes one CSV line with every field quoted, CRLF-terminated.
func writeLine(b *bytes.Buffer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
}

// Decode parses delimited text into a Document under the strict field-count
// check: every data line must carry exactly as many fields as the header.
func Decode(data []byte) (*Document, error) {
	return DecodeWith(data, DecodeOptions{})
}

// DecodeWith parses delimited text into a Document.
//
// A leading byte-order marker is tolerated, header names are trimmed of
// surrounding whitespace, and fully blank lines are skipped. Input that
// contains only a header line decodes to a Document with zero rows. Any
// structural problem is reported as *MalformedTableError with the offending
// line number.
func DecodeWith(data []byte, opts DecodeOptions) (*Document, error) {
	data = bytes.TrimPrefix(data, bom)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = false

	records, err := r.ReadAll()
	if err != nil {
		return nil, asMalformed(err)
	}
	if len(records) == 0 {
		return nil, &MalformedTableError{Reason: "empty input, header line required"}
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	doc := &Document{Headers: headers}
	for i, record := range records[1:] {
		if blankRecord(record) {
			continue
		}
		line := i + 2 // 1-based, after the header line

		switch {
		case len(record) == len(headers):
			// exact width, nothing to fix up
		case len(record) < len(headers) && opts.PadShortRows:
			padded := make([]string, len(headers))
			copy(padded, record)
			record = padded
		default:
			return nil, &MalformedTableError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(headers), len(record)),
			}
		}

		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		doc.Rows = append(doc.Rows, row)
	}

	return doc, nil
}

// asMalformed converts encoding/csv parse errors into the codec's own error
// type, preserving the line number when the reader reports one.
func asMalformed(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		reason := "unparseable line"
		if pe.Err != nil {
			reason = pe.Err.Error()
		}
		return &MalformedTableError{Line: pe.Line, Reason: reason}
	}
	return &MalformedTableError{Reason: err.Error()}
}

// blankRecord reports whether every field on the line is empty or
// whitespace. Such lines are skipped rather than treated as data.
func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
