package ingestion

import (
	"fmt"
	"strings"
)

// UnitKind identifies the shape of an extracted document unit.
type UnitKind int

const (
	UnitText UnitKind = iota
	UnitRow
	UnitPage
	UnitParagraph
	UnitTable
	UnitImage
)

var unitKindNames = [...]string{"text", "row", "page", "paragraph", "table", "image"}

func (k UnitKind) String() string {
	if k < 0 || int(k) >= len(unitKindNames) {
		return fmt.Sprintf("unit(%d)", int(k))
	}
	return unitKindNames[k]
}

// ParseUnitKind is the inverse of String.
func ParseUnitKind(s string) (UnitKind, error) {
	for i, name := range unitKindNames {
		if strings.EqualFold(s, name) {
			return UnitKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown unit kind %q", s)
}

// Field is one named value of a row, kept in column order.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Unit is one piece of extracted content. Which fields apply depends on Kind.
type Unit struct {
	Kind UnitKind
	// Source names the file the unit came from.
	Source string
	// Fields holds the columns of a row.
	Fields []Field
	// Rows holds the cells of a table.
	Rows [][]string
	// Text holds page, paragraph and free text; for images it is the caption.
	Text string
	// Image holds encoded image bytes.
	Image []byte
}

// Content renders the unit as the text that gets chunked. Rows become one
// "name: value" line per column and tables one " | "-joined line per row.
// Images have no chunkable content.
func (u Unit) Content() string {
	switch u.Kind {
	case UnitRow:
		lines := make([]string, 0, len(u.Fields))
		for _, f := range u.Fields {
			lines = append(lines, f.Name+": "+f.Value)
		}
		return strings.Join(lines, "\n")
	case UnitTable:
		lines := make([]string, 0, len(u.Rows))
		for _, row := range u.Rows {
			lines = append(lines, strings.Join(row, " | "))
		}
		return strings.Join(lines, "\n")
	case UnitImage:
		return ""
	default:
		return u.Text
	}
}

// RowUnit builds a row unit from parallel header and value slices.
// Missing values are empty; extra values are ignored.
func RowUnit(source string, header, values []string) Unit {
	fields := make([]Field, len(header))
	for i, name := range header {
		fields[i].Name = name
		if i < len(values) {
			fields[i].Value = values[i]
		}
	}
	return Unit{Kind: UnitRow, Source: source, Fields: fields}
}
