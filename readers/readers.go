package readers

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/poiesic/docchat/ingestion"
)

// Read picks a reader from name's extension.
func Read(name string, r io.Reader) ([]ingestion.Unit, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return CSV(name, r)
	case ".txt", ".md", ".text":
		return Text(name, r)
	case ".json":
		return JSON(name, r)
	case ".png", ".jpg", ".jpeg", ".gif":
		return Image(name, r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// CSV reads one row unit per record. The first record is the header; rows
// whose cells are all blank are skipped.
func CSV(name string, r io.Reader) ([]ingestion.Unit, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var units []ingestion.Unit
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
		}
		if blank(record) {
			continue
		}
		units = append(units, ingestion.RowUnit(name, header, record))
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}
	return units, nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Text reads the whole file as one text unit.
func Text(name string, r io.Reader) ([]ingestion.Unit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(bytes.TrimPrefix(data, []byte("\ufeff"))))
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}
	return []ingestion.Unit{{Kind: ingestion.UnitText, Source: name, Text: text}}, nil
}

// Image wraps the file bytes in one image unit.
func Image(name string, r io.Reader) ([]ingestion.Unit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}
	return []ingestion.Unit{{Kind: ingestion.UnitImage, Source: name, Image: data}}, nil
}

// jsonUnit is the wire form of a pre-extracted unit. Image data is base64.
type jsonUnit struct {
	Kind   string            `json:"kind"`
	Text   string            `json:"text,omitempty"`
	Fields []ingestion.Field `json:"fields,omitempty"`
	Rows   [][]string        `json:"rows,omitempty"`
	Image  string            `json:"image_b64,omitempty"`
	Source string            `json:"source,omitempty"`
}

// JSON reads a list of units:
//
//	[{"kind": "page", "text": "..."}, {"kind": "table", "rows": [["a", "b"]]}]
func JSON(name string, r io.Reader) ([]ingestion.Unit, error) {
	var raw []jsonUnit
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	}

	units := make([]ingestion.Unit, 0, len(raw))
	for i, ju := range raw {
		kind, err := ingestion.ParseUnitKind(ju.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: unit %d: %w", ErrMalformed, name, i, err)
		}
		unit := ingestion.Unit{
			Kind:   kind,
			Source: ju.Source,
			Text:   ju.Text,
			Fields: ju.Fields,
			Rows:   ju.Rows,
		}
		if unit.Source == "" {
			unit.Source = name
		}
		if ju.Image != "" {
			unit.Image, err = base64.StdEncoding.DecodeString(ju.Image)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: unit %d: %w", ErrMalformed, name, i, err)
			}
		}
		units = append(units, unit)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}
	return units, nil
}
