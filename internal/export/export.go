// Package export converts expense records to and from files: csv, json and
// yaml in the datastore shape, plus the legacy browser-storage format.
package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"farmledger/internal/ports"
)

// Format names a file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	// FormatLegacy is the JSON array the browser-only tracker kept under
	// LegacyStorageKey: camelCase paymentMethod, numeric amounts.
	FormatLegacy Format = "legacy"
)

// LegacyStorageKey is where the browser-only tracker stored its expenses.
const LegacyStorageKey = "dhakad-anda-farm-expenses"

var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatYAML, FormatLegacy}
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatYAML, FormatLegacy:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Encoder writes records in one format.
type Encoder interface {
	Encode(w io.Writer, records []ports.Record) error
}

// Decoder reads records in one format. Decoded records are not validated.
type Decoder interface {
	Decode(r io.Reader) ([]ports.Record, error)
}

type codec interface {
	Encoder
	Decoder
}

func codecFor(f Format) (codec, error) {
	switch f {
	case FormatCSV:
		return csvCodec{}, nil
	case FormatJSON:
		return jsonCodec{}, nil
	case FormatYAML:
		return yamlCodec{}, nil
	case FormatLegacy:
		return legacyCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Write encodes records to w.
func Write(w io.Writer, f Format, records []ports.Record) error {
	c, err := codecFor(f)
	if err != nil {
		return err
	}
	if err := c.Encode(w, records); err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	return nil
}

// Read decodes records from r and checks each against the domain rules.
// Every invalid record is reported; nothing is returned unless all pass.
func Read(r io.Reader, f Format) ([]ports.Record, error) {
	c, err := codecFor(f)
	if err != nil {
		return nil, err
	}
	records, err := c.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f, err)
	}

	var errs []error
	for i, rec := range records {
		if err := validate(rec); err != nil {
			errs = append(errs, fmt.Errorf("record %d (%s): %w", i+1, rec.Title, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return records, nil
}

// validate runs the domain checks. Records may lack an id; the importing
// store assigns one.
func validate(rec ports.Record) error {
	if rec.ID == "" {
		rec.ID = "pending"
	}
	e, err := rec.Expense()
	if err != nil {
		return err
	}
	return e.Validate()
}
