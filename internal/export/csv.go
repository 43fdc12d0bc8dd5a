package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"farmledger/internal/ports"

	"github.com/shopspring/decimal"
)

var csvHeader = []string{"id", "title", "amount", "category", "date", "description", "payment_method"}

type csvCodec struct{}

func (csvCodec) Encode(w io.Writer, records []ports.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Title,
			r.Amount.StringFixed(2),
			r.Category,
			r.Date,
			r.Description,
			r.PaymentMethod,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode reads rows by header name, so column order may differ from the
// one Encode writes. Missing optional columns stay empty.
func (csvCodec) Decode(r io.Reader) ([]ports.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"title", "amount", "category", "date", "payment_method"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]ports.Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		amt, err := decimal.NewFromString(get(row, "amount"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount %q", n+2, get(row, "amount"))
		}
		out = append(out, ports.Record{
			ID:            get(row, "id"),
			Title:         get(row, "title"),
			Amount:        amt,
			Category:      get(row, "category"),
			Date:          get(row, "date"),
			Description:   get(row, "description"),
			PaymentMethod: get(row, "payment_method"),
		})
	}
	return out, nil
}
