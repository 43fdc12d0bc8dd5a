package export

import (
	"fmt"
	"io"

	"farmledger/internal/ports"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// yamlRow keeps the amount as text so yaml never turns it into a float.
type yamlRow struct {
	ID            string `yaml:"id,omitempty"`
	Title         string `yaml:"title"`
	Amount        string `yaml:"amount"`
	Category      string `yaml:"category"`
	Date          string `yaml:"date"`
	Description   string `yaml:"description,omitempty"`
	PaymentMethod string `yaml:"payment_method"`
}

type yamlCodec struct{}

func (yamlCodec) Encode(w io.Writer, records []ports.Record) error {
	out := make([]yamlRow, 0, len(records))
	for _, r := range records {
		out = append(out, yamlRow{
			ID:            r.ID,
			Title:         r.Title,
			Amount:        r.Amount.StringFixed(2),
			Category:      r.Category,
			Date:          r.Date,
			Description:   r.Description,
			PaymentMethod: r.PaymentMethod,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

func (yamlCodec) Decode(r io.Reader) ([]ports.Record, error) {
	var in []yamlRow
	if err := yaml.NewDecoder(r).Decode(&in); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	out := make([]ports.Record, 0, len(in))
	for i, row := range in {
		amt, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("item %d: invalid amount %q", i+1, row.Amount)
		}
		out = append(out, ports.Record{
			ID:            row.ID,
			Title:         row.Title,
			Amount:        amt,
			Category:      row.Category,
			Date:          row.Date,
			Description:   row.Description,
			PaymentMethod: row.PaymentMethod,
		})
	}
	return out, nil
}
