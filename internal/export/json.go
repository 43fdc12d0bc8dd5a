package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"farmledger/internal/core"
	"farmledger/internal/ports"

	"github.com/shopspring/decimal"
)

type jsonCodec struct{}

func (jsonCodec) Encode(w io.Writer, records []ports.Record) error {
	if records == nil {
		records = []ports.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func (jsonCodec) Decode(r io.Reader) ([]ports.Record, error) {
	var out []ports.Record
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// legacyExpense is one element of the browser-storage array.
type legacyExpense struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Amount        json.Number `json:"amount"`
	Category      string      `json:"category"`
	Date          string      `json:"date"`
	Description   string      `json:"description,omitempty"`
	PaymentMethod string      `json:"paymentMethod"`
}

type legacyCodec struct{}

func (legacyCodec) Encode(w io.Writer, records []ports.Record) error {
	out := make([]legacyExpense, 0, len(records))
	for _, r := range records {
		out = append(out, legacyExpense{
			ID:            r.ID,
			Title:         r.Title,
			Amount:        json.Number(r.Amount.String()),
			Category:      r.Category,
			Date:          r.Date,
			Description:   r.Description,
			PaymentMethod: r.PaymentMethod,
		})
	}
	return json.NewEncoder(w).Encode(out)
}

// Decode accepts dates as YYYY-MM-DD or as ISO timestamps, which is how
// some browsers serialized them.
func (legacyCodec) Decode(r io.Reader) ([]ports.Record, error) {
	var in []legacyExpense
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, err
	}
	out := make([]ports.Record, 0, len(in))
	for i, e := range in {
		amt, err := decimal.NewFromString(e.Amount.String())
		if err != nil {
			return nil, fmt.Errorf("item %d: invalid amount %q", i+1, e.Amount)
		}
		out = append(out, ports.Record{
			ID:            e.ID,
			Title:         strings.TrimSpace(e.Title),
			Amount:        amt,
			Category:      e.Category,
			Date:          legacyDate(e.Date),
			Description:   e.Description,
			PaymentMethod: e.PaymentMethod,
		})
	}
	return out, nil
}

func legacyDate(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().Format(core.DateLayout)
	}
	if len(s) > len(core.DateLayout) {
		return s[:len(core.DateLayout)]
	}
	return s
}
