package google

import (
	"fmt"
	"strings"
	"time"

	"farmledger/internal/ports"

	"github.com/shopspring/decimal"
)

// parseRows converts a values matrix (as returned by Sheets API) into
// records and an id -> 1-based row index. The header row and rows without
// an id are skipped. Later rows count as more recently created.
func parseRows(values [][]interface{}) ([]ports.Record, map[string]int) {
	records := make([]ports.Record, 0, len(values))
	index := make(map[string]int, len(values))
	for i, raw := range values {
		row := toStrings(raw)
		id := safeGet(row, 0)
		if id == "" || (i == 0 && strings.EqualFold(id, "id")) {
			continue
		}
		amount, ok := parseSheetAmount(safeGet(row, 2))
		if !ok {
			amount = decimal.Zero
		}
		index[id] = i + 1
		records = append(records, ports.Record{
			ID:            id,
			Title:         safeGet(row, 1),
			Amount:        amount,
			Category:      safeGet(row, 3),
			Date:          safeGet(row, 4),
			Description:   safeGet(row, 5),
			PaymentMethod: safeGet(row, 6),
			CreatedAt:     time.Unix(0, int64(i)),
		})
	}
	return records, index
}

// recordRow is the inverse of parseRows for a single record.
func recordRow(r ports.Record) []interface{} {
	return []interface{}{r.ID, r.Title, r.Amount.String(), r.Category, r.Date, r.Description, r.PaymentMethod}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseSheetAmount accepts plain numbers as well as values a user formatted
// in the sheet, e.g. "₹1,250.50".
func parseSheetAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
