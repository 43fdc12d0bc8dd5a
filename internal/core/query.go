package core

import (
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CategoryAll disables category filtering.
const CategoryAll Category = "all"

const (
	SortByDate   SortKey = "date"
	SortByAmount SortKey = "amount"
	SortByTitle  SortKey = "title"
)

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

type (
	SortKey   string
	Direction string

	// Query selects and orders expenses for the list view.
	Query struct {
		Search    string
		Category  Category // CategoryAll or a specific category
		SortKey   SortKey
		Direction Direction
	}
)

// DefaultQuery shows everything, newest first.
func DefaultQuery() Query {
	return Query{Category: CategoryAll, SortKey: SortByDate, Direction: Descending}
}

func (k SortKey) Valid() bool {
	switch k {
	case SortByDate, SortByAmount, SortByTitle:
		return true
	}
	return false
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Ascending {
		return Descending
	}
	return Ascending
}

// ToggleSort applies a click on a column header: the active column flips
// direction, any other column becomes active in descending order.
func (q Query) ToggleSort(key SortKey) Query {
	if q.SortKey == key {
		q.Direction = q.Direction.Flip()
		return q
	}
	q.SortKey = key
	q.Direction = Descending
	return q
}

// Values encodes the query as URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	v.Set("category", string(q.Category))
	v.Set("sort", string(q.SortKey))
	v.Set("dir", string(q.Direction))
	return v
}

// ParseQuery reads a query from URL parameters; unknown values fall back to the defaults.
func ParseQuery(v url.Values) Query {
	q := DefaultQuery()
	q.Search = v.Get("search")
	if c := Category(v.Get("category")); c.Valid() {
		q.Category = c
	}
	if k := SortKey(v.Get("sort")); k.Valid() {
		q.SortKey = k
	}
	switch Direction(v.Get("dir")) {
	case Ascending:
		q.Direction = Ascending
	case Descending:
		q.Direction = Descending
	}
	return q
}

// Matches reports whether e passes the search and category filters.
func (q Query) Matches(e Expense) bool {
	if q.Category != CategoryAll && q.Category != "" && e.Category != q.Category {
		return false
	}
	term := strings.ToLower(q.Search)
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(e.Title), term) {
		return true
	}
	return e.Description != "" && strings.Contains(strings.ToLower(e.Description), term)
}

// Apply filters and sorts list into a new slice. The input is not modified.
// Sorting is stable and has no secondary key.
func Apply(list []Expense, q Query) []Expense {
	out := make([]Expense, 0, len(list))
	for _, e := range list {
		if q.Matches(e) {
			out = append(out, e)
		}
	}

	cmp := comparator(q.SortKey)
	if q.Direction == Descending {
		asc := cmp
		cmp = func(a, b Expense) int { return -asc(a, b) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		return cmp(out[i], out[j]) < 0
	})
	return out
}

func comparator(key SortKey) func(a, b Expense) int {
	switch key {
	case SortByAmount:
		return func(a, b Expense) int { return a.Amount.Cmp(b.Amount) }
	case SortByTitle:
		return compareTitles
	default:
		return func(a, b Expense) int { return a.Date.Compare(b.Date.Time) }
	}
}

var (
	titleCollatorMu sync.Mutex
	titleCollator   = collate.New(language.English)
)

// compareTitles orders titles the way a reader expects rather than by byte
// value. collate.Collator is not safe for concurrent use.
func compareTitles(a, b Expense) int {
	titleCollatorMu.Lock()
	defer titleCollatorMu.Unlock()
	return titleCollator.CompareString(a.Title, b.Title)
}
