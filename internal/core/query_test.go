package core

import (
	"net/url"
	"testing"
)

func ids(list []Expense) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.ID
	}
	return out
}

func equalIDs(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sample() []Expense {
	a := exp("a", CategoryFeed, "100", "2024-01-05")
	a.Title = "Layer Feed"
	b := exp("b", CategoryMedicine, "50", "2024-02-10")
	b.Title = "vaccine"
	b.Description = "Ranikhet booster for the FEED shed"
	c := exp("c", CategoryLabor, "75", "2024-01-20")
	c.Title = "Éggs crates"
	d := exp("d", CategoryFeed, "50", "2024-03-01")
	d.Title = "bran"
	return []Expense{a, b, c, d}
}

func TestApplySearchTitleOrDescription(t *testing.T) {
	q := DefaultQuery()
	q.Search = "feed"
	got := Apply(sample(), q)
	// date desc: d (no match), b (description), a (title)
	if !equalIDs(ids(got), "b", "a") {
		t.Fatalf("unexpected result: %v", ids(got))
	}
}

func TestApplyEmptySearchMatchesAll(t *testing.T) {
	got := Apply(sample(), DefaultQuery())
	if !equalIDs(ids(got), "d", "b", "c", "a") {
		t.Fatalf("unexpected order: %v", ids(got))
	}
}

func TestApplyNoMatchIsEmptyNotNil(t *testing.T) {
	q := DefaultQuery()
	q.Search = "zzz"
	got := Apply(sample(), q)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestApplyCategoryFilter(t *testing.T) {
	q := DefaultQuery()
	q.Category = CategoryFeed
	if got := Apply(sample(), q); !equalIDs(ids(got), "d", "a") {
		t.Fatalf("unexpected result: %v", ids(got))
	}
	q.Search = "bran"
	if got := Apply(sample(), q); !equalIDs(ids(got), "d") {
		t.Fatalf("search and category must both hold: %v", ids(got))
	}
}

func TestApplySortKeys(t *testing.T) {
	cases := []struct {
		key  SortKey
		dir  Direction
		want []string
	}{
		{SortByDate, Ascending, []string{"a", "c", "b", "d"}},
		{SortByAmount, Descending, []string{"a", "c", "b", "d"}},
		// b and d tie at 50 and keep input order in both directions
		{SortByAmount, Ascending, []string{"b", "d", "c", "a"}},
		{SortByTitle, Ascending, []string{"d", "c", "a", "b"}},
		{SortByTitle, Descending, []string{"b", "a", "c", "d"}},
	}
	for _, tc := range cases {
		q := Query{Category: CategoryAll, SortKey: tc.key, Direction: tc.dir}
		got := ids(Apply(sample(), q))
		if !equalIDs(got, tc.want...) {
			t.Fatalf("%s %s: expected %v, got %v", tc.key, tc.dir, tc.want, got)
		}
	}
}

func TestApplyAmountDirectionsMirror(t *testing.T) {
	list := []Expense{
		exp("a", CategoryFeed, "100", "2024-01-05"),
		exp("b", CategoryFeed, "12.50", "2024-01-06"),
		exp("c", CategoryLabor, "75", "2024-01-07"),
		exp("d", CategoryOther, "1000", "2024-01-08"),
	}
	asc := ids(Apply(list, Query{Category: CategoryAll, SortKey: SortByAmount, Direction: Ascending}))
	desc := ids(Apply(list, Query{Category: CategoryAll, SortKey: SortByAmount, Direction: Descending}))
	if !equalIDs(asc, "b", "c", "a", "d") {
		t.Fatalf("ascending: %v", asc)
	}
	for i := range asc {
		if asc[i] != desc[len(desc)-1-i] {
			t.Fatalf("descending %v is not the reverse of ascending %v", desc, asc)
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := sample()
	before := ids(in)
	out := Apply(in, Query{Category: CategoryAll, SortKey: SortByTitle, Direction: Ascending})
	if !equalIDs(ids(in), before...) {
		t.Fatalf("input reordered: %v", ids(in))
	}
	out[0].Title = "changed"
	if in[3].Title == "changed" {
		t.Fatalf("result shares backing array with input")
	}
}

func TestToggleSort(t *testing.T) {
	q := DefaultQuery()
	q = q.ToggleSort(SortByDate)
	if q.SortKey != SortByDate || q.Direction != Ascending {
		t.Fatalf("same key must flip: %+v", q)
	}
	q = q.ToggleSort(SortByAmount)
	if q.SortKey != SortByAmount || q.Direction != Descending {
		t.Fatalf("new key must start descending: %+v", q)
	}
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery(url.Values{"search": {"mash"}, "category": {"labor"}, "sort": {"title"}, "dir": {"asc"}})
	if q.Search != "mash" || q.Category != CategoryLabor || q.SortKey != SortByTitle || q.Direction != Ascending {
		t.Fatalf("unexpected query: %+v", q)
	}
	q = ParseQuery(url.Values{"category": {"poultry"}, "sort": {"weight"}, "dir": {"up"}})
	if q != DefaultQuery() {
		t.Fatalf("unknown values must fall back to defaults: %+v", q)
	}
	if got := ParseQuery(DefaultQuery().ToggleSort(SortByTitle).Values()); got.SortKey != SortByTitle {
		t.Fatalf("values round trip: %+v", got)
	}
}
