package admin

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"farmledger/internal/core"
	"farmledger/internal/export"
	"farmledger/internal/ledger"
	"farmledger/internal/ports"

	"github.com/google/subcommands"
	"github.com/google/uuid"
)

type statsCmd struct {
	env   *Env
	month string
	json  bool
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "print the dashboard figures" }
func (*statsCmd) Usage() string {
	return `farmledger-admin stats [-month YYYY-MM] [-json]

  Prints totals, the monthly figure, the category breakdown and the trailing
  six month trend. -month moves "this month" to the given month.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "Reference month (YYYY-MM), defaults to the current month.")
	f.BoolVar(&c.json, "json", false, "Print JSON instead of text.")
}

func (c *statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ref := c.env.Now()
	if c.month != "" {
		t, err := time.Parse("2006-01", c.month)
		if err != nil {
			return usageError(f, fmt.Errorf("invalid -month %q: want YYYY-MM", c.month))
		}
		ref = t.AddDate(0, 0, 14)
	}

	s, status := c.env.session(ctx)
	if s == nil {
		return status
	}
	defer s.close()

	stats := core.Dashboard(s.Ledger.Expenses(), ref)
	if c.json {
		enc := json.NewEncoder(c.env.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintln(c.env.Err, err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	out := c.env.Out
	fmt.Fprintf(out, "Total Expenses:   %s (%d transactions)\n", core.FormatRupees(stats.TotalExpenses), stats.Count)
	fmt.Fprintf(out, "This Month:       %s (%s)\n", core.FormatRupees(stats.MonthlyExpenses), ref.Format("Jan 2006"))
	fmt.Fprintf(out, "Average Expense:  %s\n", core.FormatRupees(stats.AverageExpense))
	if top := stats.TopCategory; top != nil {
		fmt.Fprintf(out, "Top Category:     %s %s (%.1f%% of total)\n", top.Category.Icon(), top.Category.Label(), top.Percentage)
	} else {
		fmt.Fprintln(out, "Top Category:     N/A")
	}

	if len(stats.CategoryBreakdown) > 0 {
		fmt.Fprintln(out, "\nCategory Breakdown")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
		for _, cs := range stats.CategoryBreakdown {
			fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%s\t\n", cs.Category.Label(), cs.Count, cs.Percentage, core.FormatRupees(cs.Total))
		}
		tw.Flush()
	}

	fmt.Fprintln(out, "\nMonthly Expenses Trend")
	for _, m := range stats.MonthlyTrends {
		fmt.Fprintf(out, "  %-9s %s\n", m.Label, core.FormatRupees(m.Total))
	}
	return subcommands.ExitSuccess
}

type listCmd struct {
	env      *Env
	search   string
	category string
	sort     string
	dir      string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list expenses with optional filter and sort" }
func (*listCmd) Usage() string {
	return `farmledger-admin list [-search text] [-category name] [-sort date|amount|title] [-dir asc|desc]
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.search, "search", "", "Case-insensitive text matched against title and description.")
	f.StringVar(&c.category, "category", string(core.CategoryAll), "Category to show, or all.")
	f.StringVar(&c.sort, "sort", string(core.SortByDate), "Sort key: date, amount or title.")
	f.StringVar(&c.dir, "dir", string(core.Descending), "Sort direction: asc or desc.")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.category != string(core.CategoryAll) {
		if _, err := core.ParseCategory(c.category); err != nil {
			return usageError(f, err)
		}
	}
	if !core.SortKey(c.sort).Valid() {
		return usageError(f, fmt.Errorf("invalid -sort %q", c.sort))
	}
	q := core.Query{
		Search:    c.search,
		Category:  core.Category(c.category),
		SortKey:   core.SortKey(c.sort),
		Direction: core.Direction(c.dir),
	}
	if q.Direction != core.Ascending {
		q.Direction = core.Descending
	}

	s, status := c.env.session(ctx)
	if s == nil {
		return status
	}
	defer s.close()

	rows := core.Apply(s.Ledger.Expenses(), q)
	tw := tabwriter.NewWriter(c.env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE\tCATEGORY\tAMOUNT\tPAYMENT")
	for _, e := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Title, e.Category.Label(), core.FormatRupees(e.Amount), e.PaymentMethod.Label())
	}
	tw.Flush()
	fmt.Fprintf(c.env.Out, "%d expenses\n", len(rows))
	return subcommands.ExitSuccess
}

type exportCmd struct {
	env    *Env
	format string
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write every expense to a file" }
func (*exportCmd) Usage() string {
	return `farmledger-admin export [-format csv|json|yaml|legacy] [-o file]

  Without -o the export is written to standard output. Without -format the
  format is taken from the -o extension, falling back to csv.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "", "Output format: csv, json, yaml or legacy.")
	f.StringVar(&c.output, "o", "", "Output file.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	format, err := c.resolveFormat()
	if err != nil {
		return usageError(f, err)
	}

	s, status := c.env.session(ctx)
	if s == nil {
		return status
	}
	defer s.close()

	list := s.Ledger.Expenses()
	records := make([]ports.Record, 0, len(list))
	for _, e := range list {
		records = append(records, ports.RecordFromExpense(e))
	}

	out := c.env.Out
	if c.output != "" {
		file, err := os.Create(c.output)
		if err != nil {
			fmt.Fprintln(c.env.Err, err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		out = file
	}
	if err := export.Write(out, format, records); err != nil {
		fmt.Fprintln(c.env.Err, err)
		return subcommands.ExitFailure
	}
	if c.output != "" {
		fmt.Fprintf(c.env.Err, "exported %d expenses to %s\n", len(records), c.output)
	}
	return subcommands.ExitSuccess
}

func (c *exportCmd) resolveFormat() (export.Format, error) {
	if c.format != "" {
		return export.ParseFormat(c.format)
	}
	if c.output != "" {
		if f, err := export.FormatFromPath(c.output); err == nil {
			return f, nil
		}
	}
	return export.FormatCSV, nil
}

type importCmd struct {
	env    *Env
	format string
	dryRun bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "add expenses from a file" }
func (*importCmd) Usage() string {
	return `farmledger-admin import [-format csv|json|yaml|legacy] [-dry-run] <file>

  Every record is validated before anything is written. Stores that support
  batch inserts receive the whole file in one transaction.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "", "Input format; defaults to the file extension.")
	f.BoolVar(&c.dryRun, "dry-run", false, "Validate only.")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, fmt.Errorf("import needs exactly one file"))
	}
	path := f.Arg(0)
	var (
		format export.Format
		err    error
	)
	if c.format != "" {
		format, err = export.ParseFormat(c.format)
	} else {
		format, err = export.FormatFromPath(path)
	}
	if err != nil {
		return usageError(f, err)
	}

	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(c.env.Err, err)
		return subcommands.ExitFailure
	}
	defer file.Close()
	records, err := export.Read(file, format)
	if err != nil {
		fmt.Fprintln(c.env.Err, err)
		return subcommands.ExitFailure
	}
	if c.dryRun {
		fmt.Fprintf(c.env.Out, "%d expenses valid, nothing written\n", len(records))
		return subcommands.ExitSuccess
	}

	s, status := c.env.session(ctx)
	if s == nil {
		return status
	}
	defer s.close()

	n, err := c.importRecords(ctx, s, records)
	if err != nil {
		fmt.Fprintln(c.env.Err, err)
		fmt.Fprintf(c.env.Out, "imported %d of %d expenses\n", n, len(records))
		return subcommands.ExitFailure
	}
	fmt.Fprintf(c.env.Out, "imported %d expenses\n", n)
	return subcommands.ExitSuccess
}

// importRecords prefers the store's batch import; otherwise records go one
// by one through the gateway, which publishes each change.
func (c *importCmd) importRecords(ctx context.Context, s *Session, records []ports.Record) (int, error) {
	if s.Importer != nil {
		batch := make([]ports.Record, len(records))
		for i, r := range records {
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			batch[i] = r
		}
		n, err := s.Importer.Import(ctx, batch)
		if err != nil {
			return n, err
		}
		c.announce(ctx, s.Publisher, batch)
		return n, nil
	}
	for i, r := range records {
		// the store assigns the real id on Create
		if r.ID == "" {
			r.ID = "pending"
		}
		e, err := r.Expense()
		if err != nil {
			return i, err
		}
		if _, err := s.Ledger.Create(ctx, e.Input()); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

// announce publishes one created change per imported record. Failures are
// reported but do not undo the import.
func (c *importCmd) announce(ctx context.Context, pub ports.ChangePublisher, batch []ports.Record) {
	if pub == nil {
		return
	}
	ts := c.env.Now().UTC()
	failed := 0
	for i := range batch {
		change := ports.Change{Op: ports.OpCreated, ID: batch[i].ID, Record: &batch[i], Timestamp: ts}
		if err := pub.PublishChange(ctx, change); err != nil {
			failed++
			fmt.Fprintf(c.env.Err, "publish %s: %v\n", batch[i].ID, err)
		}
	}
	if failed > 0 {
		fmt.Fprintf(c.env.Err, "%d of %d change events not published\n", failed, len(batch))
	}
}

type deleteCmd struct {
	env *Env
	yes bool
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete one expense after confirmation" }
func (*deleteCmd) Usage() string {
	return `farmledger-admin delete [-yes] <id>
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "Skip the confirmation prompt.")
}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, fmt.Errorf("delete needs exactly one id"))
	}
	id := f.Arg(0)

	s, status := c.env.session(ctx)
	if s == nil {
		return status
	}
	defer s.close()

	confirm := func(_ context.Context, e core.Expense) bool {
		if c.yes {
			return true
		}
		fmt.Fprintf(c.env.Out, "%s  %s  %s\n", e.Date, e.Title, core.FormatRupees(e.Amount))
		return c.env.confirm("Are you sure you want to delete this expense?")
	}
	err := s.Ledger.Delete(ctx, id, confirm)
	switch {
	case err == nil:
		fmt.Fprintf(c.env.Out, "deleted %s\n", id)
		return subcommands.ExitSuccess
	case errors.Is(err, ledger.ErrDeleteDeclined):
		fmt.Fprintln(c.env.Out, "nothing deleted")
		return subcommands.ExitSuccess
	default:
		fmt.Fprintln(c.env.Err, err)
		return subcommands.ExitFailure
	}
}
