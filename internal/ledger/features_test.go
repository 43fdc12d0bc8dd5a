package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"

	"farmledger/internal/core"
	"farmledger/internal/ports"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
	"github.com/shopspring/decimal"
)

func TestFeatures(t *testing.T) {
	opts := godog.Options{
		Format:   "pretty",
		Paths:    []string{"features"},
		Output:   colors.Colored(os.Stdout),
		Strict:   true,
		TestingT: t,
	}
	if tags := os.Getenv("GODOG_TAGS"); tags != "" {
		opts.Tags = tags
	}

	suite := godog.TestSuite{
		Name:                "ledger-gateway",
		ScenarioInitializer: initializeScenario,
		Options:             &opts,
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// scenario holds the state of one feature scenario.
type scenario struct {
	store   *fakeStore
	gateway *Gateway
	lastErr error
}

type scenarioKey struct{}

func scenarioFrom(ctx context.Context) *scenario {
	return ctx.Value(scenarioKey{}).(*scenario)
}

func initializeScenario(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return context.WithValue(ctx, scenarioKey{}, &scenario{}), nil
	})

	sc.Step(`^the datastore holds:$`, theDatastoreHolds)
	sc.Step(`^the ledger has been loaded$`, theLedgerHasBeenLoaded)
	sc.Step(`^the datastore rejects "([^"]*)"$`, theDatastoreRejects)
	sc.Step(`^I record "([^"]*)" costing "([^"]*)" under "([^"]*)" on "([^"]*)" paid by "([^"]*)"$`, iRecord)
	sc.Step(`^I change "([^"]*)" to "([^"]*)" costing "([^"]*)"$`, iChange)
	sc.Step(`^I delete "([^"]*)" and decline the confirmation$`, iDeleteAndDecline)
	sc.Step(`^I delete "([^"]*)" and confirm$`, iDeleteAndConfirm)
	sc.Step(`^the call succeeds$`, theCallSucceeds)
	sc.Step(`^the call fails$`, theCallFails)
	sc.Step(`^the delete is reported as declined$`, theDeleteIsDeclined)
	sc.Step(`^the ledger lists "([^"]*)"$`, theLedgerLists)
	sc.Step(`^the total is "([^"]*)"$`, theTotalIs)
	sc.Step(`^the datastore received payment method "([^"]*)"$`, theDatastoreReceivedPaymentMethod)
	sc.Step(`^the datastore received no "([^"]*)" call$`, theDatastoreReceivedNoCall)
	sc.Step(`^the breakdown is:$`, theBreakdownIs)
}

func theDatastoreHolds(ctx context.Context, table *godog.Table) error {
	s := scenarioFrom(ctx)
	var seed []ports.Record
	for _, row := range table.Rows[1:] {
		c := row.Cells
		amount, err := decimal.NewFromString(c[1].Value)
		if err != nil {
			return err
		}
		seed = append(seed, ports.Record{Title: c[0].Value, Amount: amount, Category: c[2].Value, Date: c[3].Value, PaymentMethod: c[4].Value})
	}
	s.store = newFakeStore(seed...)
	s.gateway = New(s.store)
	return nil
}

func theLedgerHasBeenLoaded(ctx context.Context) error {
	return scenarioFrom(ctx).gateway.Load(ctx)
}

func theDatastoreRejects(ctx context.Context, op string) error {
	scenarioFrom(ctx).store.failOn(op, errUnavailable)
	return nil
}

func iRecord(ctx context.Context, title, amount, category, date, pm string) error {
	s := scenarioFrom(ctx)
	d, err := core.ParseDate(date)
	if err != nil {
		return err
	}
	_, s.lastErr = s.gateway.Create(ctx, core.ExpenseInput{
		Title:         title,
		Amount:        decimal.RequireFromString(amount),
		Category:      core.Category(category),
		Date:          d,
		PaymentMethod: core.PaymentMethod(pm),
	})
	return nil
}

func findByTitle(g *Gateway, title string) (core.Expense, error) {
	for _, e := range g.Expenses() {
		if e.Title == title {
			return e, nil
		}
	}
	return core.Expense{}, fmt.Errorf("no expense titled %q", title)
}

func iChange(ctx context.Context, title, newTitle, amount string) error {
	s := scenarioFrom(ctx)
	e, err := findByTitle(s.gateway, title)
	if err != nil {
		return err
	}
	in := e.Input()
	in.Title = newTitle
	in.Amount = decimal.RequireFromString(amount)
	_, s.lastErr = s.gateway.Update(ctx, e.ID, in)
	return nil
}

func deleteWith(ctx context.Context, title string, answer bool) error {
	s := scenarioFrom(ctx)
	e, err := findByTitle(s.gateway, title)
	if err != nil {
		return err
	}
	s.lastErr = s.gateway.Delete(ctx, e.ID, func(context.Context, core.Expense) bool { return answer })
	return nil
}

func iDeleteAndDecline(ctx context.Context, title string) error { return deleteWith(ctx, title, false) }
func iDeleteAndConfirm(ctx context.Context, title string) error { return deleteWith(ctx, title, true) }

func theCallSucceeds(ctx context.Context) error {
	if err := scenarioFrom(ctx).lastErr; err != nil {
		return fmt.Errorf("expected success, got %w", err)
	}
	return nil
}

func theCallFails(ctx context.Context) error {
	if err := scenarioFrom(ctx).lastErr; !errors.Is(err, errUnavailable) {
		return fmt.Errorf("expected the datastore error, got %v", err)
	}
	return nil
}

func theDeleteIsDeclined(ctx context.Context) error {
	if err := scenarioFrom(ctx).lastErr; !errors.Is(err, ErrDeleteDeclined) {
		return fmt.Errorf("expected ErrDeleteDeclined, got %v", err)
	}
	return nil
}

func theLedgerLists(ctx context.Context, want string) error {
	var titles []string
	for _, e := range scenarioFrom(ctx).gateway.Expenses() {
		titles = append(titles, e.Title)
	}
	if got := strings.Join(titles, ", "); got != want {
		return fmt.Errorf("ledger lists %q, want %q", got, want)
	}
	return nil
}

func theTotalIs(ctx context.Context, want string) error {
	got := core.TotalAmount(scenarioFrom(ctx).gateway.Expenses())
	if !got.Equal(decimal.RequireFromString(want)) {
		return fmt.Errorf("total is %s, want %s", got, want)
	}
	return nil
}

func theDatastoreReceivedPaymentMethod(ctx context.Context, pm string) error {
	s := scenarioFrom(ctx)
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if len(s.store.sent) == 0 {
		return errors.New("datastore received nothing")
	}
	if got := s.store.sent[len(s.store.sent)-1].PaymentMethod; got != pm {
		return fmt.Errorf("payment_method = %q, want %q", got, pm)
	}
	return nil
}

func theDatastoreReceivedNoCall(ctx context.Context, op string) error {
	if n := scenarioFrom(ctx).store.count(op); n != 0 {
		return fmt.Errorf("datastore received %d %s calls", n, op)
	}
	return nil
}

func theBreakdownIs(ctx context.Context, table *godog.Table) error {
	got := core.CategoryBreakdown(scenarioFrom(ctx).gateway.Expenses())
	rows := table.Rows[1:]
	if len(got) != len(rows) {
		return fmt.Errorf("breakdown has %d rows, want %d", len(got), len(rows))
	}
	for i, row := range rows {
		c := row.Cells
		pct, err := strconv.ParseFloat(c[2].Value, 64)
		if err != nil {
			return err
		}
		if string(got[i].Category) != c[0].Value ||
			!got[i].Total.Equal(decimal.RequireFromString(c[1].Value)) ||
			strconv.FormatFloat(got[i].Percentage, 'f', 1, 64) != strconv.FormatFloat(pct, 'f', 1, 64) {
			return fmt.Errorf("row %d = %+v, want %v %v %v", i, got[i], c[0].Value, c[1].Value, c[2].Value)
		}
	}
	return nil
}
