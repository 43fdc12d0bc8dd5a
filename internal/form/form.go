// Package form holds the state of the add/edit expense form and turns the
// raw field text into a validated core.ExpenseInput.
package form

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"farmledger/internal/core"
)

// Mode tells whether the form creates a new expense or edits an existing one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Field names used by HTML forms and url.Values.
const (
	FieldTitle         = "title"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldDate          = "date"
	FieldDescription   = "description"
	FieldPaymentMethod = "payment_method"
)

var ErrTitleRequired = errors.New("title is required")

// Fields is the text the user sees in each input.
type Fields struct {
	Title         string
	Amount        string
	Category      string
	Date          string
	Description   string
	PaymentMethod string
}

// Controller is the form state machine. It is not safe for concurrent use.
type Controller struct {
	mode   Mode
	id     string
	today  func() time.Time
	fields Fields
	errs   map[string]string
}

// NewCreate returns an empty form seeded with defaults for today.
func NewCreate(today func() time.Time) *Controller {
	if today == nil {
		today = time.Now
	}
	c := &Controller{mode: ModeCreate, today: today}
	c.Reset()
	return c
}

// NewEdit returns a form pre-filled from e. The id is carried to Submit.
func NewEdit(e core.Expense) *Controller {
	return &Controller{
		mode:  ModeEdit,
		id:    e.ID,
		today: time.Now,
		fields: Fields{
			Title:         e.Title,
			Amount:        e.Amount.String(),
			Category:      string(e.Category),
			Date:          e.Date.String(),
			Description:   e.Description,
			PaymentMethod: string(e.PaymentMethod),
		},
	}
}

// Defaults is the create-mode form content for the given day.
func Defaults(today time.Time) Fields {
	return Fields{
		Category:      string(core.Categories()[0]),
		PaymentMethod: string(core.PaymentMethods()[0]),
		Date:          today.Format(core.DateLayout),
	}
}

func (c *Controller) Mode() Mode { return c.mode }

// ID is the id of the edited expense, empty in create mode.
func (c *Controller) ID() string { return c.id }

func (c *Controller) Fields() Fields { return c.fields }

// Errors maps field names to messages from the last failed Submit.
func (c *Controller) Errors() map[string]string { return c.errs }

// Reset puts the create defaults back and clears errors.
func (c *Controller) Reset() {
	c.fields = Defaults(c.today())
	c.errs = nil
}

// Set updates a single field by name. Unknown names are ignored.
func (c *Controller) Set(name, value string) {
	switch name {
	case FieldTitle:
		c.fields.Title = value
	case FieldAmount:
		c.fields.Amount = value
	case FieldCategory:
		c.fields.Category = value
	case FieldDate:
		c.fields.Date = value
	case FieldDescription:
		c.fields.Description = value
	case FieldPaymentMethod:
		c.fields.PaymentMethod = value
	}
}

// Bind copies every known field present in v.
func (c *Controller) Bind(v url.Values) {
	for _, name := range []string{FieldTitle, FieldAmount, FieldCategory, FieldDate, FieldDescription, FieldPaymentMethod} {
		if _, ok := v[name]; ok {
			c.Set(name, v.Get(name))
		}
	}
}

// Submit validates the fields and returns the normalized input.
//
// The amount is parsed leniently: text that is not a non-negative number
// becomes zero. On success a create form goes back to its defaults while an
// edit form keeps its content. Field errors are available from Errors.
func (c *Controller) Submit() (core.ExpenseInput, error) {
	c.errs = map[string]string{}
	var errs []error

	title := strings.TrimSpace(c.fields.Title)
	if title == "" {
		c.errs[FieldTitle] = "Title is required"
		errs = append(errs, ErrTitleRequired)
	}
	category, err := core.ParseCategory(c.fields.Category)
	if err != nil {
		c.errs[FieldCategory] = "Choose a category"
		errs = append(errs, err)
	}
	pm, err := core.ParsePaymentMethod(c.fields.PaymentMethod)
	if err != nil {
		c.errs[FieldPaymentMethod] = "Choose a payment method"
		errs = append(errs, err)
	}
	date, err := core.ParseDate(c.fields.Date)
	if err != nil {
		c.errs[FieldDate] = "Enter a date as YYYY-MM-DD"
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return core.ExpenseInput{}, fmt.Errorf("invalid expense form: %w", errors.Join(errs...))
	}

	in := core.ExpenseInput{
		Title:         title,
		Amount:        core.ParseAmount(c.fields.Amount),
		Category:      category,
		Date:          date,
		Description:   strings.TrimSpace(c.fields.Description),
		PaymentMethod: pm,
	}
	if err := in.Validate(); err != nil {
		if errors.Is(err, core.ErrDescriptionTooLong) {
			c.errs[FieldDescription] = "Description is too long"
		}
		return core.ExpenseInput{}, fmt.Errorf("invalid expense form: %w", err)
	}

	c.errs = nil
	if c.mode == ModeCreate {
		c.Reset()
	}
	return in, nil
}
