package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date layout used by forms, storage and the wire.
const DateLayout = "2006-01-02"

const maxDescriptionCharacters = 500

const (
	CategoryFeed           Category = "feed"
	CategoryMedicine       Category = "medicine"
	CategoryEquipment      Category = "equipment"
	CategoryLabor          Category = "labor"
	CategoryTransportation Category = "transportation"
	CategoryUtilities      Category = "utilities"
	CategoryMaintenance    Category = "maintenance"
	CategoryOther          Category = "other"
)

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentUPI          PaymentMethod = "upi"
	PaymentCard         PaymentMethod = "card"
	PaymentCheque       PaymentMethod = "cheque"
)

type (
	// Category classifies an expense. The set is closed.
	Category string

	// PaymentMethod records how an expense was paid. The set is closed.
	PaymentMethod string

	// Date is a calendar date without time-of-day, stored as UTC midnight.
	Date struct {
		time.Time
	}

	// Expense is a single recorded farm expense.
	Expense struct {
		ID            string          `json:"id"`
		Title         string          `json:"title"`
		Amount        decimal.Decimal `json:"amount"`
		Category      Category        `json:"category"`
		Date          Date            `json:"date"`
		Description   string          `json:"description,omitempty"`
		PaymentMethod PaymentMethod   `json:"paymentMethod"`
	}

	// ExpenseInput is an expense that has not been given an id yet.
	ExpenseInput struct {
		Title         string
		Amount        decimal.Decimal
		Category      Category
		Date          Date
		Description   string
		PaymentMethod PaymentMethod
	}
)

var (
	ErrEmptyTitle           = errors.New("empty title")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNegativeAmount       = errors.New("amount must not be negative")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidDate          = errors.New("invalid date")
	ErrDescriptionTooLong   = errors.New("description too long (max 500 characters)")
)

var (
	categories     = []Category{CategoryFeed, CategoryMedicine, CategoryEquipment, CategoryLabor, CategoryTransportation, CategoryUtilities, CategoryMaintenance, CategoryOther}
	paymentMethods = []PaymentMethod{PaymentCash, PaymentBankTransfer, PaymentUPI, PaymentCard, PaymentCheque}
)

// Categories returns every category in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// PaymentMethods returns every payment method in display order.
func PaymentMethods() []PaymentMethod {
	return append([]PaymentMethod(nil), paymentMethods...)
}

// ParseCategory returns the category named by s.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFeed, CategoryMedicine, CategoryEquipment, CategoryLabor,
		CategoryTransportation, CategoryUtilities, CategoryMaintenance, CategoryOther:
		return true
	}
	return false
}

// Label is the human readable name shown in lists and charts.
func (c Category) Label() string {
	switch c {
	case CategoryFeed:
		return "Feed & Nutrition"
	case CategoryMedicine:
		return "Medicine & Vaccines"
	case CategoryEquipment:
		return "Equipment & Tools"
	case CategoryLabor:
		return "Labor & Wages"
	case CategoryTransportation:
		return "Transportation"
	case CategoryUtilities:
		return "Utilities & Electricity"
	case CategoryMaintenance:
		return "Maintenance & Repairs"
	case CategoryOther:
		return "Other Expenses"
	}
	return string(c)
}

func (c Category) Icon() string {
	switch c {
	case CategoryFeed:
		return "🌾"
	case CategoryMedicine:
		return "💊"
	case CategoryEquipment:
		return "🔧"
	case CategoryLabor:
		return "👷"
	case CategoryTransportation:
		return "🚚"
	case CategoryUtilities:
		return "⚡"
	case CategoryMaintenance:
		return "🔨"
	case CategoryOther:
		return "📝"
	}
	return ""
}

func (c Category) String() string { return string(c) }

// ParsePaymentMethod returns the payment method named by s.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	p := PaymentMethod(strings.TrimSpace(s))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
	return p, nil
}

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentBankTransfer, PaymentUPI, PaymentCard, PaymentCheque:
		return true
	}
	return false
}

func (p PaymentMethod) Label() string {
	switch p {
	case PaymentCash:
		return "Cash"
	case PaymentBankTransfer:
		return "Bank Transfer"
	case PaymentUPI:
		return "UPI"
	case PaymentCard:
		return "Card"
	case PaymentCheque:
		return "Cheque"
	}
	return string(p)
}

func (p PaymentMethod) String() string { return string(p) }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Display formats the date for people, e.g. "05 Jan 2024".
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02 Jan 2006")
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	return d.UnmarshalJSON(b)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (in ExpenseInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrEmptyTitle
	}
	if in.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !in.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, in.Category)
	}
	if !in.PaymentMethod.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, in.PaymentMethod)
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if len([]rune(in.Description)) > maxDescriptionCharacters {
		return ErrDescriptionTooLong
	}
	return nil
}

// WithID attaches a durable id to the input.
func (in ExpenseInput) WithID(id string) Expense {
	return Expense{
		ID:            id,
		Title:         in.Title,
		Amount:        in.Amount,
		Category:      in.Category,
		Date:          in.Date,
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
	}
}

// Input drops the id.
func (e Expense) Input() ExpenseInput {
	return ExpenseInput{
		Title:         e.Title,
		Amount:        e.Amount,
		Category:      e.Category,
		Date:          e.Date,
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("empty id")
	}
	return e.Input().Validate()
}
