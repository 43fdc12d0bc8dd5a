package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"farmledger/internal/core"
	"farmledger/internal/form"
	"farmledger/internal/ledger"
	"farmledger/internal/log"
	"farmledger/internal/ports"
)

// chartColors are assigned to categories by breakdown rank.
var chartColors = []string{"#0088FE", "#00C49F", "#FFBB28", "#FF8042", "#8884D8", "#82CA9D", "#FFC658", "#FF6B6B"}

func chartColor(i int) string {
	return chartColors[i%len(chartColors)]
}

// templateFuncs are available to every page template.
var templateFuncs = template.FuncMap{
	"rupees":  core.FormatRupees,
	"percent": func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
	"color":   chartColor,
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// errMalformedBody is returned when a request body cannot be decoded at all.
var errMalformedBody = errors.New("malformed request body")

var validationErrors = []error{
	form.ErrTitleRequired,
	core.ErrEmptyTitle,
	core.ErrInvalidAmount,
	core.ErrNegativeAmount,
	core.ErrInvalidCategory,
	core.ErrInvalidPaymentMethod,
	core.ErrInvalidDate,
	core.ErrDescriptionTooLong,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps an error from the form or the ledger to an HTTP status.
// Anything unrecognised is a datastore failure.
func statusFor(err error) int {
	switch {
	case isValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrExpenseNotFound), errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDeleteDeclined), errors.Is(err, errMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// userMessage is the notice shown for err; datastore details stay in logs.
func userMessage(err error) string {
	if errors.Is(err, errMalformedBody) {
		return "Could not read the request body."
	}
	switch statusFor(err) {
	case http.StatusUnprocessableEntity:
		return "Please check the highlighted fields."
	case http.StatusNotFound:
		return "Expense not found. It may have been deleted."
	case http.StatusBadRequest:
		return "Delete was not confirmed."
	case http.StatusGatewayTimeout:
		return "The datastore took too long to answer. Please try again."
	default:
		return "Could not reach the datastore. Your changes were not saved."
	}
}

// requestLogger is the logger tagged with the current request id.
func requestLogger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentHTTP)
}
