package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"farmledger/internal/core"
	"farmledger/internal/ledger"
	"farmledger/internal/log"
	"farmledger/internal/ports"

	"github.com/gorilla/mux"
)

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleAPIListExpenses returns the collection filtered and sorted by the
// same search, category, sort and dir parameters as the list view.
func (s *Server) handleAPIListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.ensureLoaded(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load expenses", log.FieldError, err.Error(), log.FieldOperation, log.OpList)
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}
	list := core.Apply(s.ledger.Expenses(), core.ParseQuery(r.URL.Query()))
	records := make([]ports.Record, 0, len(list))
	for _, e := range list {
		records = append(records, ports.RecordFromExpense(e))
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAPICreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := decodeInput(r)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	if err := s.ensureLoaded(ctx); err != nil {
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}
	e, err := s.ledger.Create(ctx, in)
	if err != nil {
		s.countFailure(err)
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}
	atomic.AddInt64(&s.appMetrics.created, 1)
	writeJSON(w, http.StatusCreated, ports.RecordFromExpense(e))
}

func (s *Server) handleAPIUpdateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	in, err := decodeInput(r)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	if err := s.ensureLoaded(ctx); err != nil {
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}
	e, err := s.ledger.Update(ctx, id, in)
	if err != nil {
		s.countFailure(err)
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}
	atomic.AddInt64(&s.appMetrics.updated, 1)
	writeJSON(w, http.StatusOK, ports.RecordFromExpense(e))
}

// handleAPIDeleteExpense requires ?confirm=true; without it the request is
// declined with 400 and nothing is deleted.
func (s *Server) handleAPIDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	if err := s.ensureLoaded(ctx); err != nil {
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}
	confirmed := isConfirmed(r.URL.Query().Get("confirm"))
	err := s.ledger.Delete(ctx, id, func(context.Context, core.Expense) bool { return confirmed })
	if err != nil {
		if !errors.Is(err, ledger.ErrDeleteDeclined) {
			s.countFailure(err)
		}
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}
	atomic.AddInt64(&s.appMetrics.deleted, 1)
	w.WriteHeader(http.StatusNoContent)
}

// decodeInput reads a JSON record body. Unlike the HTML form, the amount
// must be present and numeric.
func decodeInput(r *http.Request) (core.ExpenseInput, error) {
	var raw struct {
		Title         string          `json:"title"`
		Amount        json.RawMessage `json:"amount"`
		Category      string          `json:"category"`
		Date          string          `json:"date"`
		Description   string          `json:"description"`
		PaymentMethod string          `json:"payment_method"`
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&raw); err != nil {
		return core.ExpenseInput{}, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return inputFromRecord(raw.Title, strings.Trim(string(raw.Amount), `"`), raw.Category, raw.Date, raw.Description, raw.PaymentMethod)
}

func inputFromRecord(title, amount, category, date, description, payment string) (core.ExpenseInput, error) {
	amt, err := core.ParseAmountStrict(amount)
	if err != nil {
		return core.ExpenseInput{}, err
	}
	cat, err := core.ParseCategory(category)
	if err != nil {
		return core.ExpenseInput{}, err
	}
	pm, err := core.ParsePaymentMethod(payment)
	if err != nil {
		return core.ExpenseInput{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.ExpenseInput{}, err
	}
	in := core.ExpenseInput{
		Title:         sanitizeInput(title),
		Amount:        amt,
		Category:      cat,
		Date:          d,
		Description:   sanitizeInput(description),
		PaymentMethod: pm,
	}
	if err := in.Validate(); err != nil {
		return core.ExpenseInput{}, err
	}
	return in, nil
}
