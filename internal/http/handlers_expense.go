package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"farmledger/internal/core"
	"farmledger/internal/form"
	"farmledger/internal/ledger"
	"farmledger/internal/log"

	"github.com/gorilla/mux"
)

// handleExpenseList renders the filtered and sorted expense table.
func (s *Server) handleExpenseList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.ensureLoaded(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load expenses", log.FieldError, err.Error(), log.FieldOperation, log.OpList)
		ErrorResponse(statusFor(err), userMessage(err)).Write(w)
		return
	}
	snap := s.ledger.Snapshot()
	view := newListView(snap.Expenses, core.ParseQuery(r.URL.Query()))
	s.render(w, r, http.StatusOK, "expenses", struct {
		Empty bool
		List  *listView
	}{len(snap.Expenses) == 0, &view})
}

func (s *Server) handleNewExpenseForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "form", newFormView(form.NewCreate(s.now)))
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "form", newFormView(form.NewEdit(e)))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c := form.NewCreate(s.now)
	if !s.bindForm(w, r, c) {
		return
	}
	in, err := c.Submit()
	if err != nil {
		s.writeFormError(w, r, c, err)
		return
	}

	e, err := s.ledger.Create(ctx, in)
	if err != nil {
		s.writeFormError(w, r, c, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.created, 1)

	if !isHTMX(r) {
		http.Redirect(w, r, "/?tab="+TabExpenses, http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerExpenseCreated(e.ID).
		TriggerFormReset().
		TriggerFormClose().
		TriggerSuccessNotification("Expense added").
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	existing, ok := s.lookup(w, r)
	if !ok {
		return
	}
	c := form.NewEdit(existing)
	if !s.bindForm(w, r, c) {
		return
	}
	in, err := c.Submit()
	if err != nil {
		s.writeFormError(w, r, c, err)
		return
	}

	e, err := s.ledger.Update(ctx, existing.ID, in)
	if err != nil {
		s.writeFormError(w, r, c, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.updated, 1)

	if !isHTMX(r) {
		http.Redirect(w, r, "/?tab="+TabExpenses, http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerExpenseUpdated(e.ID).
		TriggerFormClose().
		TriggerSuccessNotification("Expense updated").
		Write(w)
}

// handleConfirmDelete renders the confirmation dialog for one expense.
func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "confirm_delete", newExpenseRow(e))
}

// handleDeleteExpense deletes only when the request carries an affirmative
// confirm value. Anything else is treated as the user answering no.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	if err := s.ensureLoaded(ctx); err != nil {
		ErrorResponse(statusFor(err), userMessage(err)).Write(w)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Could not read the request").Write(w)
		return
	}
	confirmed := isConfirmed(p.Get("confirm"))

	err := s.ledger.Delete(ctx, id, func(context.Context, core.Expense) bool { return confirmed })
	switch {
	case errors.Is(err, ledger.ErrDeleteDeclined):
		if !isHTMX(r) {
			http.Redirect(w, r, "/?tab="+TabExpenses, http.StatusSeeOther)
			return
		}
		NewHTMXResponse().
			TriggerFormClose().
			TriggerNotification(NotificationInfo, "Delete cancelled", 3000).
			Write(w)
		return
	case err != nil:
		requestLogger(ctx).ErrorContext(ctx, "Delete failed", log.FieldExpenseID, id, log.FieldError, err.Error())
		s.countFailure(err)
		ErrorResponse(statusFor(err), userMessage(err)).Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.deleted, 1)

	if !isHTMX(r) {
		http.Redirect(w, r, "/?tab="+TabExpenses, http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerExpenseDeleted(id).
		TriggerFormClose().
		TriggerSuccessNotification("Expense deleted").
		Write(w)
}

// lookup resolves the {id} route variable against the loaded collection and
// writes the error response itself when it cannot.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (core.Expense, bool) {
	ctx := r.Context()
	if err := s.ensureLoaded(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load expenses", log.FieldError, err.Error(), log.FieldOperation, log.OpLoad)
		ErrorResponse(statusFor(err), userMessage(err)).Write(w)
		return core.Expense{}, false
	}
	id := mux.Vars(r)["id"]
	e, ok := s.ledger.Get(id)
	if !ok {
		NotFoundError(userMessage(ledger.ErrExpenseNotFound)).Write(w)
		return core.Expense{}, false
	}
	return e, true
}

func (s *Server) bindForm(w http.ResponseWriter, r *http.Request, c *form.Controller) bool {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Could not read the submitted form").Write(w)
		return false
	}
	c.Bind(p.Values())
	return true
}

// writeFormError re-renders the form with field errors or a notice, keeping
// what the user typed.
func (s *Server) writeFormError(w http.ResponseWriter, r *http.Request, c *form.Controller, err error) {
	status := statusFor(err)
	if status != http.StatusUnprocessableEntity {
		requestLogger(r.Context()).ErrorContext(r.Context(), "Expense write failed", log.FieldError, err.Error())
		s.countFailure(err)
	}

	view := newFormView(c)
	view.Notice = userMessage(err)
	html, rerr := s.renderString("form", view)
	if rerr != nil {
		ErrorResponse(status, view.Notice).Write(w)
		return
	}
	NewHTMXResponse().
		Status(status).
		TriggerErrorNotification(view.Notice).
		BodyHTML(html).
		Write(w)
}

func (s *Server) renderString(name string, data any) (string, error) {
	if s.templates == nil {
		return "", errors.New("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Template execution failed", log.FieldError, err.Error(), log.FieldOperation, log.OpRender, "template", name)
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) countFailure(err error) {
	if statusFor(err) >= http.StatusInternalServerError {
		atomic.AddInt64(&s.appMetrics.failedWrites, 1)
	}
}
