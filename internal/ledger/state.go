package ledger

import "farmledger/internal/core"

// State is the in-memory view of the ledger. Values are never modified in
// place: Reduce returns a new State sharing nothing mutable with the old one,
// so a Snapshot can be read without holding the gateway lock.
type State struct {
	Expenses []core.Expense
	// Version increases on every change and keys derived caches.
	Version uint64
	// Loaded reports whether a load from the store has succeeded.
	Loaded bool
}

// ActionKind enumerates the state transitions.
type ActionKind int

const (
	ActionLoaded ActionKind = iota + 1
	ActionCreated
	ActionUpdated
	ActionDeleted
)

func (k ActionKind) String() string {
	switch k {
	case ActionLoaded:
		return "loaded"
	case ActionCreated:
		return "created"
	case ActionUpdated:
		return "updated"
	case ActionDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Action describes one state transition. Which fields are read depends on
// Kind: Expenses for loaded, Expense for created and updated, ID for deleted.
type Action struct {
	Kind     ActionKind
	Expenses []core.Expense
	Expense  core.Expense
	ID       string
}

func Loaded(list []core.Expense) Action { return Action{Kind: ActionLoaded, Expenses: list} }
func Created(e core.Expense) Action     { return Action{Kind: ActionCreated, Expense: e} }
func Updated(e core.Expense) Action     { return Action{Kind: ActionUpdated, Expense: e} }
func Deleted(id string) Action          { return Action{Kind: ActionDeleted, ID: id} }

// Reduce applies a to s. Actions that do not change anything (an update or
// delete of an unknown id) return s unchanged, version included.
func Reduce(s State, a Action) State {
	switch a.Kind {
	case ActionLoaded:
		list := make([]core.Expense, len(a.Expenses))
		copy(list, a.Expenses)
		return State{Expenses: list, Version: s.Version + 1, Loaded: true}

	case ActionCreated:
		list := make([]core.Expense, 0, len(s.Expenses)+1)
		list = append(list, a.Expense)
		list = append(list, s.Expenses...)
		return State{Expenses: list, Version: s.Version + 1, Loaded: s.Loaded}

	case ActionUpdated:
		i := indexOf(s.Expenses, a.Expense.ID)
		if i < 0 {
			return s
		}
		list := make([]core.Expense, len(s.Expenses))
		copy(list, s.Expenses)
		list[i] = a.Expense
		return State{Expenses: list, Version: s.Version + 1, Loaded: s.Loaded}

	case ActionDeleted:
		i := indexOf(s.Expenses, a.ID)
		if i < 0 {
			return s
		}
		list := make([]core.Expense, 0, len(s.Expenses)-1)
		list = append(list, s.Expenses[:i]...)
		list = append(list, s.Expenses[i+1:]...)
		return State{Expenses: list, Version: s.Version + 1, Loaded: s.Loaded}

	default:
		return s
	}
}

func indexOf(list []core.Expense, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
