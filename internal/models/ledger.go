package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/brokewise/internal/currency"
)

var (
	ErrInvalidParticipant   = errors.New("participant name must not be empty")
	ErrDuplicateParticipant = errors.New("participant already exists")
	ErrUnknownParticipant   = errors.New("participant is not part of the ledger")
	ErrParticipantInUse     = errors.New("participant is referenced by an expense")
	ErrExpenseNotFound      = errors.New("expense not found")
	ErrDuplicateExpense     = errors.New("expense already exists")
)

// Ledger is the participants of a group and their expenses, in insertion order.
// It is a value: the mutating methods return a new Ledger and never modify
// the receiver.
type Ledger struct {
	Participants []string
	Expenses     []Expense
}

// Clone returns a deep copy of l.
func (l Ledger) Clone() Ledger {
	out := Ledger{
		Participants: append([]string(nil), l.Participants...),
		Expenses:     make([]Expense, len(l.Expenses)),
	}
	for i, e := range l.Expenses {
		out.Expenses[i] = e.Clone()
	}
	return out
}

// HasParticipant reports whether name is a participant.
func (l Ledger) HasParticipant(name string) bool {
	for _, p := range l.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// AddParticipant returns a ledger with name appended to the participants.
// The name is trimmed; empty and duplicate names are rejected.
func (l Ledger) AddParticipant(name string) (Ledger, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return l, ErrInvalidParticipant
	}
	if l.HasParticipant(name) {
		return l, fmt.Errorf("%w: %s", ErrDuplicateParticipant, name)
	}
	out := l.Clone()
	out.Participants = append(out.Participants, name)
	return out, nil
}

// RemoveParticipant returns a ledger without name. The name is trimmed.
// Removing a participant that an expense still references is an error:
// the expense would otherwise keep a dangling name. Delete those expenses first.
func (l Ledger) RemoveParticipant(name string) (Ledger, error) {
	name = strings.TrimSpace(name)
	if !l.HasParticipant(name) {
		return l, fmt.Errorf("%w: %s", ErrUnknownParticipant, name)
	}
	for _, e := range l.Expenses {
		if e.References(name) {
			return l, fmt.Errorf("%w: %s (expense %s)", ErrParticipantInUse, name, e.ID)
		}
	}
	out := l.Clone()
	kept := out.Participants[:0]
	for _, p := range out.Participants {
		if p != name {
			kept = append(kept, p)
		}
	}
	out.Participants = kept
	return out, nil
}

// AddExpense returns a ledger with e appended.
// Every person on e must already be a participant.
func (l Ledger) AddExpense(e Expense) (Ledger, error) {
	if _, ok := l.Expense(e.ID); ok {
		return l, fmt.Errorf("%w: %s", ErrDuplicateExpense, e.ID)
	}
	for _, person := range e.People() {
		if !l.HasParticipant(person) {
			return l, fmt.Errorf("%w: %s", ErrUnknownParticipant, person)
		}
	}
	out := l.Clone()
	out.Expenses = append(out.Expenses, e.Clone())
	return out, nil
}

// RemoveExpense returns a ledger without the expense with the given ID.
func (l Ledger) RemoveExpense(id string) (Ledger, error) {
	idx := -1
	for i, e := range l.Expenses {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return l, fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
	}
	out := l.Clone()
	out.Expenses = append(out.Expenses[:idx], out.Expenses[idx+1:]...)
	return out, nil
}

// Expense looks up an expense by ID.
func (l Ledger) Expense(id string) (Expense, bool) {
	for _, e := range l.Expenses {
		if e.ID == id {
			return e, true
		}
	}
	return Expense{}, false
}

// Currencies returns every currency used by any expense, in first-seen order.
func (l Ledger) Currencies() []currency.Code {
	seen := make(map[currency.Code]bool)
	var out []currency.Code
	for _, e := range l.Expenses {
		for _, c := range e.Currencies() {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
