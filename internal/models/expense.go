package models

import (
	"time"

	"github.com/mmynk/brokewise/internal/currency"
)

// Entry records one person's side of an expense.
// As a payment it means the person fronted Money; as an obligation it means
// the person owes Money as their share.
type Entry struct {
	// Person is the participant name.
	Person string

	// Money is the amount in the currency it was entered in.
	Money Money
}

// Expense represents a single shared outlay.
//
// At admission time the payments and the obligations, both converted to
// DisplayCurrency, agree within 0.01. This is not re-checked afterwards:
// rates may drift after an expense is admitted.
type Expense struct {
	// ID is the unique identifier for the expense (time-ordered UUID).
	ID string

	// Description is what the money was spent on (e.g., "Dinner").
	Description string

	// DisplayCurrency is the currency the expense was balanced in.
	DisplayCurrency currency.Code

	// Payments lists who fronted money, in entry order.
	Payments []Entry

	// Obligations lists who owes a share, in entry order.
	Obligations []Entry

	// CreatedAt is when the expense was admitted.
	CreatedAt time.Time
}

// Currencies returns the distinct currencies used by the expense entries,
// in first-seen order (payments first).
func (e Expense) Currencies() []currency.Code {
	seen := make(map[currency.Code]bool)
	var out []currency.Code
	for _, group := range [][]Entry{e.Payments, e.Obligations} {
		for _, entry := range group {
			if !seen[entry.Money.Currency] {
				seen[entry.Money.Currency] = true
				out = append(out, entry.Money.Currency)
			}
		}
	}
	return out
}

// People returns every person named on the expense, in first-seen order.
func (e Expense) People() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]Entry{e.Payments, e.Obligations} {
		for _, entry := range group {
			if !seen[entry.Person] {
				seen[entry.Person] = true
				out = append(out, entry.Person)
			}
		}
	}
	return out
}

// References reports whether name appears on any entry.
func (e Expense) References(name string) bool {
	for _, group := range [][]Entry{e.Payments, e.Obligations} {
		for _, entry := range group {
			if entry.Person == name {
				return true
			}
		}
	}
	return false
}

// Clone returns a copy that shares no slices with e.
func (e Expense) Clone() Expense {
	out := e
	out.Payments = append([]Entry(nil), e.Payments...)
	out.Obligations = append([]Entry(nil), e.Obligations...)
	return out
}
