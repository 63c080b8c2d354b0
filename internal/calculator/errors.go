package calculator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/brokewise/internal/currency"
	"github.com/mmynk/brokewise/internal/models"
)

// Kind classifies why an operation was rejected.
type Kind string

const (
	KindInvalidDescription   Kind = "InvalidDescription"
	KindInvalidAmount        Kind = "InvalidAmount"
	KindUnbalancedExpense    Kind = "UnbalancedExpense"
	KindUnknownCurrency      Kind = "UnknownCurrency"
	KindInvalidParticipant   Kind = "InvalidParticipant"
	KindDuplicateParticipant Kind = "DuplicateParticipant"
	KindUnknownParticipant   Kind = "UnknownParticipant"
	KindParticipantInUse     Kind = "ParticipantInUse"
	KindExpenseNotFound      Kind = "ExpenseNotFound"

	// Not errors: these are reported as warnings next to a best-effort result.
	KindRateProviderUnavailable Kind = "RateProviderUnavailable"
	KindEmptyParticipantSet     Kind = "EmptyParticipantSet"
)

var (
	ErrInvalidDescription = errors.New("description must not be empty")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrUnbalancedExpense  = errors.New("payments and obligations do not balance")
)

// Side says which list of an expense an entry belongs to.
type Side string

const (
	SidePayment    Side = "payment"
	SideObligation Side = "obligation"
)

// ValidationError describes why an expense was not admitted, in enough
// detail for the caller to fix the input.
type ValidationError struct {
	Kind Kind

	// Field names the offending input field, e.g. "description" or "currency".
	Field string

	// Side and Index locate the offending entry. Index is -1 when the
	// problem is with the list as a whole (e.g. no payments at all).
	Side  Side
	Index int

	// Value is the rejected input, when there is one.
	Value string

	// Paid, Owed and Mismatch are set for KindUnbalancedExpense, in the
	// display currency.
	Paid     decimal.Decimal
	Owed     decimal.Decimal
	Mismatch decimal.Decimal
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindInvalidDescription:
		b.WriteString(ErrInvalidDescription.Error())
	case KindUnbalancedExpense:
		fmt.Fprintf(&b, "%s: paid %s, owed %s, mismatch %s",
			ErrUnbalancedExpense, e.Paid.StringFixed(2), e.Owed.StringFixed(2), e.Mismatch.StringFixed(2))
	default:
		b.WriteString(e.Unwrap().Error())
	}
	if e.Side != "" {
		if e.Index >= 0 {
			fmt.Fprintf(&b, " (%s %d)", e.Side, e.Index)
		} else {
			fmt.Fprintf(&b, " (%ss)", e.Side)
		}
	} else if e.Field != "" && e.Kind != KindInvalidDescription && e.Kind != KindUnbalancedExpense {
		fmt.Fprintf(&b, " (%s)", e.Field)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, ": %q", e.Value)
	}
	return b.String()
}

// Unwrap returns the sentinel for the error's kind, so callers can use errors.Is.
func (e *ValidationError) Unwrap() error {
	switch e.Kind {
	case KindInvalidDescription:
		return ErrInvalidDescription
	case KindInvalidAmount:
		return ErrInvalidAmount
	case KindUnbalancedExpense:
		return ErrUnbalancedExpense
	case KindUnknownCurrency:
		return currency.ErrUnknownCurrency
	case KindInvalidParticipant:
		return models.ErrInvalidParticipant
	}
	return nil
}

// KindOf classifies err. It returns "" for errors that are not the caller's fault.
func KindOf(err error) Kind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	switch {
	case errors.Is(err, currency.ErrUnknownCurrency):
		return KindUnknownCurrency
	case errors.Is(err, models.ErrInvalidParticipant):
		return KindInvalidParticipant
	case errors.Is(err, models.ErrDuplicateParticipant):
		return KindDuplicateParticipant
	case errors.Is(err, models.ErrUnknownParticipant):
		return KindUnknownParticipant
	case errors.Is(err, models.ErrParticipantInUse):
		return KindParticipantInUse
	case errors.Is(err, models.ErrExpenseNotFound):
		return KindExpenseNotFound
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	}
	return ""
}
