package calculator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/brokewise/internal/currency"
	"github.com/mmynk/brokewise/internal/fx"
	"github.com/mmynk/brokewise/internal/models"
)

// tolerance is the largest difference, in currency units, that is still
// treated as zero: between payments and obligations of an expense, and
// between a balance and settled.
var tolerance = decimal.New(1, -2)

// Amount limits. An amount may have at most maxIntegerDigits digits before
// the decimal point and maxFractionDigits significant digits after it.
const (
	maxAmountLength   = 32
	maxIntegerDigits  = 15
	maxFractionDigits = 12
)

// Rates is the part of the rate gateway the calculator needs.
// *fx.Gateway satisfies it.
type Rates interface {
	Table(ctx context.Context, to currency.Code, from []currency.Code) (*fx.Table, error)
	Info(ctx context.Context, base currency.Code) fx.Info
}

// EntryDraft is one unvalidated payment or obligation line.
// Amount and Currency are kept as entered so that malformed input is reported
// in the same order as any other validation problem.
type EntryDraft struct {
	Person   string
	Amount   string
	Currency string
}

// ExpenseDraft is an expense as submitted, before validation.
type ExpenseDraft struct {
	Description     string
	DisplayCurrency string
	Payments        []EntryDraft
	Obligations     []EntryDraft
}

// Admission is a validated expense ready to be appended to a ledger.
type Admission struct {
	Expense models.Expense

	// Degraded is set when some rate used for the balance check was a 1:1
	// fallback.
	Degraded bool
}

// Validator checks expense drafts before they are admitted to a ledger.
type Validator struct {
	rates Rates
	now   func() time.Time
	newID func() (string, error)
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithNow overrides the clock used for creation timestamps.
func WithNow(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// WithIDs overrides expense ID generation.
func WithIDs(newID func() (string, error)) ValidatorOption {
	return func(v *Validator) { v.newID = newID }
}

// NewValidator creates a Validator that converts through rates.
func NewValidator(rates Rates, opts ...ValidatorOption) *Validator {
	v := &Validator{rates: rates, now: time.Now, newID: newExpenseID}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func newExpenseID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate expense id: %w", err)
	}
	return id.String(), nil
}

// Validate checks a draft and builds the expense it describes.
//
// Checks run in a fixed order and stop at the first failure:
// description, amounts, people, currency codes, then the balance between
// payments and obligations in the display currency. Failures are returned as
// *ValidationError.
func (v *Validator) Validate(ctx context.Context, d ExpenseDraft) (*Admission, error) {
	description := strings.TrimSpace(d.Description)
	if description == "" {
		return nil, &ValidationError{Kind: KindInvalidDescription, Field: "description", Index: -1}
	}

	payments, err := parseAmounts(SidePayment, d.Payments)
	if err != nil {
		return nil, err
	}
	obligations, err := parseAmounts(SideObligation, d.Obligations)
	if err != nil {
		return nil, err
	}

	if err := checkPeople(SidePayment, d.Payments); err != nil {
		return nil, err
	}
	if err := checkPeople(SideObligation, d.Obligations); err != nil {
		return nil, err
	}

	display, err := currency.Parse(d.DisplayCurrency)
	if err != nil {
		return nil, &ValidationError{Kind: KindUnknownCurrency, Field: "display_currency", Index: -1, Value: d.DisplayCurrency}
	}
	paymentCodes, err := parseCodes(SidePayment, d.Payments)
	if err != nil {
		return nil, err
	}
	obligationCodes, err := parseCodes(SideObligation, d.Obligations)
	if err != nil {
		return nil, err
	}

	e := models.Expense{
		Description:     description,
		DisplayCurrency: display,
		Payments:        buildEntries(d.Payments, payments, paymentCodes),
		Obligations:     buildEntries(d.Obligations, obligations, obligationCodes),
	}

	table, err := v.rates.Table(ctx, display, e.Currencies())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rates: %w", err)
	}
	paid, err := sumIn(table, e.Payments)
	if err != nil {
		return nil, err
	}
	owed, err := sumIn(table, e.Obligations)
	if err != nil {
		return nil, err
	}
	if mismatch := paid.Sub(owed).Abs(); mismatch.GreaterThan(tolerance) {
		return nil, &ValidationError{
			Kind:     KindUnbalancedExpense,
			Field:    "obligations",
			Index:    -1,
			Paid:     paid,
			Owed:     owed,
			Mismatch: mismatch,
		}
	}

	id, err := v.newID()
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.CreatedAt = v.now().UTC()

	return &Admission{Expense: e, Degraded: table.Degraded()}, nil
}

func parseAmounts(side Side, entries []EntryDraft) ([]decimal.Decimal, error) {
	if len(entries) == 0 {
		return nil, &ValidationError{Kind: KindInvalidAmount, Field: "amount", Side: side, Index: -1}
	}
	out := make([]decimal.Decimal, len(entries))
	for i, entry := range entries {
		amount, ok := parseAmount(entry.Amount)
		if !ok {
			return nil, &ValidationError{Kind: KindInvalidAmount, Field: "amount", Side: side, Index: i, Value: entry.Amount}
		}
		out[i] = amount
	}
	return out, nil
}

// ParseAmount parses a positive amount within the supported range.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, ok := parseAmount(raw)
	if !ok {
		return decimal.Zero, &ValidationError{Kind: KindInvalidAmount, Field: "amount", Index: -1, Value: raw}
	}
	return amount, nil
}

// parseAmount bounds the exponent before any arithmetic: "1e50000000" is a
// valid decimal literal whose expansion is fifty million digits long.
func parseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxAmountLength {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	exp := int64(amount.Exponent())
	if exp < -maxAmountLength || int64(amount.NumDigits())+exp > maxIntegerDigits {
		return decimal.Zero, false
	}
	if exp < -maxFractionDigits && !amount.Equal(amount.Truncate(maxFractionDigits)) {
		return decimal.Zero, false
	}
	return amount, true
}

func checkPeople(side Side, entries []EntryDraft) error {
	for i, entry := range entries {
		if strings.TrimSpace(entry.Person) == "" {
			return &ValidationError{Kind: KindInvalidParticipant, Field: "person", Side: side, Index: i}
		}
	}
	return nil
}

func parseCodes(side Side, entries []EntryDraft) ([]currency.Code, error) {
	out := make([]currency.Code, len(entries))
	for i, entry := range entries {
		code, err := currency.Parse(entry.Currency)
		if err != nil {
			return nil, &ValidationError{Kind: KindUnknownCurrency, Field: "currency", Side: side, Index: i, Value: entry.Currency}
		}
		out[i] = code
	}
	return out, nil
}

func buildEntries(drafts []EntryDraft, amounts []decimal.Decimal, codes []currency.Code) []models.Entry {
	out := make([]models.Entry, len(drafts))
	for i, d := range drafts {
		out[i] = models.Entry{
			Person: strings.TrimSpace(d.Person),
			Money:  models.NewMoney(amounts[i], codes[i]),
		}
	}
	return out
}

func sumIn(table *fx.Table, entries []models.Entry) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, entry := range entries {
		v, err := table.Convert(entry.Money)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(v)
	}
	return sum, nil
}
