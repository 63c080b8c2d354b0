package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/brokewise/internal/calculator"
	"github.com/mmynk/brokewise/internal/models"
	"github.com/mmynk/brokewise/pkg/api"
)

// wireAmount rounds to cents for responses. Computation never rounds.
func wireAmount(d decimal.Decimal) string {
	return d.StringFixedBank(2)
}

func toAPIGroup(g *models.Group) *api.Group {
	out := &api.Group{
		ID:             g.ID,
		Participants:   append([]string{}, g.Ledger.Participants...),
		Expenses:       make([]api.Expense, len(g.Ledger.Expenses)),
		CreatedAt:      g.CreatedAt,
		LastAccessedAt: g.LastAccessedAt,
	}
	for i, e := range g.Ledger.Expenses {
		out.Expenses[i] = *toAPIExpense(e)
	}
	return out
}

func toAPIExpense(e models.Expense) *api.Expense {
	return &api.Expense{
		ID:              e.ID,
		Description:     e.Description,
		DisplayCurrency: string(e.DisplayCurrency),
		Payments:        toAPIEntries(e.Payments),
		Obligations:     toAPIEntries(e.Obligations),
		CreatedAt:       e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Stored entries are returned at full precision: they are inputs, not results.
func toAPIEntries(entries []models.Entry) []api.Entry {
	out := make([]api.Entry, len(entries))
	for i, e := range entries {
		out[i] = api.Entry{
			Person:   e.Person,
			Amount:   e.Money.Amount.String(),
			Currency: string(e.Money.Currency),
		}
	}
	return out
}

func toDrafts(entries []api.Entry) []calculator.EntryDraft {
	out := make([]calculator.EntryDraft, len(entries))
	for i, e := range entries {
		out[i] = calculator.EntryDraft{Person: e.Person, Amount: e.Amount, Currency: e.Currency}
	}
	return out
}

func fromDrafts(drafts []calculator.EntryDraft) []api.Entry {
	out := make([]api.Entry, len(drafts))
	for i, d := range drafts {
		out[i] = api.Entry{Person: d.Person, Amount: d.Amount, Currency: d.Currency}
	}
	return out
}

func toExpenseDraft(in api.ExpenseInput) calculator.ExpenseDraft {
	return calculator.ExpenseDraft{
		Description:     in.Description,
		DisplayCurrency: in.DisplayCurrency,
		Payments:        toDrafts(in.Payments),
		Obligations:     toDrafts(in.Obligations),
	}
}

func toCalculateResponse(s *calculator.Summary, transfers []calculator.Transfer) *api.CalculateResponse {
	resp := &api.CalculateResponse{
		Settlements: make(map[string]string, len(s.Balances)),
		Balances:    make([]api.Balance, len(s.Balances)),
		Transfers:   make([]api.Transfer, len(transfers)),
		ExchangeRateInfo: api.ExchangeRateInfo{
			Source:       s.Rates.Source,
			Timestamp:    s.Rates.Timestamp,
			BaseCurrency: string(s.Base),
		},
		Degraded: s.Degraded,
		Warnings: s.Warnings,
	}
	for i, b := range s.Balances {
		resp.Settlements[b.Participant] = wireAmount(b.Net)
		resp.Balances[i] = api.Balance{
			Participant: b.Participant,
			Paid:        wireAmount(b.Paid),
			Owed:        wireAmount(b.Owed),
			Net:         wireAmount(b.Net),
		}
	}
	for i, t := range transfers {
		resp.Transfers[i] = api.Transfer{
			From:     t.From,
			To:       t.To,
			Amount:   wireAmount(t.Amount),
			Currency: string(t.Currency),
		}
	}
	return resp
}
