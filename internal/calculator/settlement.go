package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/brokewise/internal/currency"
)

// Transfer is one payment that moves a debtor or the hub toward zero.
type Transfer struct {
	From     string // Person who pays
	To       string // Person who receives
	Amount   decimal.Decimal
	Currency currency.Code
}

// Settle reduces balances to transfers through a single hub: the largest
// creditor. Every debtor pays the hub what they owe, then the hub pays every
// other creditor what they are owed.
//
// Balances within a cent of zero are considered settled. Ties keep input
// order, so the same balances always produce the same transfers.
// The result has len(debtors)+len(creditors)-1 entries, or none when either
// side is empty.
func Settle(balances []Balance, cur currency.Code) []Transfer {
	var debtors, creditors []Balance
	negTolerance := tolerance.Neg()
	for _, b := range balances {
		switch {
		case b.Net.LessThan(negTolerance):
			debtors = append(debtors, b)
		case b.Net.GreaterThan(tolerance):
			creditors = append(creditors, b)
		}
	}
	if len(debtors) == 0 || len(creditors) == 0 {
		return nil
	}

	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].Net.LessThan(debtors[j].Net)
	})
	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].Net.GreaterThan(creditors[j].Net)
	})

	hub := creditors[0].Participant
	transfers := make([]Transfer, 0, len(debtors)+len(creditors)-1)
	for _, d := range debtors {
		transfers = append(transfers, Transfer{From: d.Participant, To: hub, Amount: d.Net.Neg(), Currency: cur})
	}
	for _, c := range creditors[1:] {
		transfers = append(transfers, Transfer{From: hub, To: c.Participant, Amount: c.Net, Currency: cur})
	}
	return transfers
}
