package core

import "github.com/shopspring/decimal"

// SummaryItem is one budget category as reported by the ledger service.
type SummaryItem struct {
	Category   string          `json:"category"`
	AmountUsed decimal.Decimal `json:"amount_used"`
	Rollover   decimal.Decimal `json:"rollover"`
	Budget     decimal.Decimal `json:"budget"`
	Remaining  decimal.Decimal `json:"remaining"`
}

type SummaryTotals struct {
	Budget    decimal.Decimal `json:"budget"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Totals sums budget and remaining across items.
func Totals(items []SummaryItem) SummaryTotals {
	t := SummaryTotals{Budget: decimal.Zero, Remaining: decimal.Zero}
	for _, it := range items {
		t.Budget = t.Budget.Add(it.Budget)
		t.Remaining = t.Remaining.Add(it.Remaining)
	}
	return t
}

// NetWorth condenses an account list: savings is the bank total, debt the
// total magnitude owed.
type NetWorth struct {
	TotalSavings decimal.Decimal `json:"total_savings"`
	TotalDebt    decimal.Decimal `json:"total_debt"`
	Net          decimal.Decimal `json:"net"`
}

func ComputeNetWorth(accounts []Account) NetWorth {
	nw := NetWorth{TotalSavings: decimal.Zero, TotalDebt: decimal.Zero}
	for _, a := range accounts {
		switch a.Kind {
		case KindDebt:
			nw.TotalDebt = nw.TotalDebt.Add(a.Balance.Abs())
		default:
			nw.TotalSavings = nw.TotalSavings.Add(a.Balance)
		}
	}
	nw.Net = nw.TotalSavings.Sub(nw.TotalDebt)
	return nw
}

// Category is a budget category with its monthly budget and the amount
// carried over from earlier months.
type Category struct {
	Name     string          `json:"name"`
	Budget   decimal.Decimal `json:"budget"`
	Rollover decimal.Decimal `json:"rollover"`
}
