package posting

import (
	"bearbudget/internal/core"

	"github.com/shopspring/decimal"
)

// Summarize computes the budget summary of month. Used is the sum of the
// month's expense rows filed under the category; transfers carry no
// category and never count.
func Summarize(categories []core.Category, txs []core.Transaction, month core.Month) []core.SummaryItem {
	used := make(map[string]decimal.Decimal, len(categories))
	for _, tx := range txs {
		if !month.Contains(tx.Date) || tx.Type() != core.Expense || tx.Category == "" {
			continue
		}
		used[tx.Category] = used[tx.Category].Add(tx.Amount)
	}

	out := make([]core.SummaryItem, 0, len(categories))
	for _, c := range categories {
		u := used[c.Name]
		out = append(out, core.SummaryItem{
			Category:   c.Name,
			AmountUsed: u,
			Rollover:   c.Rollover,
			Budget:     c.Budget,
			Remaining:  c.Budget.Add(c.Rollover).Sub(u),
		})
	}
	return out
}
