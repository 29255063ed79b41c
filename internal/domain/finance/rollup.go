package finance

import (
	"cmp"
	"maps"
	"math"
	"slices"
)

// TopN caps every ranking in an overview.
const TopN = 20

// Transaction types with dedicated totals.
const (
	TypePayment  = "payment"
	TypeIncome   = "income"
	TypeStarting = "starting"
)

// Cashflow totals a set of transactions.
type Cashflow struct {
	TransactionCount       int     `json:"transaction_count"`
	PaymentTotal           float64 `json:"payment_total"`
	IncomeTotal            float64 `json:"income_total"`
	StartingTotal          float64 `json:"starting_total"`
	NetTransactionCashflow float64 `json:"net_transaction_cashflow"`
}

// BudgetTotals summarises budget-left rows for one month.
type BudgetTotals struct {
	CategoryCount          int     `json:"category_count"`
	AssignedTotal          float64 `json:"assigned_total"`
	SpentTotal             float64 `json:"spent_total"`
	BudgetLeftTotal        float64 `json:"budget_left_total"`
	OverspentCategoryCount int     `json:"overspent_category_count"`
	OverspentTotal         float64 `json:"overspent_total"`
}

// TransferTotals summarises transfers.
type TransferTotals struct {
	TransferCount int     `json:"transfer_count"`
	TransferTotal float64 `json:"transfer_total"`
}

// NetWorth is the sum of account balances.
func NetWorth(accounts []any) float64 {
	return Sum(accounts, "balance")
}

// SummarizeCashflow totals transactions by type. Payments are summed by
// absolute value, income and starting balances keep their sign, and the net
// figure covers every row regardless of type.
func SummarizeCashflow(transactions []any) Cashflow {
	var payment, income, starting, net float64
	for _, row := range transactions {
		amount := Number(Field(row, "amount"))
		net += amount
		switch Text(row, "type") {
		case TypePayment:
			payment += math.Abs(amount)
		case TypeIncome:
			income += amount
		case TypeStarting:
			starting += amount
		}
	}
	return Cashflow{
		TransactionCount:       len(transactions),
		PaymentTotal:           Round2(payment),
		IncomeTotal:            Round2(income),
		StartingTotal:          Round2(starting),
		NetTransactionCashflow: Round2(net),
	}
}

// SummarizeBudget totals budget-left rows.
func SummarizeBudget(rows []any) BudgetTotals {
	var overspent float64
	count := 0
	for _, row := range rows {
		if left := Number(Field(row, "budget_left")); left < 0 {
			overspent += left
			count++
		}
	}
	return BudgetTotals{
		CategoryCount:          len(rows),
		AssignedTotal:          Sum(rows, "assigned"),
		SpentTotal:             Sum(rows, "spent"),
		BudgetLeftTotal:        Sum(rows, "budget_left"),
		OverspentCategoryCount: count,
		OverspentTotal:         Round2(overspent),
	}
}

// SummarizeTransfers counts transfers and totals their absolute amounts.
func SummarizeTransfers(transfers []any) TransferTotals {
	total := 0.0
	for _, row := range transfers {
		total += math.Abs(Number(Field(row, "amount")))
	}
	return TransferTotals{TransferCount: len(transfers), TransferTotal: Round2(total)}
}

// OverspentCategories returns rows with a negative budget_left, most negative
// first, capped to limit.
func OverspentCategories(rows []any, limit int) []map[string]any {
	return rank(rows, "budget_left", func(v float64) bool { return v < 0 }, false, limit)
}

// TopSpendingCategories returns rows ordered by spent, highest first.
func TopSpendingCategories(rows []any, limit int) []map[string]any {
	return rank(rows, "spent", nil, true, limit)
}

// GroupsByDeficit returns groups ordered by their month budget_left, lowest first.
func GroupsByDeficit(groups []any, limit int) []map[string]any {
	return rank(groups, "budget_left", nil, false, limit)
}

// MostRecent returns up to limit rows ordered by their date field, newest
// first. Rows without a date sort last.
func MostRecent(rows []any, limit int) []any {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b any) int {
		da, db := Text(a, "date"), Text(b, "date")
		switch {
		case da == db:
			return 0
		case da == "":
			return 1
		case db == "":
			return -1
		}
		return cmp.Compare(db, da)
	})
	if limit < 0 {
		limit = 0
	}
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	if sorted == nil {
		sorted = []any{}
	}
	return sorted
}

// rank keeps object rows whose field passes keep, sorts them stably by that
// field and caps the result. The ranked field is replaced by its numeric value
// in the returned copies; ties keep upstream order.
func rank(rows []any, field string, keep func(float64) bool, desc bool, limit int) []map[string]any {
	type scored struct {
		row   map[string]any
		value float64
	}
	candidates := make([]scored, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		v := Number(m[field])
		if keep != nil && !keep(v) {
			continue
		}
		candidates = append(candidates, scored{row: m, value: v})
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		if desc {
			return cmp.Compare(b.value, a.value)
		}
		return cmp.Compare(a.value, b.value)
	})

	if limit < 0 {
		limit = 0
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]map[string]any, len(candidates))
	for i, c := range candidates {
		entry := maps.Clone(c.row)
		if entry == nil {
			entry = make(map[string]any, 1)
		}
		entry[field] = c.value
		out[i] = entry
	}
	return out
}
