package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/cashcat/cashcat-gateway/internal/domain/dataset"
	"github.com/cashcat/cashcat-gateway/internal/domain/finance"
	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
	"github.com/cashcat/cashcat-gateway/internal/domain/tool"
)

// Dataset keys.
const (
	DatasetAccounts     = "accounts"
	DatasetAssignments  = "assignments"
	DatasetCategories   = "categories"
	DatasetGroups       = "groups"
	DatasetBudgetLeft   = "budget_left"
	DatasetTransactions = "transactions"
	DatasetTransfers    = "transfers"
)

func overviewSchema() tool.Schema {
	return tool.Schema{
		Properties: map[string]tool.Property{
			"month":                  monthProperty("Budget month to summarise. Defaults to the month of as_of_date, else the current month"),
			"as_of_date":             dateProperty("Date account balances are reported at"),
			"max_rows_for_summaries": rowsProperty("Row ceiling per dataset.", minDatasetRows, defaultDatasetRows),
			"recent_items_limit": {
				Type:        tool.TypeInteger,
				Description: "Number of recent transactions and transfers to include.",
				Minimum:     tool.Bound(0),
				Maximum:     tool.Bound(maxRecentItems),
				Default:     defaultRecentItems,
			},
		},
	}
}

// OverviewSummary holds the headline figures of an overview.
type OverviewSummary struct {
	NetWorth     float64 `json:"net_worth"`
	AccountCount int     `json:"account_count"`
	finance.BudgetTotals
	finance.Cashflow
	finance.TransferTotals
	GroupCount int `json:"group_count"`
}

// OverviewHighlights holds the ranked and recent rows of an overview.
type OverviewHighlights struct {
	OverspentCategories   []map[string]any `json:"overspent_categories"`
	TopSpendingCategories []map[string]any `json:"top_spending_categories"`
	GroupsByDeficit       []map[string]any `json:"groups_by_deficit"`
	RecentTransactions    []any            `json:"recent_transactions"`
	RecentTransfers       []any            `json:"recent_transfers"`
}

// DataQuality reports how complete each fetched dataset is.
type DataQuality struct {
	Truncated    map[string]bool `json:"truncated"`
	RowCounts    map[string]int  `json:"row_counts"`
	AnyTruncated bool            `json:"any_truncated"`
}

type overviewResult struct {
	GeneratedAt string             `json:"generated_at"`
	Month       string             `json:"month"`
	AsOfDate    *string            `json:"as_of_date"`
	Window      finance.Window     `json:"window"`
	Summary     OverviewSummary    `json:"summary"`
	Highlights  OverviewHighlights `json:"highlights"`
	DataQuality DataQuality        `json:"data_quality"`
	Fingerprint string             `json:"fingerprint"`
}

func (t *tools) overview(ctx context.Context, call rpc.CallContext, args tool.Args) (any, error) {
	month, err := monthArg(args, "month")
	if err != nil {
		return nil, err
	}
	asOf, err := dateArg(args, "as_of_date")
	if err != nil {
		return nil, err
	}
	maxRows := args.Int("max_rows_for_summaries")

	month = finance.ResolveMonth(month, []string{asOf}, t.now().UTC())
	window, err := finance.MonthWindow(month)
	if err != nil {
		return nil, tool.InvalidArgument("month", "%v", err)
	}

	bundle, generatedAt, err := t.collect(ctx, call, []dataset.Request{
		accountsRequest(asOf, maxRows),
		groupsRequest(month, maxRows),
		budgetLeftRequest(month, maxRows),
		windowRequest(DatasetTransactions, window, maxRows),
		windowRequest(DatasetTransfers, window, maxRows),
	})
	if err != nil {
		return nil, err
	}

	summary := summarize(bundle)
	highlights := highlight(bundle, args.Int("recent_items_limit"))
	fingerprint, err := fingerprintOf(summary, highlights)
	if err != nil {
		return nil, err
	}

	res := overviewResult{
		GeneratedAt: generatedAt,
		Month:       month,
		Window:      window,
		Summary:     summary,
		Highlights:  highlights,
		DataQuality: qualityOf(bundle),
		Fingerprint: fingerprint,
	}
	if asOf != "" {
		res.AsOfDate = &asOf
	}
	return res, nil
}

func summarize(b dataset.Bundle) OverviewSummary {
	accounts := b.Rows(DatasetAccounts)
	return OverviewSummary{
		NetWorth:       finance.NetWorth(accounts),
		AccountCount:   len(accounts),
		BudgetTotals:   finance.SummarizeBudget(b.Rows(DatasetBudgetLeft)),
		Cashflow:       finance.SummarizeCashflow(b.Rows(DatasetTransactions)),
		TransferTotals: finance.SummarizeTransfers(b.Rows(DatasetTransfers)),
		GroupCount:     len(b.Rows(DatasetGroups)),
	}
}

func highlight(b dataset.Bundle, recent int) OverviewHighlights {
	budgetLeft := b.Rows(DatasetBudgetLeft)
	return OverviewHighlights{
		OverspentCategories:   finance.OverspentCategories(budgetLeft, finance.TopN),
		TopSpendingCategories: finance.TopSpendingCategories(budgetLeft, finance.TopN),
		GroupsByDeficit:       finance.GroupsByDeficit(b.Rows(DatasetGroups), finance.TopN),
		RecentTransactions:    finance.MostRecent(b.Rows(DatasetTransactions), recent),
		RecentTransfers:       finance.MostRecent(b.Rows(DatasetTransfers), recent),
	}
}

func qualityOf(b dataset.Bundle) DataQuality {
	q := DataQuality{Truncated: b.Truncation(), RowCounts: b.RowCounts()}
	for _, truncated := range q.Truncated {
		q.AnyTruncated = q.AnyTruncated || truncated
	}
	return q
}

// fingerprintOf hashes the data-derived part of an overview. Map keys marshal
// in sorted order, so equal inputs give equal fingerprints.
func fingerprintOf(summary OverviewSummary, highlights OverviewHighlights) (string, error) {
	payload, err := json.Marshal(struct {
		Summary    OverviewSummary    `json:"summary"`
		Highlights OverviewHighlights `json:"highlights"`
	}{summary, highlights})
	if err != nil {
		return "", fmt.Errorf("fingerprint overview: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(payload)), nil
}

func accountsRequest(asOf string, maxRows int) dataset.Request {
	query := map[string]string{"include_balances": "true"}
	if asOf != "" {
		query["as_of_date"] = asOf
	}
	return dataset.Request{Key: DatasetAccounts, Endpoint: "accounts", Query: query, MaxRows: maxRows}
}

func groupsRequest(month string, maxRows int) dataset.Request {
	return dataset.Request{
		Key:      DatasetGroups,
		Endpoint: "groups",
		Query:    map[string]string{"month": month, "include_budget": "true"},
		MaxRows:  maxRows,
	}
}

func budgetLeftRequest(month string, maxRows int) dataset.Request {
	return dataset.Request{
		Key:      DatasetBudgetLeft,
		Endpoint: "categories/budget-left",
		Query:    map[string]string{"month": month},
		MaxRows:  maxRows,
	}
}

func windowRequest(key string, w finance.Window, maxRows int) dataset.Request {
	query := map[string]string{}
	if w.StartDate != "" {
		query["start_date"] = w.StartDate
	}
	if w.EndDate != "" {
		query["end_date"] = w.EndDate
	}
	return dataset.Request{Key: key, Endpoint: key, Query: query, MaxRows: maxRows}
}

func monthArg(args tool.Args, name string) (string, error) {
	s := args.String(name)
	if s == "" {
		return "", nil
	}
	if _, err := finance.ParseMonth(s); err != nil {
		return "", tool.InvalidArgument(name, "must be a YYYY-MM month")
	}
	return s, nil
}

func dateArg(args tool.Args, name string) (string, error) {
	s := args.String(name)
	if s == "" {
		return "", nil
	}
	if _, err := finance.ParseDate(s); err != nil {
		return "", tool.InvalidArgument(name, "must be a valid YYYY-MM-DD date")
	}
	return s, nil
}
