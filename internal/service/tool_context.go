package service

import (
	"context"

	"github.com/cashcat/cashcat-gateway/internal/domain/dataset"
	"github.com/cashcat/cashcat-gateway/internal/domain/finance"
	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
	"github.com/cashcat/cashcat-gateway/internal/domain/tool"
)

// includeFlag maps an include_* argument to its dataset.
type includeFlag struct {
	arg     string
	key     string
	enabled bool
	about   string
}

var includeFlags = []includeFlag{
	{arg: "include_accounts", key: DatasetAccounts, enabled: true, about: "accounts with balances"},
	{arg: "include_categories", key: DatasetCategories, enabled: true, about: "categories"},
	{arg: "include_groups", key: DatasetGroups, enabled: true, about: "category groups with budget totals"},
	{arg: "include_budget_left", key: DatasetBudgetLeft, enabled: true, about: "per-category budget left"},
	{arg: "include_transactions", key: DatasetTransactions, enabled: true, about: "transactions in the window"},
	{arg: "include_transfers", key: DatasetTransfers, enabled: true, about: "transfers in the window"},
	{arg: "include_assignments", key: DatasetAssignments, enabled: false, about: "budget assignments for the month"},
}

func fullContextSchema() tool.Schema {
	props := map[string]tool.Property{
		"month":                 monthProperty("Month to fetch. Cannot be combined with start_date or end_date"),
		"start_date":            dateProperty("First day of the window"),
		"end_date":              dateProperty("Last day of the window"),
		"as_of_date":            dateProperty("Date account balances are reported at"),
		"max_rows_per_endpoint": rowsProperty("Row ceiling per dataset.", minDatasetRows, defaultDatasetRows),
	}
	for _, f := range includeFlags {
		props[f.arg] = tool.Property{
			Type:        tool.TypeBoolean,
			Description: "Include " + f.about + ".",
			Default:     f.enabled,
		}
	}
	return tool.Schema{Properties: props}
}

// ContextWindow is the resolved period of a full context call.
type ContextWindow struct {
	Month string `json:"month"`
	finance.Window
}

type fullContextResult struct {
	GeneratedAt string         `json:"generated_at"`
	Window      ContextWindow  `json:"window"`
	Datasets    dataset.Bundle `json:"datasets"`
	Overview    map[string]any `json:"overview"`
}

func (t *tools) fullContext(ctx context.Context, call rpc.CallContext, args tool.Args) (any, error) {
	window, err := t.resolveContextWindow(args)
	if err != nil {
		return nil, err
	}
	asOf, err := dateArg(args, "as_of_date")
	if err != nil {
		return nil, err
	}
	maxRows := args.Int("max_rows_per_endpoint")

	var requests []dataset.Request
	for _, f := range includeFlags {
		if !args.Bool(f.arg) {
			continue
		}
		switch f.key {
		case DatasetAccounts:
			requests = append(requests, accountsRequest(asOf, maxRows))
		case DatasetCategories:
			requests = append(requests, dataset.Request{Key: f.key, Endpoint: "categories", Query: map[string]string{}, MaxRows: maxRows})
		case DatasetGroups:
			requests = append(requests, groupsRequest(window.Month, maxRows))
		case DatasetBudgetLeft:
			requests = append(requests, budgetLeftRequest(window.Month, maxRows))
		case DatasetTransactions, DatasetTransfers:
			requests = append(requests, windowRequest(f.key, window.Window, maxRows))
		case DatasetAssignments:
			requests = append(requests, dataset.Request{
				Key:      f.key,
				Endpoint: "assignments",
				Query:    map[string]string{"month": window.Month},
				MaxRows:  maxRows,
			})
		}
	}
	if len(requests) == 0 {
		return nil, tool.InvalidArgument("", "at least one include_* flag must be true")
	}

	bundle, generatedAt, err := t.collect(ctx, call, requests)
	if err != nil {
		return nil, err
	}
	return fullContextResult{
		GeneratedAt: generatedAt,
		Window:      window,
		Datasets:    bundle,
		Overview:    lightOverview(bundle),
	}, nil
}

// resolveContextWindow applies month > start_date > as_of_date > now.
func (t *tools) resolveContextWindow(args tool.Args) (ContextWindow, error) {
	month, err := monthArg(args, "month")
	if err != nil {
		return ContextWindow{}, err
	}
	start, err := dateArg(args, "start_date")
	if err != nil {
		return ContextWindow{}, err
	}
	end, err := dateArg(args, "end_date")
	if err != nil {
		return ContextWindow{}, err
	}
	asOf, err := dateArg(args, "as_of_date")
	if err != nil {
		return ContextWindow{}, err
	}

	if month != "" && (start != "" || end != "") {
		return ContextWindow{}, tool.InvalidArgument("", "month cannot be combined with start_date or end_date")
	}
	if start != "" && end != "" && start > end {
		return ContextWindow{}, tool.InvalidArgument("start_date", "must not be after end_date")
	}

	if start != "" || end != "" {
		return ContextWindow{
			Month:  finance.ResolveMonth("", []string{start, asOf}, t.now().UTC()),
			Window: finance.Window{StartDate: start, EndDate: end},
		}, nil
	}

	month = finance.ResolveMonth(month, []string{asOf}, t.now().UTC())
	w, err := finance.MonthWindow(month)
	if err != nil {
		return ContextWindow{}, tool.InvalidArgument("month", "%v", err)
	}
	return ContextWindow{Month: month, Window: w}, nil
}

// lightOverview summarises only the datasets present in the bundle.
func lightOverview(b dataset.Bundle) map[string]any {
	out := map[string]any{}
	if _, ok := b[DatasetAccounts]; ok {
		accounts := b.Rows(DatasetAccounts)
		out["net_worth"] = finance.NetWorth(accounts)
		out["account_count"] = len(accounts)
	}
	if _, ok := b[DatasetBudgetLeft]; ok {
		rows := b.Rows(DatasetBudgetLeft)
		out["budget"] = finance.SummarizeBudget(rows)
		out["overspent_categories"] = finance.OverspentCategories(rows, finance.TopN)
	}
	if _, ok := b[DatasetGroups]; ok {
		out["group_count"] = len(b.Rows(DatasetGroups))
	}
	if _, ok := b[DatasetTransactions]; ok {
		out["cashflow"] = finance.SummarizeCashflow(b.Rows(DatasetTransactions))
	}
	if _, ok := b[DatasetTransfers]; ok {
		out["transfers"] = finance.SummarizeTransfers(b.Rows(DatasetTransfers))
	}
	q := qualityOf(b)
	out["any_truncated"] = q.AnyTruncated
	return out
}
