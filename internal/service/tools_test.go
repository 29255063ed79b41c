package service

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cashcat/cashcat-gateway/internal/domain/dataset"
	"github.com/cashcat/cashcat-gateway/internal/domain/tool"
)

func seededBackend() *fakeBackend {
	b := newFakeBackend()
	b.rows["accounts"] = []any{
		row("name", "Checking", "balance", 100.10),
		row("name", "Savings", "balance", "250.25"),
		row("name", "Card", "balance", -50.0),
	}
	b.rows["categories/budget-left"] = []any{
		row("name", "Food", "budget_left", -5.0, "spent", 50.0, "assigned", 45.0),
		row("name", "Rent", "budget_left", 10.0, "spent", 1000.0, "assigned", 1010.0),
		row("name", "Fun", "budget_left", -20.0, "spent", 70.0, "assigned", 50.0),
	}
	b.rows["transactions"] = []any{
		row("date", "2024-05-02", "type", "payment", "amount", -40.5),
		row("date", "2024-05-10", "type", "income", "amount", 2000.0),
		row("date", "2024-05-05", "type", "payment", "amount", -24.6),
		row("date", "2024-05-01", "type", "starting", "amount", 500.0),
	}
	b.rows["transfers"] = []any{
		row("date", "2024-05-03", "amount", 100.25),
		row("date", "2024-05-04", "amount", -50.31),
	}
	b.rows["groups"] = []any{
		row("name", "Living", "budget_left", 30.0),
		row("name", "Extras", "budget_left", -25.0),
	}
	b.rows["categories"] = []any{row("name", "Food"), row("name", "Rent")}
	b.rows["assignments"] = []any{row("category", "Food", "amount", 45.0)}
	return b
}

func TestNewToolRegistry_Catalogue(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, newFakeBackend())
	want := []string{ToolGet, ToolFinancialOverview, ToolFullContext}
	if got := strings.Join(reg.Names(), ","); got != strings.Join(want, ",") {
		t.Errorf("Names() = %s, want %v", got, want)
	}

	raw, err := json.Marshal(reg.Definitions())
	if err != nil {
		t.Fatalf("marshal definitions: %v", err)
	}
	for _, fragment := range []string{`"inputSchema"`, `"additionalProperties":false`, `"categories/budget-left"`, `"required":["endpoint"]`} {
		if !strings.Contains(string(raw), fragment) {
			t.Errorf("catalogue missing %s", fragment)
		}
	}
}

func TestNewToolRegistry_RequiresDeps(t *testing.T) {
	t.Parallel()

	if _, err := NewToolRegistry(ToolDeps{}); err == nil {
		t.Error("NewToolRegistry() expected error without source and fetcher")
	}
}

func TestOverview_Summary(t *testing.T) {
	t.Parallel()

	b := seededBackend()
	out, err := invoke(t, newTestRegistry(t, b), ToolFinancialOverview, map[string]any{"month": "2024-05"})
	if err != nil {
		t.Fatalf("overview error: %v", err)
	}
	res := out.(overviewResult)

	if res.Month != "2024-05" {
		t.Errorf("Month = %q, want 2024-05", res.Month)
	}
	if res.Window.StartDate != "2024-05-01" || res.Window.EndDate != "2024-05-31" {
		t.Errorf("Window = %+v, want May 2024", res.Window)
	}
	if res.AsOfDate != nil {
		t.Errorf("AsOfDate = %v, want nil", *res.AsOfDate)
	}
	if res.GeneratedAt != "2024-05-15T10:30:00.000Z" {
		t.Errorf("GeneratedAt = %q", res.GeneratedAt)
	}

	s := res.Summary
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"net_worth", s.NetWorth, 300.35},
		{"account_count", float64(s.AccountCount), 3},
		{"overspent_category_count", float64(s.OverspentCategoryCount), 2},
		{"overspent_total", s.OverspentTotal, -25},
		{"budget_left_total", s.BudgetLeftTotal, -15},
		{"assigned_total", s.AssignedTotal, 1105},
		{"spent_total", s.SpentTotal, 1120},
		{"payment_total", s.PaymentTotal, 65.1},
		{"income_total", s.IncomeTotal, 2000},
		{"starting_total", s.StartingTotal, 500},
		{"net_transaction_cashflow", s.NetTransactionCashflow, 2434.9},
		{"transaction_count", float64(s.TransactionCount), 4},
		{"transfer_count", float64(s.TransferCount), 2},
		{"transfer_total", s.TransferTotal, 150.56},
		{"group_count", float64(s.GroupCount), 2},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	h := res.Highlights
	if len(h.OverspentCategories) != 2 || h.OverspentCategories[0]["budget_left"] != -20.0 {
		t.Errorf("overspent_categories = %v, want Fun (-20) first", h.OverspentCategories)
	}
	if h.TopSpendingCategories[0]["name"] != "Rent" {
		t.Errorf("top_spending_categories[0] = %v, want Rent", h.TopSpendingCategories[0])
	}
	if h.GroupsByDeficit[0]["name"] != "Extras" {
		t.Errorf("groups_by_deficit[0] = %v, want Extras", h.GroupsByDeficit[0])
	}
	if got := h.RecentTransactions[0].(map[string]any)["date"]; got != "2024-05-10" {
		t.Errorf("recent_transactions[0].date = %v, want 2024-05-10", got)
	}
	if res.DataQuality.AnyTruncated {
		t.Error("AnyTruncated = true, want false")
	}
	if res.DataQuality.RowCounts["budget_left"] != 3 {
		t.Errorf("row_counts = %v", res.DataQuality.RowCounts)
	}
	if len(res.Fingerprint) != 16 {
		t.Errorf("Fingerprint = %q, want 16 hex chars", res.Fingerprint)
	}
}

func TestOverview_Queries(t *testing.T) {
	t.Parallel()

	b := seededBackend()
	_, err := invoke(t, newTestRegistry(t, b), ToolFinancialOverview, map[string]any{
		"month":      "2024-04",
		"as_of_date": "2024-05-01",
	})
	if err != nil {
		t.Fatalf("overview error: %v", err)
	}

	acct := b.queriesFor("accounts")[0]
	if acct["include_balances"] != "true" || acct["as_of_date"] != "2024-05-01" {
		t.Errorf("accounts query = %v", acct)
	}
	groups := b.queriesFor("groups")[0]
	if groups["month"] != "2024-04" || groups["include_budget"] != "true" {
		t.Errorf("groups query = %v", groups)
	}
	if q := b.queriesFor("categories/budget-left")[0]; q["month"] != "2024-04" {
		t.Errorf("budget-left query = %v", q)
	}
	for _, ep := range []string{"transactions", "transfers"} {
		q := b.queriesFor(ep)[0]
		if q["start_date"] != "2024-04-01" || q["end_date"] != "2024-04-30" {
			t.Errorf("%s query = %v, want April window", ep, q)
		}
		if q["limit"] != "1000" {
			t.Errorf("%s limit = %q, want 1000", ep, q["limit"])
		}
	}
	for _, c := range b.calls {
		if c.call.AuthHeader != "Bearer test" {
			t.Errorf("%s call auth = %q, want forwarded header", c.endpoint, c.call.AuthHeader)
		}
	}
}

func TestOverview_MonthResolution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "explicit month wins", args: map[string]any{"month": "2023-12", "as_of_date": "2024-02-10"}, want: "2023-12"},
		{name: "from as_of_date", args: map[string]any{"as_of_date": "2024-02-10"}, want: "2024-02"},
		{name: "current month", args: nil, want: "2024-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := invoke(t, newTestRegistry(t, seededBackend()), ToolFinancialOverview, tt.args)
			if err != nil {
				t.Fatalf("overview error: %v", err)
			}
			if got := out.(overviewResult).Month; got != tt.want {
				t.Errorf("Month = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCurrentMonthFollowsUTC(t *testing.T) {
	t.Parallel()

	// 02:00 on June 1st at UTC+5 is still May 31st in UTC.
	now := time.Date(2024, time.June, 1, 2, 0, 0, 0, time.FixedZone("UTC+5", 5*60*60))

	out, err := invoke(t, newTestRegistryAt(t, seededBackend(), now), ToolFinancialOverview, nil)
	if err != nil {
		t.Fatalf("overview error: %v", err)
	}
	res := out.(overviewResult)
	if res.Month != "2024-05" {
		t.Errorf("Month = %q, want 2024-05", res.Month)
	}
	if res.GeneratedAt != "2024-05-31T21:00:00.000Z" {
		t.Errorf("GeneratedAt = %q, want 2024-05-31T21:00:00.000Z", res.GeneratedAt)
	}

	out, err = invoke(t, newTestRegistryAt(t, seededBackend(), now), ToolFullContext, nil)
	if err != nil {
		t.Fatalf("full context error: %v", err)
	}
	if got := out.(fullContextResult).Window.Month; got != "2024-05" {
		t.Errorf("full context month = %q, want 2024-05", got)
	}
}

func TestOverview_Idempotent(t *testing.T) {
	t.Parallel()

	b := seededBackend()
	reg := newTestRegistry(t, b)

	first, err := invoke(t, reg, ToolFinancialOverview, map[string]any{"month": "2024-05"})
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := invoke(t, reg, ToolFinancialOverview, map[string]any{"month": "2024-05"})
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	a, _ := json.Marshal(first.(overviewResult).Summary)
	c, _ := json.Marshal(second.(overviewResult).Summary)
	if string(a) != string(c) {
		t.Errorf("summaries differ:\n%s\n%s", a, c)
	}
	if first.(overviewResult).Fingerprint != second.(overviewResult).Fingerprint {
		t.Error("fingerprints differ for identical data")
	}

	b.mu.Lock()
	b.rows["transfers"] = append(b.rows["transfers"], row("date", "2024-05-20", "amount", 1.0))
	b.mu.Unlock()
	third, err := invoke(t, reg, ToolFinancialOverview, map[string]any{"month": "2024-05"})
	if err != nil {
		t.Fatalf("third call: %v", err)
	}
	if third.(overviewResult).Fingerprint == first.(overviewResult).Fingerprint {
		t.Error("fingerprint unchanged after data changed")
	}
}

func TestOverview_InvalidArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		args  map[string]any
		field string
	}{
		{name: "bad month", args: map[string]any{"month": "2024-13"}, field: "month"},
		{name: "month wrong shape", args: map[string]any{"month": "May"}, field: "month"},
		{name: "impossible date", args: map[string]any{"as_of_date": "2024-02-30"}, field: "as_of_date"},
		{name: "rows below minimum", args: map[string]any{"max_rows_for_summaries": 50.0}, field: "max_rows_for_summaries"},
		{name: "recent above maximum", args: map[string]any{"recent_items_limit": 101.0}, field: "recent_items_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := seededBackend()
			_, err := invoke(t, newTestRegistry(t, b), ToolFinancialOverview, tt.args)
			var ae *tool.ArgumentError
			if !errors.As(err, &ae) {
				t.Fatalf("error = %v, want ArgumentError", err)
			}
			if ae.Field != tt.field {
				t.Errorf("Field = %q, want %q", ae.Field, tt.field)
			}
			if b.callCount() != 0 {
				t.Errorf("downstream calls = %d, want 0", b.callCount())
			}
		})
	}
}

func TestOverview_UpstreamFailure(t *testing.T) {
	t.Parallel()

	b := seededBackend()
	b.errs["groups"] = &dataset.UpstreamError{Endpoint: "groups", Status: 503, Reason: "maintenance (HTTP 503)"}

	_, err := invoke(t, newTestRegistry(t, b), ToolFinancialOverview, nil)
	var ue *dataset.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v, want UpstreamError", err)
	}
	if err.Error() != "groups: maintenance (HTTP 503)" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestFullContext_Defaults(t *testing.T) {
	t.Parallel()

	b := seededBackend()
	out, err := invoke(t, newTestRegistry(t, b), ToolFullContext, nil)
	if err != nil {
		t.Fatalf("full context error: %v", err)
	}
	res := out.(fullContextResult)

	if res.Window.Month != "2024-05" || res.Window.StartDate != "2024-05-01" || res.Window.EndDate != "2024-05-31" {
		t.Errorf("Window = %+v, want current month", res.Window)
	}
	wantKeys := []string{"accounts", "categories", "groups", "budget_left", "transactions", "transfers"}
	if len(res.Datasets) != len(wantKeys) {
		t.Errorf("datasets = %d, want %d", len(res.Datasets), len(wantKeys))
	}
	for _, k := range wantKeys {
		if _, ok := res.Datasets[k]; !ok {
			t.Errorf("dataset %q missing", k)
		}
	}
	if _, ok := res.Datasets["assignments"]; ok {
		t.Error("assignments fetched without include_assignments")
	}
	if res.Overview["net_worth"] != 300.35 {
		t.Errorf("overview net_worth = %v, want 300.35", res.Overview["net_worth"])
	}
	if res.Datasets["budget_left"].RowCount != 3 {
		t.Errorf("budget_left row_count = %d, want 3", res.Datasets["budget_left"].RowCount)
	}
}

func TestFullContext_DateWindow(t *testing.T) {
	t.Parallel()

	b := seededBackend()
	out, err := invoke(t, newTestRegistry(t, b), ToolFullContext, map[string]any{
		"start_date":           "2024-03-10",
		"end_date":             "2024-04-09",
		"include_accounts":     false,
		"include_categories":   false,
		"include_groups":       false,
		"include_budget_left":  false,
		"include_transfers":    false,
		"include_assignments":  true,
		"include_transactions": true,
	})
	if err != nil {
		t.Fatalf("full context error: %v", err)
	}
	res := out.(fullContextResult)

	if res.Window.Month != "2024-03" {
		t.Errorf("Month = %q, want 2024-03 from start_date", res.Window.Month)
	}
	if len(res.Datasets) != 2 {
		t.Errorf("datasets = %v, want transactions and assignments", res.Datasets.RowCounts())
	}
	q := b.queriesFor("transactions")[0]
	if q["start_date"] != "2024-03-10" || q["end_date"] != "2024-04-09" {
		t.Errorf("transactions query = %v", q)
	}
	if q := b.queriesFor("assignments")[0]; q["month"] != "2024-03" {
		t.Errorf("assignments query = %v", q)
	}
	if _, ok := res.Overview["net_worth"]; ok {
		t.Error("overview has net_worth without accounts")
	}
	if _, ok := res.Overview["cashflow"]; !ok {
		t.Error("overview missing cashflow")
	}
}

func TestFullContext_InvalidArguments(t *testing.T) {
	t.Parallel()

	noIncludes := map[string]any{}
	for _, f := range includeFlags {
		noIncludes[f.arg] = false
	}

	tests := []struct {
		name     string
		args     map[string]any
		contains []string
	}{
		{name: "month with start_date", args: map[string]any{"month": "2024-05", "start_date": "2024-05-01"}, contains: []string{"month", "start_date"}},
		{name: "month with end_date", args: map[string]any{"month": "2024-05", "end_date": "2024-05-31"}, contains: []string{"month", "end_date"}},
		{name: "start after end", args: map[string]any{"start_date": "2024-05-10", "end_date": "2024-05-01"}, contains: []string{"start_date"}},
		{name: "bad start date", args: map[string]any{"start_date": "2024-5-1"}, contains: []string{"start_date"}},
		{name: "no datasets", args: noIncludes, contains: []string{"include_"}},
		{name: "unknown argument", args: map[string]any{"include_everything": true}, contains: []string{"include_everything"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := seededBackend()
			_, err := invoke(t, newTestRegistry(t, b), ToolFullContext, tt.args)
			var ae *tool.ArgumentError
			if !errors.As(err, &ae) {
				t.Fatalf("error = %v, want ArgumentError", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(err.Error(), s) {
					t.Errorf("error %q does not mention %q", err.Error(), s)
				}
			}
			if b.callCount() != 0 {
				t.Errorf("downstream calls = %d, want 0", b.callCount())
			}
		})
	}
}

func TestGet_SinglePage(t *testing.T) {
	t.Parallel()

	b := seededBackend()
	out, err := invoke(t, newTestRegistry(t, b), ToolGet, map[string]any{
		"endpoint": "transactions",
		"query":    map[string]any{"start_date": "2024-05-01", "account_id": 42.0, "cleared": true, "memo": nil},
		"max_rows": 2.0,
	})
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	res := out.(getPageResult)
	if res.Endpoint != "transactions" || res.RowCount != 2 || len(res.Data) != 2 {
		t.Errorf("result = %+v, want 2 transactions", res)
	}
	if res.Meta["next_cursor"] != "2" {
		t.Errorf("meta = %v, want next_cursor 2", res.Meta)
	}

	q := b.queriesFor("transactions")[0]
	want := map[string]string{"start_date": "2024-05-01", "account_id": "42", "cleared": "true", "limit": "2"}
	if len(q) != len(want) {
		t.Errorf("query = %v, want %v", q, want)
	}
	for k, v := range want {
		if q[k] != v {
			t.Errorf("query[%s] = %q, want %q", k, q[k], v)
		}
	}
}

func TestGet_OwnLimitIsKeptAndTrimmed(t *testing.T) {
	t.Parallel()

	b := seededBackend()
	out, err := invoke(t, newTestRegistry(t, b), ToolGet, map[string]any{
		"endpoint": "accounts",
		"query":    map[string]any{"limit": "3"},
		"max_rows": 1.0,
	})
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if q := b.queriesFor("accounts")[0]; q["limit"] != "3" {
		t.Errorf("limit = %q, want caller limit 3", q["limit"])
	}
	if res := out.(getPageResult); res.RowCount != 1 {
		t.Errorf("RowCount = %d, want trimmed to 1", res.RowCount)
	}
}

func TestGet_PaginateAll(t *testing.T) {
	t.Parallel()

	b := newFakeBackend()
	for i := range 2500 {
		b.rows["transactions"] = append(b.rows["transactions"], row("id", float64(i)))
	}

	out, err := invoke(t, newTestRegistry(t, b), ToolGet, map[string]any{
		"endpoint":     "transactions",
		"query":        map[string]any{"cursor": "999", "limit": 5.0},
		"paginate_all": true,
		"max_rows":     2200.0,
	})
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	res := out.(getAllResult)
	if res.RowCount != 2200 || !res.Truncated {
		t.Errorf("RowCount = %d Truncated = %v, want 2200 and true", res.RowCount, res.Truncated)
	}
	queries := b.queriesFor("transactions")
	if len(queries) != 3 {
		t.Fatalf("pages = %d, want 3", len(queries))
	}
	if _, ok := queries[0]["cursor"]; ok {
		t.Error("caller cursor forwarded on first page")
	}
	if queries[2]["limit"] != "200" {
		t.Errorf("last page limit = %q, want 200", queries[2]["limit"])
	}
}

func TestGet_InvalidArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		args  map[string]any
		field string
	}{
		{name: "missing endpoint", args: map[string]any{}, field: "endpoint"},
		{name: "endpoint not allowed", args: map[string]any{"endpoint": "users"}, field: "endpoint"},
		{name: "nested query value", args: map[string]any{"endpoint": "accounts", "query": map[string]any{"filter": map[string]any{"a": 1.0}}}, field: "query.filter"},
		{name: "max_rows zero", args: map[string]any{"endpoint": "accounts", "max_rows": 0.0}, field: "max_rows"},
		{name: "max_rows fraction", args: map[string]any{"endpoint": "accounts", "max_rows": 1.5}, field: "max_rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := seededBackend()
			_, err := invoke(t, newTestRegistry(t, b), ToolGet, tt.args)
			var ae *tool.ArgumentError
			if !errors.As(err, &ae) {
				t.Fatalf("error = %v, want ArgumentError", err)
			}
			if ae.Field != tt.field {
				t.Errorf("Field = %q, want %q", ae.Field, tt.field)
			}
			if b.callCount() != 0 {
				t.Errorf("downstream calls = %d, want 0", b.callCount())
			}
		})
	}
}
