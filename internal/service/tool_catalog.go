package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cashcat/cashcat-gateway/internal/domain/dataset"
	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
	"github.com/cashcat/cashcat-gateway/internal/domain/tool"
	"github.com/cashcat/cashcat-gateway/internal/port/outbound"
)

// Tool names.
const (
	ToolGet               = "cashcat_get"
	ToolFinancialOverview = "cashcat_financial_overview"
	ToolFullContext       = "cashcat_full_context"
)

// Argument bounds shared by the catalogue.
const (
	maxRowsCeiling     = 10000
	minDatasetRows     = 100
	defaultDatasetRows = 2000
	defaultGetRows     = 1000
	defaultRecentItems = 10
	maxRecentItems     = 100
	timestampLayoutUTC = "2006-01-02T15:04:05.000Z"
)

// Endpoints lists the cashcat API endpoints cashcat_get may read.
var Endpoints = []string{
	"accounts",
	"assignments",
	"categories",
	"categories/budget-left",
	"groups",
	"transactions",
	"transfers",
}

// ToolDeps are the collaborators the tool handlers share.
type ToolDeps struct {
	// Source reads single pages.
	Source outbound.PageSource
	// Fetcher follows pagination.
	Fetcher outbound.PageFetcher
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// tools binds the handlers to their dependencies.
type tools struct {
	source       outbound.PageSource
	fetcher      outbound.PageFetcher
	orchestrator *Orchestrator
	now          func() time.Time
	logger       *slog.Logger
}

// NewToolRegistry builds the static tool catalogue.
func NewToolRegistry(deps ToolDeps) (*tool.Registry, error) {
	if deps.Source == nil || deps.Fetcher == nil {
		return nil, errors.New("tool registry: page source and fetcher are required")
	}
	t := &tools{
		source:  deps.Source,
		fetcher: deps.Fetcher,
		now:     deps.Now,
		logger:  deps.Logger,
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	t.orchestrator = NewOrchestrator(t.fetcher, t.logger)

	readOnly := &tool.Annotations{ReadOnlyHint: true, IdempotentHint: true, OpenWorldHint: false}

	return tool.NewRegistry(
		tool.Entry{
			Definition: tool.Definition{
				Name:  ToolGet,
				Title: "Read a cashcat endpoint",
				Description: "Read rows from one cashcat API endpoint. Returns a single page by default; " +
					"set paginate_all to follow cursors up to max_rows.",
				InputSchema: getSchema(),
				Annotations: readOnly,
			},
			Handler: t.get,
		},
		tool.Entry{
			Definition: tool.Definition{
				Name:  ToolFinancialOverview,
				Title: "Monthly financial overview",
				Description: "Summarise one month: net worth, budget totals, cashflow, transfers, " +
					"overspent and top spending categories, and recent activity.",
				InputSchema: overviewSchema(),
				Annotations: readOnly,
			},
			Handler: t.overview,
		},
		tool.Entry{
			Definition: tool.Definition{
				Name:  ToolFullContext,
				Title: "Full financial context",
				Description: "Fetch the selected cashcat datasets for a month or date range, " +
					"with a light overview of whatever was fetched.",
				InputSchema: fullContextSchema(),
				Annotations: readOnly,
			},
			Handler: t.fullContext,
		},
	)
}

func monthProperty(description string) tool.Property {
	return tool.Property{Type: tool.TypeString, Description: description + " (YYYY-MM)."}
}

func dateProperty(description string) tool.Property {
	return tool.Property{Type: tool.TypeString, Description: description + " (YYYY-MM-DD)."}
}

func rowsProperty(description string, minimum, def int) tool.Property {
	return tool.Property{
		Type:        tool.TypeInteger,
		Description: description,
		Minimum:     tool.Bound(float64(minimum)),
		Maximum:     tool.Bound(maxRowsCeiling),
		Default:     def,
	}
}

// collect runs the orchestrator and stamps the generation time.
func (t *tools) collect(ctx context.Context, call rpc.CallContext, requests []dataset.Request) (dataset.Bundle, string, error) {
	bundle, err := t.orchestrator.Collect(ctx, call, requests)
	if err != nil {
		return nil, "", err
	}
	return bundle, t.now().UTC().Format(timestampLayoutUTC), nil
}
