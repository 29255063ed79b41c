package cashcat

import (
	"context"
	"errors"
	"strconv"

	"github.com/cashcat/cashcat-gateway/internal/domain/dataset"
	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
	"github.com/cashcat/cashcat-gateway/internal/port/outbound"
)

// ErrInvalidMaxRows is returned when the row ceiling is not positive.
var ErrInvalidMaxRows = errors.New("max rows must be positive")

// Pager follows cursor pagination on top of a PageSource.
type Pager struct {
	source outbound.PageSource
}

// NewPager creates a pager reading pages from source.
func NewPager(source outbound.PageSource) *Pager {
	return &Pager{source: source}
}

// FetchAllPages collects rows from endpoint until maxRows rows are held, the
// upstream runs out of pages, or a cursor repeats. A repeated cursor means the
// page is a replay and nothing from it is kept. Any page failure discards the
// rows collected so far.
func (p *Pager) FetchAllPages(ctx context.Context, call rpc.CallContext, endpoint string, query map[string]string, maxRows int) (dataset.Result, error) {
	if maxRows <= 0 {
		return dataset.Result{}, ErrInvalidMaxRows
	}

	rows := make([]any, 0, min(maxRows, dataset.MaxPageSize))
	seen := make(map[string]struct{})
	var (
		cursor   string
		lastMeta map[string]any
		total    float64
		hasTotal bool
	)

	for len(rows) < maxRows {
		if err := ctx.Err(); err != nil {
			return dataset.Result{}, err
		}

		pageQuery := make(map[string]string, len(query)+2)
		for k, v := range query {
			pageQuery[k] = v
		}
		pageQuery["limit"] = strconv.Itoa(min(dataset.MaxPageSize, maxRows-len(rows)))
		if cursor != "" {
			pageQuery["cursor"] = cursor
		} else {
			delete(pageQuery, "cursor")
		}

		page, err := p.source.GetPage(ctx, call, endpoint, pageQuery)
		if err != nil {
			return dataset.Result{}, err
		}

		next := page.NextCursor()
		if next != "" {
			if _, dup := seen[next]; dup {
				break
			}
			seen[next] = struct{}{}
		}

		remaining := maxRows - len(rows)
		if len(page.Data) > remaining {
			rows = append(rows, page.Data[:remaining]...)
		} else {
			rows = append(rows, page.Data...)
		}
		lastMeta = page.Meta
		if t, ok := page.Total(); ok {
			total, hasTotal = t, true
		}

		if len(page.Data) == 0 || next == "" {
			break
		}
		cursor = next
	}

	return dataset.Result{
		Rows:      rows,
		RowCount:  len(rows),
		Truncated: hasTotal && total > float64(len(rows)),
		LastMeta:  lastMeta,
	}, nil
}

// Compile-time interface verification.
var _ outbound.PageFetcher = (*Pager)(nil)
