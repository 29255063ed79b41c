package service

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/cashcat/cashcat-gateway/internal/domain/dataset"
	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
	"github.com/cashcat/cashcat-gateway/internal/domain/tool"
)

func getSchema() tool.Schema {
	return tool.Schema{
		Properties: map[string]tool.Property{
			"endpoint": {
				Type:        tool.TypeString,
				Description: "cashcat API endpoint to read.",
				Enum:        Endpoints,
			},
			"query": {
				Type:        tool.TypeObject,
				Description: "Query parameters passed to the endpoint. Values must be strings, numbers or booleans.",
			},
			"paginate_all": {
				Type:        tool.TypeBoolean,
				Description: "Follow next_cursor until max_rows rows are read or the endpoint is exhausted.",
				Default:     false,
			},
			"max_rows": rowsProperty("Maximum number of rows to return.", 1, defaultGetRows),
		},
		Required: []string{"endpoint"},
	}
}

type getPageResult struct {
	Endpoint string         `json:"endpoint"`
	Data     []any          `json:"data"`
	Meta     map[string]any `json:"meta"`
	RowCount int            `json:"row_count"`
}

type getAllResult struct {
	Endpoint  string         `json:"endpoint"`
	Rows      []any          `json:"rows"`
	RowCount  int            `json:"row_count"`
	Truncated bool           `json:"truncated"`
	Meta      map[string]any `json:"meta"`
}

func (t *tools) get(ctx context.Context, call rpc.CallContext, args tool.Args) (any, error) {
	endpoint := args.String("endpoint")
	maxRows := args.Int("max_rows")
	query, err := queryValues(args.Object("query"))
	if err != nil {
		return nil, err
	}

	if args.Bool("paginate_all") {
		delete(query, "cursor")
		delete(query, "limit")
		res, err := t.fetcher.FetchAllPages(ctx, call, endpoint, query, maxRows)
		if err != nil {
			return nil, err
		}
		return getAllResult{
			Endpoint:  endpoint,
			Rows:      res.Rows,
			RowCount:  res.RowCount,
			Truncated: res.Truncated,
			Meta:      res.LastMeta,
		}, nil
	}

	if _, ok := query["limit"]; !ok {
		query["limit"] = strconv.Itoa(min(maxRows, dataset.MaxPageSize))
	}
	page, err := t.source.GetPage(ctx, call, endpoint, query)
	if err != nil {
		return nil, err
	}
	data := page.Data
	if len(data) > maxRows {
		data = data[:maxRows]
	}
	return getPageResult{Endpoint: endpoint, Data: data, Meta: page.Meta, RowCount: len(data)}, nil
}

// queryValues flattens scalar query arguments to their wire form.
func queryValues(raw map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(raw)+1)
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case json.Number:
			out[k] = val.String()
		default:
			return nil, tool.InvalidArgument("query."+k, "must be a string, number or boolean")
		}
	}
	return out, nil
}
