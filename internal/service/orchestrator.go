package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cashcat/cashcat-gateway/internal/domain/dataset"
	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
	"github.com/cashcat/cashcat-gateway/internal/port/outbound"
)

// Orchestrator fetches several datasets concurrently and assembles them into
// a bundle keyed by dataset name.
type Orchestrator struct {
	fetcher outbound.PageFetcher
	logger  *slog.Logger
}

// NewOrchestrator creates an Orchestrator paging through fetcher.
func NewOrchestrator(fetcher outbound.PageFetcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{fetcher: fetcher, logger: logger}
}

// Collect runs one paginated fetch per request. The first failure cancels the
// remaining fetches and is returned alone; completed datasets are discarded.
func (o *Orchestrator) Collect(ctx context.Context, call rpc.CallContext, requests []dataset.Request) (dataset.Bundle, error) {
	keys := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		if _, dup := keys[req.Key]; dup {
			return nil, fmt.Errorf("dataset %q requested twice", req.Key)
		}
		keys[req.Key] = struct{}{}
	}

	bundle := make(dataset.Bundle, len(requests))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, req := range requests {
		g.Go(func() error {
			start := time.Now()
			res, err := o.fetcher.FetchAllPages(gctx, call, req.Endpoint, req.Query, req.MaxRows)
			if err != nil {
				o.logger.Debug("dataset fetch failed", "dataset", req.Key, "endpoint", req.Endpoint, "error", err)
				return err
			}
			o.logger.Debug("dataset fetched",
				"dataset", req.Key,
				"rows", res.RowCount,
				"truncated", res.Truncated,
				"duration", time.Since(start),
			)

			mu.Lock()
			bundle[req.Key] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}
