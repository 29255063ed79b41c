// Package outbound defines the outbound port interfaces for reaching the
// cashcat API and the credential verifier.
package outbound

import (
	"context"

	"github.com/cashcat/cashcat-gateway/internal/domain/dataset"
	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
)

// PageSource fetches a single page from a cashcat API endpoint.
// Implementations must be safe for concurrent use and return a
// *dataset.UpstreamError for every failed call.
type PageSource interface {
	GetPage(ctx context.Context, call rpc.CallContext, endpoint string, query map[string]string) (*dataset.Page, error)
}

// PageFetcher follows pagination on one endpoint up to maxRows rows.
type PageFetcher interface {
	FetchAllPages(ctx context.Context, call rpc.CallContext, endpoint string, query map[string]string, maxRows int) (dataset.Result, error)
}
