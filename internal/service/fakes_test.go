package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cashcat/cashcat-gateway/internal/adapter/outbound/cashcat"
	"github.com/cashcat/cashcat-gateway/internal/domain/dataset"
	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
	"github.com/cashcat/cashcat-gateway/internal/domain/tool"
)

var fixedNow = time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)

type pageCall struct {
	endpoint string
	query    map[string]string
	call     rpc.CallContext
}

// fakeBackend serves canned rows per endpoint in cursor pages.
type fakeBackend struct {
	mu    sync.Mutex
	rows  map[string][]any
	errs  map[string]error
	calls []pageCall
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{rows: map[string][]any{}, errs: map[string]error{}}
}

func (b *fakeBackend) GetPage(_ context.Context, call rpc.CallContext, endpoint string, query map[string]string) (*dataset.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, pageCall{endpoint: endpoint, query: query, call: call})
	if err := b.errs[endpoint]; err != nil {
		return nil, err
	}

	rows := b.rows[endpoint]
	offset, _ := strconv.Atoi(query["cursor"])
	limit, err := strconv.Atoi(query["limit"])
	if err != nil || limit <= 0 {
		limit = len(rows)
	}
	end := min(offset+limit, len(rows))
	if offset > end {
		offset = end
	}

	meta := map[string]any{"total": float64(len(rows))}
	if end < len(rows) {
		meta["next_cursor"] = strconv.Itoa(end)
	}
	data := append([]any{}, rows[offset:end]...)
	return &dataset.Page{Data: data, Meta: meta}, nil
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

// queriesFor returns the queries sent to endpoint, in call order.
func (b *fakeBackend) queriesFor(endpoint string) []map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]string
	for _, c := range b.calls {
		if c.endpoint == endpoint {
			out = append(out, c.query)
		}
	}
	return out
}

func newTestRegistry(t *testing.T, backend *fakeBackend) *tool.Registry {
	t.Helper()
	return newTestRegistryAt(t, backend, fixedNow)
}

// newTestRegistryAt is newTestRegistry with a clock fixed at now.
func newTestRegistryAt(t *testing.T, backend *fakeBackend, now time.Time) *tool.Registry {
	t.Helper()
	reg, err := NewToolRegistry(ToolDeps{
		Source:  backend,
		Fetcher: cashcat.NewPager(backend),
		Now:     func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewToolRegistry() error: %v", err)
	}
	return reg
}

// invoke validates raw against the tool schema and runs its handler.
func invoke(t *testing.T, reg *tool.Registry, name string, raw map[string]any) (any, error) {
	t.Helper()
	entry, err := reg.Resolve(name)
	if err != nil {
		t.Fatalf("Resolve(%q) error: %v", name, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	args, err := entry.Definition.InputSchema.Validate(raw)
	if err != nil {
		return nil, err
	}
	return entry.Handler(context.Background(), rpc.CallContext{AuthHeader: "Bearer test", BaseOrigin: "http://cashcat.test"}, args)
}

func row(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}
