package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/jonathan/inventory-sync/internal/types"
)

var errBoom = errors.New("boom")

type fakeSource struct {
	messages []types.Message
	err      error
	calls    int
}

func (f *fakeSource) Fetch(_ context.Context, _ string, maxResults int) ([]types.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.messages) > maxResults {
		return f.messages[:maxResults], nil
	}
	return f.messages, nil
}

// fakeExtractor returns one item named after the body unless the body is listed in fail
type fakeExtractor struct {
	mu     sync.Mutex
	fail   map[string]bool
	empty  map[string]bool
	panics map[string]bool
	bodies []string
}

func (f *fakeExtractor) Extract(_ context.Context, body string, _ []types.Attachment) ([]types.InventoryItem, error) {
	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	switch {
	case f.panics[body]:
		panic("bad pdf")
	case f.fail[body]:
		return nil, errBoom
	case f.empty[body]:
		return nil, nil
	}
	return []types.InventoryItem{{ProductName: body, Category: types.CategoryHardware, Quantity: 1}}, nil
}

func (f *fakeExtractor) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bodies...)
}

type fakeSink struct {
	batches [][]types.InventoryItem
	err     error
}

func (f *fakeSink) Append(_ context.Context, items []types.InventoryItem) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, items)
	return nil
}

// fakeStore records saves with the same read-diff-append semantics as the real stores
type fakeStore struct {
	durable   []string
	saveCalls int
	writes    int
	loadErr   error
	saveErr   error
}

func (f *fakeStore) Load(context.Context) (types.IDSet, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return types.NewIDSet(f.durable...), nil
}

func (f *fakeStore) Save(_ context.Context, ids types.IDSet) error {
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	fresh := ids.Difference(types.NewIDSet(f.durable...))
	if len(fresh) == 0 {
		return nil
	}
	f.writes++
	f.durable = append(f.durable, fresh.Sorted()...)
	return nil
}

// cancellingSink cancels the cycle context once its append has landed
type cancellingSink struct {
	cancel  context.CancelFunc
	batches int
}

func (s *cancellingSink) Append(context.Context, []types.InventoryItem) error {
	s.batches++
	s.cancel()
	return nil
}

// ctxStore fails like a network-backed store when its context is done
type ctxStore struct {
	fakeStore
}

func (s *ctxStore) Save(ctx context.Context, ids types.IDSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fakeStore.Save(ctx, ids)
}
