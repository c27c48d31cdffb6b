package sheets

import (
	"context"
	"fmt"
	"sync"
)

type appendCall struct {
	rng    string
	rows   [][]any
	option string
}

// fakeValues keeps appended rows per range so reads see earlier appends
type fakeValues struct {
	mu      sync.Mutex
	ranges  map[string][][]any
	appends []appendCall
	gets    int

	getErr    error
	appendErr error
}

func newFakeValues() *fakeValues {
	return &fakeValues{ranges: make(map[string][][]any)}
}

func (f *fakeValues) Get(_ context.Context, rng string) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([][]any(nil), f.ranges[rng]...), nil
}

func (f *fakeValues) Append(_ context.Context, rng string, rows [][]any, option string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends = append(f.appends, appendCall{rng: rng, rows: rows, option: option})
	f.ranges[rng] = append(f.ranges[rng], rows...)
	return nil
}

func (f *fakeValues) column(rng string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, row := range f.ranges[rng] {
		out = append(out, fmt.Sprint(row[0]))
	}
	return out
}
