package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/inventory-sync/internal/types"
)

func newTestLoop(source *fakeSource, extractor *fakeExtractor, sink *fakeSink, store *fakeStore, opts Options) *Loop {
	return New(source, extractor, sink, store, opts, zerolog.Nop())
}

func msg(id, body string) types.Message {
	return types.Message{ID: id, Subject: "Order " + id, Body: body}
}

func TestRunOnce_Scenario(t *testing.T) {
	source := &fakeSource{messages: []types.Message{
		msg("m1", "Order confirmed"),
		msg("m2", ""),
	}}
	extractor := &fakeExtractor{}
	sink := &fakeSink{}
	store := &fakeStore{}
	loop := newTestLoop(source, extractor, sink, store, Options{})

	processed := types.NewIDSet()
	result, err := loop.RunOnce(context.Background(), processed)
	require.NoError(t, err)

	assert.Equal(t, []string{"Order confirmed"}, extractor.calls(), "m2 has nothing to extract")
	require.Len(t, sink.batches, 1)
	require.Len(t, sink.batches[0], 1)
	assert.Equal(t, "Order confirmed", sink.batches[0][0].ProductName)
	assert.Equal(t, []string{"m1"}, processed.Sorted())
	assert.Equal(t, []string{"m1"}, store.durable)

	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Extracted)
	assert.Equal(t, 1, result.Items)
	assert.Equal(t, []string{"m1"}, result.NewIDs)
	assert.NotEmpty(t, result.CycleID)
}

func TestRunOnce_Idempotent(t *testing.T) {
	source := &fakeSource{messages: []types.Message{msg("m1", "a"), msg("m2", "b")}}
	extractor := &fakeExtractor{}
	sink := &fakeSink{}
	store := &fakeStore{}
	loop := newTestLoop(source, extractor, sink, store, Options{})
	processed := types.NewIDSet()

	_, err := loop.RunOnce(context.Background(), processed)
	require.NoError(t, err)
	require.Len(t, sink.batches, 1)
	durableAfterFirst := append([]string(nil), store.durable...)
	savesAfterFirst := store.saveCalls

	_, err = loop.RunOnce(context.Background(), processed)
	require.NoError(t, err)

	assert.Len(t, sink.batches, 1, "second run must not write to the sink")
	assert.Equal(t, durableAfterFirst, store.durable)
	assert.Equal(t, savesAfterFirst, store.saveCalls, "second run must not touch the store")
	assert.Len(t, extractor.calls(), 2, "processed messages are never extracted again")
}

func TestRunOnce_NeverReextractsProcessed(t *testing.T) {
	source := &fakeSource{messages: []types.Message{msg("old", "old body"), msg("new", "new body")}}
	extractor := &fakeExtractor{}
	sink := &fakeSink{}
	loop := newTestLoop(source, extractor, sink, &fakeStore{durable: []string{"old"}}, Options{})

	processed := types.NewIDSet("old")
	for i := 0; i < 3; i++ {
		_, err := loop.RunOnce(context.Background(), processed)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"new body"}, extractor.calls())
	for _, batch := range sink.batches {
		for _, item := range batch {
			assert.NotEqual(t, "old body", item.ProductName)
		}
	}
}

func TestRunOnce_SingleBatchWrite(t *testing.T) {
	var messages []types.Message
	for i := 0; i < 5; i++ {
		messages = append(messages, msg(fmt.Sprintf("m%d", i), fmt.Sprintf("body %d", i)))
	}
	sink := &fakeSink{}
	loop := newTestLoop(&fakeSource{messages: messages}, &fakeExtractor{}, sink, &fakeStore{}, Options{})

	_, err := loop.RunOnce(context.Background(), types.NewIDSet())
	require.NoError(t, err)

	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 5)
}

func TestRunOnce_SinkFailureGivesNoCredit(t *testing.T) {
	source := &fakeSource{messages: []types.Message{msg("m1", "a"), msg("m2", "b")}}
	extractor := &fakeExtractor{}
	sink := &fakeSink{err: errBoom}
	store := &fakeStore{}
	loop := newTestLoop(source, extractor, sink, store, Options{})
	processed := types.NewIDSet()

	_, err := loop.RunOnce(context.Background(), processed)
	require.Error(t, err)

	var sinkErr *SinkError
	require.True(t, errors.As(err, &sinkErr))
	assert.Equal(t, 2, sinkErr.Items)
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, processed)
	assert.Zero(t, store.saveCalls)

	sink.err = nil
	_, err = loop.RunOnce(context.Background(), processed)
	require.NoError(t, err)

	assert.Len(t, extractor.calls(), 4, "both messages are extracted again after the failed append")
	assert.Equal(t, []string{"m1", "m2"}, processed.Sorted())
}

func TestRunOnce_ExtractionFailureIsolated(t *testing.T) {
	source := &fakeSource{messages: []types.Message{msg("good", "good"), msg("bad", "bad"), msg("crash", "crash")}}
	extractor := &fakeExtractor{fail: map[string]bool{"bad": true}, panics: map[string]bool{"crash": true}}
	sink := &fakeSink{}
	loop := newTestLoop(source, extractor, sink, &fakeStore{}, Options{})
	processed := types.NewIDSet()

	result, err := loop.RunOnce(context.Background(), processed)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, []string{"good"}, processed.Sorted())
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 1)

	extractor.fail = nil
	extractor.panics = nil
	_, err = loop.RunOnce(context.Background(), processed)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad", "crash", "good"}, processed.Sorted())
}

func TestRunOnce_NoItemsIsNoop(t *testing.T) {
	tests := []struct {
		name     string
		messages []types.Message
		empty    map[string]bool
	}{
		{name: "no messages"},
		{name: "only empty messages", messages: []types.Message{msg("m1", ""), msg("m2", "")}},
		{name: "extractor found nothing", messages: []types.Message{msg("m1", "nothing")}, empty: map[string]bool{"nothing": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{}
			store := &fakeStore{}
			loop := newTestLoop(&fakeSource{messages: tt.messages}, &fakeExtractor{empty: tt.empty}, sink, store, Options{})
			processed := types.NewIDSet()

			_, err := loop.RunOnce(context.Background(), processed)
			require.NoError(t, err)

			assert.Empty(t, sink.batches)
			assert.Zero(t, store.saveCalls)
			assert.Empty(t, processed)
		})
	}
}

func TestRunOnce_ZeroItemMessageCreditedWithBatch(t *testing.T) {
	source := &fakeSource{messages: []types.Message{msg("m1", "item"), msg("m2", "nothing")}}
	extractor := &fakeExtractor{empty: map[string]bool{"nothing": true}}
	loop := newTestLoop(source, extractor, &fakeSink{}, &fakeStore{}, Options{})
	processed := types.NewIDSet()

	_, err := loop.RunOnce(context.Background(), processed)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, processed.Sorted())
}

func TestRunOnce_SkipsBlankAndDuplicateIDs(t *testing.T) {
	source := &fakeSource{messages: []types.Message{msg("", "orphan"), msg("m1", "a"), msg("m1", "a")}}
	extractor := &fakeExtractor{}
	loop := newTestLoop(source, extractor, &fakeSink{}, &fakeStore{}, Options{})

	result, err := loop.RunOnce(context.Background(), types.NewIDSet())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, extractor.calls())
	assert.Equal(t, 2, result.Skipped)
}

func TestRunOnce_FetchFailure(t *testing.T) {
	sink := &fakeSink{}
	loop := newTestLoop(&fakeSource{err: errBoom}, &fakeExtractor{}, sink, &fakeStore{}, Options{})

	_, err := loop.RunOnce(context.Background(), types.NewIDSet())
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Empty(t, sink.batches)
}

func TestRunOnce_RespectsMaxResults(t *testing.T) {
	var messages []types.Message
	for i := 0; i < 10; i++ {
		messages = append(messages, msg(fmt.Sprintf("m%d", i), "x"))
	}
	loop := newTestLoop(&fakeSource{messages: messages}, &fakeExtractor{}, &fakeSink{}, &fakeStore{}, Options{MaxResults: 3})

	result, err := loop.RunOnce(context.Background(), types.NewIDSet())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Fetched)
}

func TestRunOnce_ParallelExtraction(t *testing.T) {
	var messages []types.Message
	for i := 0; i < 20; i++ {
		messages = append(messages, msg(fmt.Sprintf("m%02d", i), fmt.Sprintf("body %02d", i)))
	}
	fail := map[string]bool{"body 03": true, "body 17": true}
	sink := &fakeSink{}
	loop := newTestLoop(&fakeSource{messages: messages}, &fakeExtractor{fail: fail}, sink, &fakeStore{}, Options{Concurrency: 4})
	processed := types.NewIDSet()

	result, err := loop.RunOnce(context.Background(), processed)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Failed)
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 18)
	assert.Len(t, processed, 18)
	assert.False(t, processed.Has("m03"))
	assert.False(t, processed.Has("m17"))
}

func TestRunOnce_MaxAttempts(t *testing.T) {
	source := &fakeSource{messages: []types.Message{msg("bad", "bad")}}
	extractor := &fakeExtractor{fail: map[string]bool{"bad": true}}
	loop := newTestLoop(source, extractor, &fakeSink{}, &fakeStore{}, Options{MaxAttempts: 2})
	processed := types.NewIDSet()

	for i := 0; i < 4; i++ {
		_, err := loop.RunOnce(context.Background(), processed)
		require.NoError(t, err)
	}

	assert.Len(t, extractor.calls(), 2)
	assert.False(t, processed.Has("bad"), "abandoned messages are never marked processed")
}

func TestRunOnce_RetriesUnsavedIDs(t *testing.T) {
	source := &fakeSource{messages: []types.Message{msg("m1", "a")}}
	store := &fakeStore{saveErr: errBoom}
	sink := &fakeSink{}
	loop := newTestLoop(source, &fakeExtractor{}, sink, store, Options{})
	processed := types.NewIDSet()

	_, err := loop.RunOnce(context.Background(), processed)
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "save", storeErr.Op)
	assert.True(t, processed.Has("m1"), "ids stay in memory so the batch is not written twice")

	store.saveErr = nil
	_, err = loop.RunOnce(context.Background(), processed)
	require.NoError(t, err)

	assert.Len(t, sink.batches, 1)
	assert.Equal(t, []string{"m1"}, store.durable)
}

func TestRun_LoadsOnceAndSurvivesFailures(t *testing.T) {
	source := &fakeSource{err: errBoom}
	store := &fakeStore{durable: []string{"m0"}}
	loop := newTestLoop(source, &fakeExtractor{}, &fakeSink{}, store, Options{Interval: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var slept []time.Duration
	loop.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		if len(slept) == 3 {
			cancel()
			return context.Canceled
		}
		return nil
	}

	err := loop.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, source.calls, "a failing cycle never stops the loop")
	assert.Equal(t, []time.Duration{time.Minute, time.Minute, time.Minute}, slept)
}

func TestRun_CarriesProcessedAcrossCycles(t *testing.T) {
	source := &fakeSource{messages: []types.Message{msg("m0", "old"), msg("m1", "new")}}
	extractor := &fakeExtractor{}
	sink := &fakeSink{}
	store := &fakeStore{durable: []string{"m0"}}
	loop := newTestLoop(source, extractor, sink, store, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cycles := 0
	loop.sleep = func(context.Context, time.Duration) error {
		cycles++
		if cycles == 2 {
			cancel()
			return context.Canceled
		}
		return nil
	}

	require.NoError(t, loop.Run(ctx))
	assert.Equal(t, []string{"new"}, extractor.calls())
	assert.Len(t, sink.batches, 1)
	assert.Equal(t, []string{"m0", "m1"}, store.durable)
}

func TestRun_LoadFailure(t *testing.T) {
	store := &fakeStore{loadErr: errBoom}
	loop := newTestLoop(&fakeSource{}, &fakeExtractor{}, &fakeSink{}, store, Options{})

	err := loop.Run(context.Background())
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "load", storeErr.Op)
}

func TestSleepContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}

type recordingObserver struct {
	results   []CycleResult
	processed []int
	errs      []error
}

func (o *recordingObserver) ObserveCycle(result CycleResult, processed int, err error, _ time.Duration) {
	o.results = append(o.results, result)
	o.processed = append(o.processed, processed)
	o.errs = append(o.errs, err)
}

func TestRunOnce_NotifiesObserver(t *testing.T) {
	source := &fakeSource{messages: []types.Message{msg("m1", "a")}}
	sink := &fakeSink{}
	loop := newTestLoop(source, &fakeExtractor{}, sink, &fakeStore{}, Options{})
	obs := &recordingObserver{}
	loop.SetObserver(obs)

	processed := types.NewIDSet()
	_, err := loop.RunOnce(context.Background(), processed)
	require.NoError(t, err)

	sink.err = errBoom
	source.messages = append(source.messages, msg("m2", "b"))
	_, err = loop.RunOnce(context.Background(), processed)
	require.Error(t, err)

	require.Len(t, obs.results, 2)
	assert.Equal(t, 1, obs.results[0].Items)
	assert.Equal(t, []int{1, 1}, obs.processed)
	assert.NoError(t, obs.errs[0])
	var sinkErr *SinkError
	assert.True(t, errors.As(obs.errs[1], &sinkErr))
}

func TestRunOnce_SavesAfterAppendDespiteCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{messages: []types.Message{msg("m1", "a")}}
	sink := &cancellingSink{cancel: cancel}
	store := &ctxStore{}
	loop := New(source, &fakeExtractor{}, sink, store, Options{}, zerolog.Nop())

	processed := types.NewIDSet()
	_, err := loop.RunOnce(ctx, processed)
	require.NoError(t, err)

	assert.Equal(t, 1, sink.batches)
	assert.Equal(t, []string{"m1"}, store.durable, "appended rows must have their ids recorded")
	assert.False(t, loop.unsaved)
}

func TestRunOnce_MessageLogsCarryCycleID(t *testing.T) {
	var buf bytes.Buffer
	source := &fakeSource{messages: []types.Message{msg("m1", "a")}}
	loop := New(source, &fakeExtractor{}, &fakeSink{}, &fakeStore{}, Options{}, zerolog.New(&buf))

	result, err := loop.RunOnce(context.Background(), types.NewIDSet())
	require.NoError(t, err)

	found := false
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["message"] == "processing message" {
			found = true
			assert.Equal(t, result.CycleID, entry["cycle_id"])
			assert.Equal(t, "m1", entry["message_id"])
		}
	}
	assert.True(t, found)
}
