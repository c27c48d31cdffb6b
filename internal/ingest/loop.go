package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/inventory-sync/internal/types"
)

const (
	// DefaultQuery matches purchase confirmations and order notices
	DefaultQuery = `"Purchase" OR "order"`
	// DefaultMaxResults bounds the number of messages fetched per cycle
	DefaultMaxResults = 50
	// DefaultInterval is the sleep between the end of one cycle and the start of the next
	DefaultInterval = 5 * time.Hour
)

// Options holds the tunables of the loop
type Options struct {
	Query       string
	MaxResults  int
	Interval    time.Duration
	Concurrency int // parallel Extract calls per cycle; 1 means sequential
	MaxAttempts int // extraction failures before a message is skipped for the rest of the process; 0 disables
}

func (o Options) withDefaults() Options {
	if o.Query == "" {
		o.Query = DefaultQuery
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	return o
}

// CycleResult summarizes one RunOnce call
type CycleResult struct {
	CycleID   string
	Fetched   int
	Skipped   int
	Abandoned int
	Extracted int
	Failed    int
	Items     int
	NewIDs    []string
}

// Loop orchestrates fetch, filter, extract, append and mark-processed.
// RunOnce must not be called concurrently.
type Loop struct {
	source    MailSource
	extractor Extractor
	sink      RecordSink
	store     ProcessedStore
	opts      Options
	logger    zerolog.Logger

	attempts map[string]int
	unsaved  bool
	sleep    func(ctx context.Context, d time.Duration) error
	observer CycleObserver
}

// CycleObserver is notified at the end of every RunOnce call
type CycleObserver interface {
	ObserveCycle(result CycleResult, processed int, err error, elapsed time.Duration)
}

// SetObserver registers o to receive cycle outcomes. Call before Run.
func (l *Loop) SetObserver(o CycleObserver) {
	l.observer = o
}

// New creates a Loop over the given collaborators
func New(source MailSource, extractor Extractor, sink RecordSink, store ProcessedStore, opts Options, logger zerolog.Logger) *Loop {
	return &Loop{
		source:    source,
		extractor: extractor,
		sink:      sink,
		store:     store,
		opts:      opts.withDefaults(),
		logger:    logger,
		attempts:  make(map[string]int),
		sleep:     sleepContext,
	}
}

// outcome is the result of a single Extract call
type outcome struct {
	items []types.InventoryItem
	err   error
}

// RunOnce performs one cycle. processed is read to filter messages and, after a
// successful append, extended in place with the ids that were ingested.
func (l *Loop) RunOnce(ctx context.Context, processed types.IDSet) (CycleResult, error) {
	start := time.Now()
	result, err := l.runOnce(ctx, processed)
	if l.observer != nil {
		l.observer.ObserveCycle(result, len(processed), err, time.Since(start))
	}
	return result, err
}

func (l *Loop) runOnce(ctx context.Context, processed types.IDSet) (CycleResult, error) {
	result := CycleResult{CycleID: uuid.NewString()}
	log := l.logger.With().Str("cycle_id", result.CycleID).Logger()

	if l.unsaved {
		if err := l.store.Save(ctx, processed); err != nil {
			log.Warn().Err(err).Msg("retrying unsaved processed ids failed")
		} else {
			l.unsaved = false
			log.Info().Int("processed", len(processed)).Msg("saved previously unsaved processed ids")
		}
	}

	log.Info().Str("query", l.opts.Query).Int("max_results", l.opts.MaxResults).Msg("fetching messages")
	messages, err := l.source.Fetch(ctx, l.opts.Query, l.opts.MaxResults)
	if err != nil {
		return result, &FetchError{Cause: err}
	}
	result.Fetched = len(messages)
	log.Info().Int("fetched", result.Fetched).Msg("fetched messages before filtering processed ones")

	pending := l.filter(log, messages, processed, &result)
	outcomes := l.extractAll(ctx, log, pending)

	var batch []types.InventoryItem
	newIDs := make(types.IDSet)
	for i, msg := range pending {
		out := outcomes[i]
		if out.err != nil {
			l.attempts[msg.ID]++
			result.Failed++
			log.Warn().Err(out.err).
				Str("message_id", msg.ID).
				Int("attempt", l.attempts[msg.ID]).
				Msg("extraction failed, message will be retried next cycle")
			continue
		}
		delete(l.attempts, msg.ID)
		result.Extracted++
		batch = append(batch, out.items...)
		newIDs.Add(msg.ID)
	}
	result.Items = len(batch)

	if len(batch) == 0 {
		log.Info().
			Int("extracted", result.Extracted).
			Int("failed", result.Failed).
			Msg("no new items extracted in this cycle")
		return result, nil
	}

	log.Info().Int("items", len(batch)).Msg("writing items to sink")
	if err := l.sink.Append(ctx, batch); err != nil {
		return result, &SinkError{Items: len(batch), Cause: err}
	}

	processed.Merge(newIDs)
	result.NewIDs = newIDs.Sorted()
	// The rows are written; a shutdown must not leave their ids unrecorded.
	if err := l.store.Save(context.WithoutCancel(ctx), processed); err != nil {
		l.unsaved = true
		return result, &StoreError{Op: "save", Cause: err}
	}

	log.Info().
		Int("items", result.Items).
		Int("new_ids", len(result.NewIDs)).
		Int("processed", len(processed)).
		Int("failed", result.Failed).
		Msg("cycle complete")
	return result, nil
}

// filter drops messages that were already ingested, carry nothing to extract,
// or ran out of attempts. Duplicate ids within one fetch are kept once.
func (l *Loop) filter(log zerolog.Logger, messages []types.Message, processed types.IDSet, result *CycleResult) []types.Message {
	seen := make(types.IDSet, len(messages))
	pending := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		switch {
		case msg.ID == "", processed.Has(msg.ID), seen.Has(msg.ID):
			result.Skipped++
			continue
		case !msg.HasContent():
			result.Skipped++
			log.Debug().Str("message_id", msg.ID).Msg("skipping message with neither body nor attachments")
			continue
		case l.opts.MaxAttempts > 0 && l.attempts[msg.ID] >= l.opts.MaxAttempts:
			result.Abandoned++
			log.Warn().Str("message_id", msg.ID).Int("attempts", l.attempts[msg.ID]).Msg("skipping message after repeated extraction failures")
			continue
		}
		seen.Add(msg.ID)
		pending = append(pending, msg)
	}
	return pending
}

// extractAll calls the extractor for every pending message with at most
// Concurrency calls in flight. A failure is kept in its outcome slot and never
// cancels the other calls.
func (l *Loop) extractAll(ctx context.Context, log zerolog.Logger, pending []types.Message) []outcome {
	outcomes := make([]outcome, len(pending))
	var g errgroup.Group
	g.SetLimit(l.opts.Concurrency)
	for i, msg := range pending {
		g.Go(func() error {
			log.Info().Str("message_id", msg.ID).Str("subject", msg.Subject).Msg("processing message")
			outcomes[i] = l.extractOne(ctx, msg)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (l *Loop) extractOne(ctx context.Context, msg types.Message) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: fmt.Errorf("extractor panicked: %v", r)}
		}
	}()
	items, err := l.extractor.Extract(ctx, msg.Body, msg.Attachments)
	return outcome{items: items, err: err}
}

// Run loads the processed set once and then runs cycles forever, sleeping the
// configured interval after each one. Cycle errors are logged, never returned.
// Run returns when ctx is cancelled, or with an error if the initial load fails.
func (l *Loop) Run(ctx context.Context) error {
	processed, err := l.store.Load(ctx)
	if err != nil {
		return &StoreError{Op: "load", Cause: err}
	}
	l.logger.Info().Int("processed", len(processed)).Msg("loaded processed ids")

	for {
		if ctx.Err() != nil {
			return nil
		}
		l.safeRunOnce(ctx, processed)

		l.logger.Info().Dur("interval", l.opts.Interval).Msg("sleeping before next run")
		if err := l.sleep(ctx, l.opts.Interval); err != nil {
			l.logger.Info().Msg("stopping ingestion loop")
			return nil
		}
	}
}

func (l *Loop) safeRunOnce(ctx context.Context, processed types.IDSet) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("pipeline cycle panicked")
		}
	}()
	if _, err := l.RunOnce(ctx, processed); err != nil {
		l.logger.Error().Err(err).Msg("pipeline cycle failed")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
