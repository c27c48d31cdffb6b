package ingest

import "fmt"

// FetchError represents a failure listing or reading mailbox messages
type FetchError struct {
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed: %v", e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// SinkError represents a failed batch append. No id of the cycle was credited.
type SinkError struct {
	Items int
	Cause error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink append of %d items failed: %v", e.Items, e.Cause)
}

func (e *SinkError) Unwrap() error {
	return e.Cause
}

// StoreError represents a failure loading or saving processed ids
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("processed store %s failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
