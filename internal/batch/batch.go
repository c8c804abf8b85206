// Package batch drives multi-item tasks: it splits a unit of work into
// fixed-size chunks, isolates per-item failures, and aggregates a summary
// the job record can report against. The owning job is updated once per
// chunk, not once per item, to bound write amplification.
package batch

import "context"

// DefaultChunkSize bounds memory use and external-API request size.
const DefaultChunkSize = 50

// ItemOutcome records the terminal outcome of one item.
type ItemOutcome struct {
	TargetID string `json:"target_id"`
	OK       bool   `json:"ok"`
	Message  string `json:"message,omitempty"`
}

// Summary aggregates per-item outcomes across a batch run.
type Summary struct {
	Succeeded int
	Failed    int
	Outcomes  []ItemOutcome
}

// Merge folds another summary into s.
func (s *Summary) Merge(other Summary) {
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Outcomes = append(s.Outcomes, other.Outcomes...)
}

// Errors returns the failed outcomes only.
func (s *Summary) Errors() []ItemOutcome {
	var out []ItemOutcome
	for _, o := range s.Outcomes {
		if !o.OK {
			out = append(out, o)
		}
	}
	return out
}

func (s *Summary) record(id string, err error) {
	if err != nil {
		s.Failed++
		s.Outcomes = append(s.Outcomes, ItemOutcome{TargetID: id, OK: false, Message: err.Error()})
		return
	}
	s.Succeeded++
	s.Outcomes = append(s.Outcomes, ItemOutcome{TargetID: id, OK: true})
}

// ItemFunc processes a single target. A non-nil error marks the item
// failed; it never aborts sibling items.
type ItemFunc func(ctx context.Context, targetID string) error

// FlushFunc receives the delta summary of one completed chunk, typically
// to fold progress into the job record. A flush error is not fatal to the
// batch; the run continues and the caller sees the full summary at the end.
type FlushFunc func(ctx context.Context, chunk Summary) error

// Run processes items sequentially in chunks of chunkSize. Items within a
// chunk are independent: one item's failure never aborts its siblings. The
// context is only consulted between items, so an in-flight item always
// reaches a terminal outcome.
func Run(ctx context.Context, targetIDs []string, chunkSize int, fn ItemFunc, flush FlushFunc) Summary {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var total Summary
	for start := 0; start < len(targetIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(targetIDs) {
			end = len(targetIDs)
		}

		var chunk Summary
		for _, id := range targetIDs[start:end] {
			if err := ctx.Err(); err != nil {
				// Remaining items in the batch are recorded as
				// failed so counters still reconcile with the
				// target count.
				chunk.record(id, &cancelledError{cause: err})
				continue
			}

			chunk.record(id, fn(ctx, id))
		}

		total.Merge(chunk)
		if flush != nil {
			_ = flush(ctx, chunk)
		}
	}

	return total
}

type cancelledError struct{ cause error }

func (e *cancelledError) Error() string { return "batch cancelled: " + e.cause.Error() }
func (e *cancelledError) Unwrap() error { return e.cause }
