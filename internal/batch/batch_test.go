package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("target-%d", i)
	}
	return out
}

func TestRun_ChunkingAndFlushCadence(t *testing.T) {
	var flushes []Summary
	flush := func(ctx context.Context, chunk Summary) error {
		flushes = append(flushes, chunk)
		return nil
	}

	summary := Run(context.Background(), ids(120), 50, func(ctx context.Context, id string) error {
		return nil
	}, flush)

	if summary.Succeeded != 120 || summary.Failed != 0 {
		t.Errorf("expected 120/0, got %d/%d", summary.Succeeded, summary.Failed)
	}
	if len(flushes) != 3 {
		t.Fatalf("expected 3 chunk flushes for 120 items at chunk size 50, got %d", len(flushes))
	}
	if flushes[0].Succeeded != 50 || flushes[1].Succeeded != 50 || flushes[2].Succeeded != 20 {
		t.Errorf("unexpected chunk sizes: %+v", flushes)
	}
}

func TestRun_ItemFailureDoesNotAbortSiblings(t *testing.T) {
	summary := Run(context.Background(), ids(5), 50, func(ctx context.Context, id string) error {
		if id == "target-2" {
			return errors.New("provider timeout")
		}
		return nil
	}, nil)

	if summary.Succeeded != 4 || summary.Failed != 1 {
		t.Errorf("expected 4/1, got %d/%d", summary.Succeeded, summary.Failed)
	}
	if len(summary.Outcomes) != 5 {
		t.Fatalf("expected an outcome per target, got %d", len(summary.Outcomes))
	}
	failed := summary.Errors()
	if len(failed) != 1 {
		t.Fatalf("expected one recorded error, got %d", len(failed))
	}
	if failed[0].TargetID != "target-2" {
		t.Errorf("error must carry the target identifier, got %q", failed[0].TargetID)
	}
	if failed[0].Message != "provider timeout" {
		t.Errorf("error must carry the failure reason, got %q", failed[0].Message)
	}
}

func TestRun_FlushErrorDoesNotAbortBatch(t *testing.T) {
	flush := func(ctx context.Context, chunk Summary) error {
		return errors.New("job store unavailable")
	}

	summary := Run(context.Background(), ids(4), 2, func(ctx context.Context, id string) error {
		return nil
	}, flush)

	if summary.Succeeded != 4 {
		t.Errorf("expected all items processed despite flush errors, got %d", summary.Succeeded)
	}
}

func TestRun_CancelledContextFailsRemainingItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	processed := 0
	summary := Run(ctx, ids(10), 50, func(ctx context.Context, id string) error {
		processed++
		if processed == 3 {
			cancel()
		}
		return nil
	}, nil)

	if processed != 3 {
		t.Errorf("expected processing to stop after cancellation, processed %d", processed)
	}
	if summary.Succeeded != 3 || summary.Failed != 7 {
		t.Errorf("counters must still cover every target: got %d/%d", summary.Succeeded, summary.Failed)
	}
}

func TestRun_DefaultChunkSize(t *testing.T) {
	flushes := 0
	Run(context.Background(), ids(60), 0, func(ctx context.Context, id string) error {
		return nil
	}, func(ctx context.Context, chunk Summary) error {
		flushes++
		return nil
	})
	if flushes != 2 {
		t.Errorf("expected default chunk size 50 to yield 2 flushes for 60 items, got %d", flushes)
	}
}
