package simulation

import (
	"context"
	"testing"
	"time"
)

func TestWorker_LastRequestWins(t *testing.T) {
	w := NewWorker(seededEngine())
	defer w.Close()

	// Far too large to finish before the second request supersedes it.
	slow := w.Submit(Request{Kind: KindHowMany, Window: []int{1, 2}, Days: 10000, NumSimulations: 1_000_000})
	fast := w.Submit(Request{Kind: KindWhen, Window: []int{5}, TargetCount: 10, NumSimulations: 100, Revision: 7})

	select {
	case resp := <-w.Results():
		if resp.ID == slow {
			t.Fatalf("Superseded request published a result")
		}
		if resp.ID != fast {
			t.Fatalf("Unexpected response id %s", resp.ID)
		}
		if resp.Err != nil || resp.When == nil {
			t.Fatalf("Expected a when result, got %+v", resp)
		}
		if resp.Revision != 7 || *resp.When.Percentiles.P50 != 2 {
			t.Errorf("Unexpected response %+v", resp)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Timed out waiting for the latest result")
	}

	select {
	case resp := <-w.Results():
		t.Errorf("Expected a single response, got another for %s", resp.ID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWorker_CopyOnSend(t *testing.T) {
	w := NewWorker(seededEngine())
	defer w.Close()

	window := []int{5}
	w.Submit(Request{Kind: KindWhen, Window: window, TargetCount: 10, NumSimulations: 100})
	window[0] = 0 // mutating after send must not leak into the run

	select {
	case resp := <-w.Results():
		if resp.When == nil || resp.When.Blocked() || *resp.When.Percentiles.P95 != 2 {
			t.Errorf("Simulation saw the caller's later mutation: %+v", resp.When)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Timed out")
	}
}

func TestWorker_RunSyncFallback(t *testing.T) {
	w := NewWorker(seededEngine())
	defer w.Close()

	resp := w.RunSync(context.Background(), Request{
		Kind:           KindHowMany,
		Window:         []int{2},
		Full:           []int{1, 1, 1, 1, 1},
		MinSamples:     5,
		Days:           3,
		NumSimulations: 100,
		Revision:       4,
		Sequence:       9,
	})
	if resp.Err != nil || resp.HowMany == nil {
		t.Fatalf("Unexpected response %+v", resp)
	}
	if resp.Revision != 4 || resp.Sequence != 9 {
		t.Errorf("Response must echo revision and sequence, got %d/%d", resp.Revision, resp.Sequence)
	}
	if !resp.HowMany.FallbackUsed {
		t.Errorf("Expected the fallback flag")
	}
	if *resp.HowMany.Percentiles.P50 != 3 {
		t.Errorf("Expected 3 items from the full history, got %d", *resp.HowMany.Percentiles.P50)
	}

	if bad := w.RunSync(context.Background(), Request{Kind: "other"}); bad.Err != ErrUnknownKind {
		t.Errorf("Expected ErrUnknownKind, got %v", bad.Err)
	}
}

func TestWorker_SubmitAfterClose(t *testing.T) {
	w := NewWorker(seededEngine())
	w.Close()
	if id := w.Submit(Request{Kind: KindHowMany}); id.String() != "00000000-0000-0000-0000-000000000000" {
		t.Errorf("Expected nil id after close, got %s", id)
	}
	if _, ok := <-w.Results(); ok {
		t.Errorf("Results channel should be closed")
	}
}
