package docs_test

import (
	"testing"

	"github.com/robypag/scentsmith/pkg/docs"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to docs.Status }{
		{docs.StatusPending, docs.StatusProcessing},
		{docs.StatusProcessing, docs.StatusProcessing},
		{docs.StatusProcessing, docs.StatusReady},
		{docs.StatusProcessing, docs.StatusFailed},
		// A broker retry of a failed job re-enters the pipeline.
		{docs.StatusFailed, docs.StatusProcessing},
	}
	for _, tc := range allowed {
		if !docs.CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s→%s to be legal", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to docs.Status }{
		{docs.StatusPending, docs.StatusReady},
		{docs.StatusPending, docs.StatusFailed},
		{docs.StatusReady, docs.StatusProcessing},
		{docs.StatusReady, docs.StatusFailed},
		{docs.StatusFailed, docs.StatusReady},
		{docs.StatusProcessing, docs.StatusPending},
	}
	for _, tc := range forbidden {
		if docs.CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s→%s to be illegal", tc.from, tc.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if docs.StatusPending.Terminal() || docs.StatusProcessing.Terminal() {
		t.Fatal("pending and processing are not terminal")
	}
	if !docs.StatusReady.Terminal() || !docs.StatusFailed.Terminal() {
		t.Fatal("ready and failed are terminal")
	}
}
