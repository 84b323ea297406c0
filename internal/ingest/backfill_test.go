package ingest

import "testing"

func TestBackfillFailureErrorIfUnboundedRequiresBound(t *testing.T) {
	summary := BackfillSummary{IssuesRemaining: 2}
	if err := BackfillFailureErrorIfUnbounded(summary, nil); err == nil {
		t.Fatal("expected error when max-missing-hours is unset and issues remain")
	}

	bound := 5
	if err := BackfillFailureErrorIfUnbounded(summary, &bound); err != nil {
		t.Fatalf("expected success when max-missing-hours is set, got %v", err)
	}
}

func TestBackfillFailureErrorIfUnboundedNoIssues(t *testing.T) {
	summary := BackfillSummary{IssuesRemaining: 0}
	if err := BackfillFailureErrorIfUnbounded(summary, nil); err != nil {
		t.Fatalf("expected success with zero issues remaining, got %v", err)
	}
}
