package usecase

import (
	"testing"

	"github.com/fleetyard/regsync/internal/core/domain"
)

func TestStatusMapperKnownStatuses(t *testing.T) {
	mapper, err := NewStatusMapper()
	if err != nil {
		t.Fatalf("NewStatusMapper() error = %v", err)
	}

	tests := []struct {
		remote string
		want   domain.DocumentStatus
	}{
		{"validato", domain.DocStatusAccepted},
		{"accettato", domain.DocStatusAccepted},
		{"scartato", domain.DocStatusRejected},
		{"annullato", domain.DocStatusCancelled},
		{"in_lavorazione", domain.DocStatusSubmitted},
		{"sospeso", domain.DocStatusNeedsReview},
	}
	for _, tc := range tests {
		got, ok := mapper.Map(tc.remote)
		if !ok {
			t.Fatalf("Map(%q) not in table", tc.remote)
		}
		if got != tc.want {
			t.Fatalf("Map(%q) = %s, want %s", tc.remote, got, tc.want)
		}
	}
}

func TestStatusMapperNormalizesInput(t *testing.T) {
	mapper, err := NewStatusMapper()
	if err != nil {
		t.Fatalf("NewStatusMapper() error = %v", err)
	}
	got, ok := mapper.Map("  VALIDATO ")
	if !ok || got != domain.DocStatusAccepted {
		t.Fatalf("Map with whitespace/case = %s ok=%v", got, ok)
	}
}

func TestStatusMapperUnknownFallsBackToNeedsReview(t *testing.T) {
	mapper, err := NewStatusMapper()
	if err != nil {
		t.Fatalf("NewStatusMapper() error = %v", err)
	}
	got, ok := mapper.Map("stato_misterioso")
	if ok {
		t.Fatalf("unknown status reported as known")
	}
	if got != domain.DocStatusNeedsReview {
		t.Fatalf("fallback = %s, want needs_review", got)
	}
}

func TestParseStatusMapRejectsUnknownLocalStatus(t *testing.T) {
	raw := []byte("statuses:\n  validato: approved_totally\n")
	if _, err := parseStatusMap(raw); err == nil {
		t.Fatalf("expected error for unknown local status")
	}
}

func TestParseStatusMapRejectsEmptyTable(t *testing.T) {
	if _, err := parseStatusMap([]byte("statuses: {}\n")); err == nil {
		t.Fatalf("expected error for empty table")
	}
}
