package simd

import (
	"errors"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/improvement"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

func TestRunStoreCreateAndGet(t *testing.T) {
	store := NewRunStore()

	rec, err := store.Create("", &SearchRequest{}, "grid", "figure_of_merit", 12)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if rec.Run.ID == "" {
		t.Fatalf("expected generated run id")
	}
	if !strings.HasPrefix(rec.Run.ID, "search-") {
		t.Fatalf("expected search- prefix, got %q", rec.Run.ID)
	}
	if rec.Run.Status != RunStatusPending {
		t.Fatalf("expected status pending, got %v", rec.Run.Status)
	}
	if rec.Run.CreatedAtUnixMs == 0 {
		t.Fatalf("expected created_at_unix_ms to be set")
	}
	if rec.Run.Total != 12 || rec.Run.Strategy != "grid" {
		t.Fatalf("unexpected run fields: %+v", rec.Run)
	}

	got, ok := store.Get(rec.Run.ID)
	if !ok {
		t.Fatalf("expected run to exist")
	}
	if got.Run.ID != rec.Run.ID {
		t.Fatalf("expected same run id")
	}
}

func TestRunStoreCreateDuplicate(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", nil, "list", "figure_of_merit", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := store.Create("run-1", nil, "list", "figure_of_merit", 1)
	if !errors.Is(err, ErrRunExists) {
		t.Fatalf("expected ErrRunExists, got %v", err)
	}
}

func TestRunStoreCreateRejectsReservedCharacters(t *testing.T) {
	store := NewRunStore()
	for _, id := range []string{"a/b", "run:stop"} {
		if _, err := store.Create(id, nil, "list", "figure_of_merit", 1); err == nil {
			t.Fatalf("expected error for id %q", id)
		}
	}
}

func TestRunStoreSetStatusSetsTimestamps(t *testing.T) {
	store := NewRunStore()
	rec, err := store.Create("run-1", nil, "list", "figure_of_merit", 1)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if rec.Run.StartedAtUnixMs != 0 || rec.Run.EndedAtUnixMs != 0 {
		t.Fatalf("expected timestamps not set initially")
	}

	rec, err = store.SetStatus("run-1", RunStatusRunning, "")
	if err != nil {
		t.Fatalf("SetStatus running error: %v", err)
	}
	if rec.Run.StartedAtUnixMs == 0 {
		t.Fatalf("expected started_at_unix_ms to be set")
	}

	rec, err = store.SetStatus("run-1", RunStatusFailed, "boom")
	if err != nil {
		t.Fatalf("SetStatus failed error: %v", err)
	}
	if rec.Run.EndedAtUnixMs == 0 {
		t.Fatalf("expected ended_at_unix_ms to be set")
	}
	if rec.Run.Error != "boom" {
		t.Fatalf("expected error message, got %q", rec.Run.Error)
	}
}

func TestRunStoreTerminalStatusIsFinal(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", nil, "list", "figure_of_merit", 1); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := store.SetStatus("run-1", RunStatusCancelled, ""); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if _, err := store.SetStatus("run-1", RunStatusCompleted, ""); !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal, got %v", err)
	}
	if _, err := store.SetStatus("run-1", RunStatusCancelled, ""); err != nil {
		t.Fatalf("repeating the terminal status should succeed, got %v", err)
	}
	if _, err := store.SetStatus("missing", RunStatusRunning, ""); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunStoreGetReturnsSnapshot(t *testing.T) {
	store := NewRunStore()
	rec, err := store.Create("run-1", nil, "list", "figure_of_merit", 1)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	rec.Run.Status = RunStatusCompleted

	got, _ := store.Get("run-1")
	if got.Run.Status != RunStatusPending {
		t.Fatalf("mutating a returned record must not change the store, got %v", got.Run.Status)
	}
}

func TestRunStoreListNewestFirst(t *testing.T) {
	store := NewRunStore()
	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if _, err := store.Create(id, nil, "list", "figure_of_merit", 1); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	if _, err := store.SetStatus("run-b", RunStatusRunning, ""); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}

	tests := []struct {
		name   string
		limit  int
		offset int
		status RunStatus
		want   []string
	}{
		{"all", 0, 0, "", []string{"run-c", "run-b", "run-a"}},
		{"limit", 2, 0, "", []string{"run-c", "run-b"}},
		{"offset", 10, 1, "", []string{"run-b", "run-a"}},
		{"status filter", 10, 0, RunStatusPending, []string{"run-c", "run-a"}},
		{"offset past end", 10, 5, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.List(tt.limit, tt.offset, tt.status)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d runs, got %d", len(tt.want), len(got))
			}
			for i, rec := range got {
				if rec.Run.ID != tt.want[i] {
					t.Fatalf("position %d: expected %s, got %s", i, tt.want[i], rec.Run.ID)
				}
			}
		})
	}
}

func TestRunStoreProgressAndResult(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", nil, "list", "figure_of_merit", 3); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := store.SetProgress("run-1", 2, 3); err != nil {
		t.Fatalf("SetProgress error: %v", err)
	}
	got, _ := store.Get("run-1")
	if got.Run.Done != 2 {
		t.Fatalf("expected done 2, got %d", got.Run.Done)
	}

	result := &improvement.SearchResult{Records: make([]models.ScoreRecord, 3)}
	if err := store.SetResult("run-1", result); err != nil {
		t.Fatalf("SetResult error: %v", err)
	}
	got, _ = store.Get("run-1")
	if got.Result != result || got.Run.Done != 3 {
		t.Fatalf("expected result stored with done 3, got %+v", got.Run)
	}

	if err := store.SetProgress("missing", 1, 1); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := store.SetResult("missing", result); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestParseRunStatus(t *testing.T) {
	tests := map[string]RunStatus{
		"running":    RunStatusRunning,
		" Completed": RunStatusCompleted,
		"CANCELLED":  RunStatusCancelled,
		"bogus":      "",
		"":           "",
	}
	for in, want := range tests {
		if got := ParseRunStatus(in); got != want {
			t.Fatalf("ParseRunStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
