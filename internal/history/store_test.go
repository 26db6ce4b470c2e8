package history

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppendAndList(t *testing.T) {
	store := NewStore(t.TempDir())

	events := []Event{
		{Type: "job_submitted", JobID: "job-1"},
		{Type: "track_completed", JobID: "job-1", Status: "completed"},
		{Type: "job_submitted", JobID: "job-2"},
	}
	for _, ev := range events {
		if err := store.Append(ev); err != nil {
			t.Fatalf("unexpected append error: %v", err)
		}
	}

	listed, err := store.List(10, "", "")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 events, got %d", len(listed))
	}

	// Newest first.
	if listed[0].JobID != "job-2" {
		t.Errorf("expected the newest event first, got %+v", listed[0])
	}

	// Appended events get an ID and a timestamp.
	for _, ev := range listed {
		if ev.ID == "" {
			t.Errorf("expected a generated ID on %+v", ev)
		}
		if ev.Timestamp == "" {
			t.Errorf("expected a generated timestamp on %+v", ev)
		}
	}
}

func TestListFilters(t *testing.T) {
	store := NewStore(t.TempDir())

	seed := []Event{
		{Type: "track_completed", JobID: "job-1", Status: "completed"},
		{Type: "track_completed", JobID: "job-1", Status: "failed"},
		{Type: "track_completed", JobID: "job-2", Status: "completed"},
	}
	for _, ev := range seed {
		if err := store.Append(ev); err != nil {
			t.Fatal(err)
		}
	}

	byJob, err := store.List(10, "job-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(byJob) != 2 {
		t.Errorf("expected 2 events for job-1, got %d", len(byJob))
	}

	byStatus, err := store.List(10, "", "COMPLETED")
	if err != nil {
		t.Fatal(err)
	}
	if len(byStatus) != 2 {
		t.Errorf("expected 2 completed events (case-insensitive), got %d", len(byStatus))
	}

	both, err := store.List(10, "job-2", "completed")
	if err != nil {
		t.Fatal(err)
	}
	if len(both) != 1 {
		t.Errorf("expected 1 event, got %d", len(both))
	}
}

func TestListLimit(t *testing.T) {
	store := NewStore(t.TempDir())
	for i := 0; i < 5; i++ {
		if err := store.Append(Event{Type: "job_submitted"}); err != nil {
			t.Fatal(err)
		}
	}

	listed, err := store.List(2, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 2 {
		t.Errorf("expected the limit to apply, got %d events", len(listed))
	}
}

func TestListMissingFile(t *testing.T) {
	store := NewStore(t.TempDir())
	listed, err := store.List(10, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("expected no events, got %d", len(listed))
	}
}

func TestListSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Append(Event{Type: "job_submitted", JobID: "job-1"}); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "history.jsonl"), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("not json at all\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := store.Append(Event{Type: "job_submitted", JobID: "job-2"}); err != nil {
		t.Fatal(err)
	}

	listed, err := store.List(10, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 2 {
		t.Errorf("expected corrupt lines to be skipped, got %d events", len(listed))
	}
}
