package inmemory

import (
	"context"
	"testing"

	"github.com/dkraev/fintrack/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := testJob()
	job.JobID = "job-1"
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("Expected job, got %v", err)
	}
	if got.DocumentID != "doc-1" {
		t.Errorf("Expected document doc-1, got %s", got.DocumentID)
	}

	// The store hands out copies; mutating them must not affect stored state.
	got.Status = jobs.JobStatusFailed
	again, _ := store.GetJob(ctx, "job-1")
	if again.Status == jobs.JobStatusFailed {
		t.Error("Expected stored job to be isolated from returned copies")
	}
}

func TestStore_SaveRequiresID(t *testing.T) {
	store := NewStore()

	if err := store.SaveJob(context.Background(), testJob()); err == nil {
		t.Fatal("Expected an error for a job without an id")
	}
}

func TestStore_GetUnknownJob(t *testing.T) {
	store := NewStore()

	if _, err := store.GetJob(context.Background(), "ghost"); err == nil {
		t.Fatal("Expected an error for an unknown job id")
	}
}

func TestStore_ListJobs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i, doc := range []string{"doc-1", "doc-1", "doc-2"} {
		job := testJob()
		job.JobID = string(rune('a' + i))
		job.DocumentID = doc
		job.Status = jobs.JobStatusPending
		if i == 2 {
			job.Status = jobs.JobStatusCompleted
		}
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("Expected save to succeed, got %v", err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   int
	}{
		{"no filter", jobs.JobFilter{}, 3},
		{"by document", jobs.JobFilter{DocumentID: "doc-1"}, 2},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, 1},
		{"no matches", jobs.JobFilter{DocumentID: "doc-9"}, 0},
		{"limit", jobs.JobFilter{Limit: 2}, 2},
		{"offset past end", jobs.JobFilter{Offset: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Expected list to succeed, got %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Expected %d jobs, got %d", tt.want, len(got))
			}
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := testJob()
	job.JobID = "job-1"
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	if err := store.UpdateJobStatus(ctx, "job-1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("Expected update to succeed, got %v", err)
	}

	got, _ := store.GetJob(ctx, "job-1")
	if got.Status != jobs.JobStatusFailed {
		t.Errorf("Expected status failed, got %s", got.Status)
	}
	if got.Error != "boom" {
		t.Errorf("Expected error message recorded, got %q", got.Error)
	}

	if err := store.UpdateJobStatus(ctx, "ghost", jobs.JobStatusFailed, ""); err == nil {
		t.Fatal("Expected an error for an unknown job id")
	}
}
