package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avolkov/pmo-budget/internal/jobs"
)

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan string, 1)
	handler := func(ctx context.Context, job jobs.Job) error {
		done <- job.GetID()
		return nil
	}

	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer q.Close()

	job := &jobs.GenerateReportJob{ProjectID: "p1", BasisKey: "approval"}
	if err := q.PublishGenerateReport(ctx, job); err != nil {
		t.Fatalf("PublishGenerateReport failed: %v", err)
	}

	if job.JobID == "" {
		t.Fatal("publish must assign a job id")
	}
	if job.Status != jobs.JobStatusPending && job.Status != jobs.JobStatusRunning && job.Status != jobs.JobStatusCompleted {
		t.Errorf("unexpected status after publish: %s", job.Status)
	}

	select {
	case id := <-done:
		if id != job.JobID {
			t.Errorf("handler saw job %s, want %s", id, job.JobID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	// The store eventually records completion.
	deadline := time.Now().Add(2 * time.Second)
	for {
		saved, err := store.GetJob(ctx, job.JobID)
		if err == nil && saved.Status == jobs.JobStatusCompleted {
			if saved.CompletedAt == nil {
				t.Error("completed job must carry a completion timestamp")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never reached completed status, last state: %+v, err: %v", saved, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := make(chan struct{}, 10)
	handler := func(ctx context.Context, job jobs.Job) error {
		attempts <- struct{}{}
		return errors.New("model unavailable")
	}

	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer q.Close()

	job := &jobs.GenerateReportJob{ProjectID: "p1", MaxRetries: 1}
	if err := q.PublishGenerateReport(ctx, job); err != nil {
		t.Fatalf("PublishGenerateReport failed: %v", err)
	}

	// Initial attempt plus one retry after backoff.
	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-time.After(5 * time.Second):
			t.Fatalf("attempt %d never happened", i+1)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		saved, err := store.GetJob(ctx, job.JobID)
		if err == nil && saved.Status == jobs.JobStatusFailed {
			if saved.Error == "" {
				t.Error("failed job must record the error")
			}
			if saved.RetryCount != 1 {
				t.Errorf("RetryCount = %d, want 1", saved.RetryCount)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never reached failed status, last state: %+v, err: %v", saved, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestQueueRejectsPublishAfterClose(t *testing.T) {
	q := NewQueue(1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := q.PublishGenerateReport(context.Background(), &jobs.GenerateReportJob{ProjectID: "p1"})
	if err == nil {
		t.Error("publish on a closed queue must fail")
	}
}

func TestStoreFiltering(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	seed := []*jobs.GenerateReportJob{
		{JobID: "j1", ProjectID: "p1", Status: jobs.JobStatusCompleted},
		{JobID: "j2", ProjectID: "p1", Status: jobs.JobStatusFailed},
		{JobID: "j3", ProjectID: "p2", Status: jobs.JobStatusCompleted},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob(%s) failed: %v", j.JobID, err)
		}
	}

	byProject, err := store.ListJobs(ctx, jobs.JobFilter{ProjectID: "p1"})
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(byProject) != 2 {
		t.Errorf("jobs for p1 = %d, want 2", len(byProject))
	}

	byStatus, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].JobID != "j2" {
		t.Errorf("failed jobs = %+v, want only j2", byStatus)
	}

	if err := store.SaveJob(ctx, &jobs.GenerateReportJob{}); err == nil {
		t.Error("saving a job without an id must fail")
	}
}
