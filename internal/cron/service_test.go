package cron

import (
	"context"
	"testing"
)

type stubLock struct {
	locked   bool
	acquires int
	releases int
}

func (s *stubLock) Acquire(ctx context.Context) (bool, error) {
	s.acquires++
	return s.locked, nil
}

func (s *stubLock) Release(ctx context.Context) error {
	s.releases++
	return nil
}

type countingJob struct {
	runs int
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	return nil
}

func TestRunCycleExecutesJobsUnderLock(t *testing.T) {
	lock := &stubLock{locked: true}
	job := &countingJob{}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle failed: %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("job runs: want 1, got %d", job.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("lock releases: want 1, got %d", lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	lock := &stubLock{locked: false}
	job := &countingJob{}
	svc, _ := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle failed: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("jobs must not run without the lock")
	}
	if lock.releases != 0 {
		t.Fatal("an unheld lock must not be released")
	}
}
