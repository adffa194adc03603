package cron

import (
	"context"
	"testing"
)

type namedJob struct{ name string }

func (j namedJob) Name() string                  { return j.name }
func (j namedJob) Run(ctx context.Context) error { return nil }

func TestRegistryPreservesOrderAndSkipsNil(t *testing.T) {
	registry := NewRegistry(namedJob{name: "first"}, nil, namedJob{name: "second"})
	registry.Register(namedJob{name: "third"})
	registry.Register(nil)

	jobs := registry.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("want 3 jobs, got %d", len(jobs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if jobs[i].Name() != want {
			t.Fatalf("job %d: want %q, got %q", i, want, jobs[i].Name())
		}
	}
}
