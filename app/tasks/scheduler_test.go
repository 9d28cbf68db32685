package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/roboticshub/newsfeed/app/ingest"
)

// MockRunner counts sweep invocations
type MockRunner struct {
	mu   sync.Mutex
	runs int
}

func (m *MockRunner) Run(ctx context.Context) ([]ingest.SourceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	return []ingest.SourceResult{{SourceID: 1, Items: 2}}, nil
}

func (m *MockRunner) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

func TestSchedulerRunsImmediatelyThenTicks(t *testing.T) {
	runner := &MockRunner{}
	scheduler := NewScheduler(runner, 20*time.Millisecond)

	scheduler.Start()

	deadline := time.Now().Add(2 * time.Second)
	for runner.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	scheduler.Stop()

	if got := runner.count(); got < 2 {
		t.Errorf("Expected at least 2 sweeps (startup plus tick), got: %d", got)
	}
}

func TestSchedulerDisabledWithZeroInterval(t *testing.T) {
	runner := &MockRunner{}
	scheduler := NewScheduler(runner, 0)

	scheduler.Start()
	time.Sleep(30 * time.Millisecond)
	scheduler.Stop()

	if got := runner.count(); got != 0 {
		t.Errorf("Expected no sweeps with disabled scheduler, got: %d", got)
	}
}

func TestSchedulerStopIsIdempotentAcrossStartlessStop(t *testing.T) {
	scheduler := NewScheduler(&MockRunner{}, time.Hour)

	// Stopping without a started loop must not hang
	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a running loop")
	}
}
