package jobs

import (
	"errors"
	"testing"

	"github.com/tlvu/thunderbird/internal/domain"
)

// TestStartRejectsSecondActiveJob ensures single-job discipline.
func TestStartRejectsSecondActiveJob(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := m.Start("job-2"); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("second Start() error = %v, want ErrJobAlreadyRunning", err)
	}
}

// TestProcessingLifecycle walks the full non-dry-run state sequence.
func TestProcessingLifecycle(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for _, status := range []domain.JobStatus{
		domain.JobStatusProcessing,
		domain.JobStatusCollecting,
		domain.JobStatusDone,
	} {
		if err := m.Transition(status); err != nil {
			t.Fatalf("Transition(%s) error = %v", status, err)
		}
	}

	if m.IsRunning() {
		t.Fatal("done job must not report running")
	}
	if got := m.Current().Status; got != domain.JobStatusDone {
		t.Fatalf("status = %s, want done", got)
	}
}

// TestDryRunSkipsProcessing allows opening -> done directly.
func TestDryRunSkipsProcessing(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Transition(domain.JobStatusDone); err != nil {
		t.Fatalf("Transition(done) error = %v", err)
	}
}

// TestEmptyMatchSkipsProcessing allows opening -> collecting directly.
func TestEmptyMatchSkipsProcessing(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Transition(domain.JobStatusCollecting); err != nil {
		t.Fatalf("Transition(collecting) error = %v", err)
	}
}

// TestInvalidTransitionRejected checks illegal edges fail.
func TestInvalidTransitionRejected(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Transition(domain.JobStatusProcessing); err != nil {
		t.Fatalf("Transition(processing) error = %v", err)
	}

	if err := m.Transition(domain.JobStatusDone); err == nil {
		t.Fatal("processing -> done must be rejected")
	}
}

// TestFailRecordsError checks failure state and message capture.
func TestFailRecordsError(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	m.Fail("generate_climos failed (exit=2)")

	job := m.Current()
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.Error == "" {
		t.Fatal("expected error message on failed job")
	}

	// A new request may start after failure.
	if err := m.Start("job-2"); err != nil {
		t.Fatalf("Start() after failure error = %v", err)
	}
}

// TestResetReturnsToIdle checks reset clears job identity.
func TestResetReturnsToIdle(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	m.Reset()

	job := m.Current()
	if job.ID != "" || job.Status != domain.JobStatusIdle {
		t.Fatalf("job = %+v, want idle with empty ID", job)
	}
}
