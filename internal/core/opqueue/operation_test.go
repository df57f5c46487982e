package opqueue

import (
	"context"
	"testing"
	"time"

	"timeline/internal/platform/testkit"
)

func TestBase_ZeroValueIsPending(t *testing.T) {
	var b BlockOperation
	if b.State() != Pending || b.IsCancelled() {
		t.Fatalf("zero op = %s cancelled=%v", b.State(), b.IsCancelled())
	}
	select {
	case <-b.Done():
		t.Fatalf("Done closed before finish")
	default:
	}
}

func TestBase_CancelPendingFinishesImmediately(t *testing.T) {
	ran := false
	op := NewBlock(func(context.Context) { ran = true })
	op.Cancel()
	op.Cancel()

	testkit.WaitClosed(t, op.Done(), time.Second, "cancelled op done")
	if op.State() != Finished || !op.IsCancelled() {
		t.Fatalf("state=%s cancelled=%v", op.State(), op.IsCancelled())
	}
	op.Start(context.Background())
	if ran {
		t.Fatalf("cancelled op must not run its body")
	}
}

func TestBase_CancelExecutingOnlyFlags(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	op := NewBlock(func(context.Context) {
		close(entered)
		<-release
	})
	go op.Start(context.Background())
	<-entered

	op.Cancel()
	if op.State() != Executing || !op.IsCancelled() {
		t.Fatalf("state=%s cancelled=%v", op.State(), op.IsCancelled())
	}
	close(release)
	testkit.WaitClosed(t, op.Done(), time.Second, "executing op done")
	if op.State() != Finished {
		t.Fatalf("state=%s", op.State())
	}
}

func TestBase_DependenciesCopy(t *testing.T) {
	a, b := NewBlock(nil), NewBlock(nil)
	b.AddDependency(a)
	b.AddDependency(nil)

	deps := b.Dependencies()
	if len(deps) != 1 || deps[0] != Operation(a) {
		t.Fatalf("deps = %v", deps)
	}
	deps[0] = nil
	if b.Dependencies()[0] == nil {
		t.Fatalf("Dependencies must return a copy")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Pending: "pending", Executing: "executing", Finished: "finished", State(9): "unknown"} {
		if s.String() != want {
			t.Fatalf("%d.String() = %q", s, s.String())
		}
	}
}
