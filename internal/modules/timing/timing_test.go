package timing

import (
	"context"
	"testing"
	"time"

	"hostbridge/internal/modkit"
	perr "hostbridge/internal/platform/errors"
)

func newTestModule(t *testing.T) (*Module, *time.Time) {
	t.Helper()
	m := New(modkit.Deps{})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestCreateTimer_FiresAtBatchBoundary(t *testing.T) {
	t.Parallel()

	m, now := newTestModule(t)
	var fired []Fire
	m.OnFire = func(fs []Fire) { fired = append(fired, fs...) }

	if err := m.createTimer(context.Background(), []any{float64(1), float64(50)}); err != nil {
		t.Fatalf("createTimer = %v", err)
	}

	// not due yet
	m.OnBatchComplete()
	if len(fired) != 0 {
		t.Fatalf("timer fired before due: %v", fired)
	}

	*now = now.Add(60 * time.Millisecond)
	m.OnBatchComplete()
	if len(fired) != 1 || fired[0].ID != 1 {
		t.Fatalf("fires = %v, want single fire of timer 1", fired)
	}
	if m.Pending() != 0 {
		t.Fatalf("one-shot timer still pending after fire")
	}
}

func TestCreateTimer_RepeatingReschedules(t *testing.T) {
	t.Parallel()

	m, now := newTestModule(t)
	count := 0
	m.OnFire = func(fs []Fire) { count += len(fs) }

	if err := m.createTimer(context.Background(), []any{float64(9), float64(10), true}); err != nil {
		t.Fatalf("createTimer = %v", err)
	}

	for i := 0; i < 3; i++ {
		*now = now.Add(15 * time.Millisecond)
		m.OnBatchComplete()
	}
	if count != 3 {
		t.Fatalf("repeating timer fired %d times, want 3", count)
	}
	if m.Pending() != 1 {
		t.Fatalf("repeating timer dropped after fire")
	}
}

func TestDeleteTimer_UnknownIDIsNoOp(t *testing.T) {
	t.Parallel()

	m, _ := newTestModule(t)
	if err := m.deleteTimer(context.Background(), []any{float64(42)}); err != nil {
		t.Fatalf("deleteTimer(unknown) = %v", err)
	}
}

func TestDeleteTimer_CancelsPending(t *testing.T) {
	t.Parallel()

	m, now := newTestModule(t)
	var fired []Fire
	m.OnFire = func(fs []Fire) { fired = append(fired, fs...) }

	if err := m.createTimer(context.Background(), []any{float64(3), float64(5)}); err != nil {
		t.Fatalf("createTimer = %v", err)
	}
	if err := m.deleteTimer(context.Background(), []any{float64(3)}); err != nil {
		t.Fatalf("deleteTimer = %v", err)
	}

	*now = now.Add(time.Second)
	m.OnBatchComplete()
	if len(fired) != 0 {
		t.Fatalf("deleted timer fired: %v", fired)
	}
}

func TestCreateTimer_BadArgs(t *testing.T) {
	t.Parallel()

	m, _ := newTestModule(t)
	cases := [][]any{
		nil,
		{"nope"},
		{float64(1)},
		{float64(1), "nope"},
		{float64(1), float64(-5)},
	}
	for _, args := range cases {
		if err := m.createTimer(context.Background(), args); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("createTimer(%v) = %v, want invalid argument", args, err)
		}
	}
}

func TestMethods_WireOrderIsStable(t *testing.T) {
	t.Parallel()

	m, _ := newTestModule(t)
	methods := m.Methods()
	if len(methods) != 2 || methods[0].Name != "createTimer" || methods[1].Name != "deleteTimer" {
		t.Fatalf("method table = %v, want createTimer then deleteTimer", methods)
	}
}

func TestOnBatchComplete_DeliversInDueOrder(t *testing.T) {
	t.Parallel()

	m, now := newTestModule(t)
	var fired []Fire
	m.OnFire = func(fs []Fire) { fired = append(fired, fs...) }

	// register out of due order: 30ms, 10ms, 20ms, and a 10ms twin
	for _, c := range []struct{ id, ms float64 }{{3, 30}, {1, 10}, {2, 20}, {4, 10}} {
		if err := m.createTimer(context.Background(), []any{c.id, c.ms}); err != nil {
			t.Fatalf("createTimer(%v) = %v", c.id, err)
		}
	}

	*now = now.Add(50 * time.Millisecond)
	m.OnBatchComplete()

	want := []int64{1, 4, 2, 3} // due time ascending, id breaks the 10ms tie
	if len(fired) != len(want) {
		t.Fatalf("fires = %v, want %d deliveries", fired, len(want))
	}
	for i, id := range want {
		if fired[i].ID != id {
			t.Fatalf("fire order = %v, want ids %v", fired, want)
		}
	}
}

func TestDestroy_DropsTimers(t *testing.T) {
	t.Parallel()

	m, _ := newTestModule(t)
	if err := m.createTimer(context.Background(), []any{float64(1), float64(10)}); err != nil {
		t.Fatalf("createTimer = %v", err)
	}
	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy = %v", err)
	}
	if m.Pending() != 0 {
		t.Fatalf("timers survived Destroy")
	}
}
