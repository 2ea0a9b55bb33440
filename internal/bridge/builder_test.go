package bridge

import (
	"context"
	"testing"

	"hostbridge/internal/bridge/affinity"
	perr "hostbridge/internal/platform/errors"
	"hostbridge/internal/platform/testkit"
)

// plainModule has no optional hooks
type plainModule struct {
	name    string
	methods []Method
	calls   [][]any
}

func (m *plainModule) Name() string      { return m.name }
func (m *plainModule) Methods() []Method { return m.methods }

func (m *plainModule) record(name string) Method {
	return Method{Name: name, Fn: func(_ context.Context, args []any) error {
		m.calls = append(m.calls, args)
		return nil
	}}
}

// overridingModule may replace a prior module of the same name
type overridingModule struct {
	plainModule
	override bool
}

func (m *overridingModule) CanOverride() bool { return m.override }

func newPlain(name string, methodNames ...string) *plainModule {
	m := &plainModule{name: name}
	for _, mn := range methodNames {
		m.methods = append(m.methods, m.record(mn))
	}
	return m
}

func newOverriding(name string, override bool, methodNames ...string) *overridingModule {
	m := &overridingModule{override: override}
	m.name = name
	for _, mn := range methodNames {
		m.methods = append(m.methods, m.record(mn))
	}
	return m
}

func TestBuilder_AssignsIDsInFirstRegistrationOrder(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	if err := b.Add(newPlain("Timing", "createTimer")); err != nil {
		t.Fatalf("Add(Timing) = %v", err)
	}
	if err := b.Add(newPlain("Network", "fetch")); err != nil {
		t.Fatalf("Add(Network) = %v", err)
	}

	r, err := b.Build(affinity.New("test"))
	if err != nil {
		t.Fatalf("Build = %v", err)
	}

	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
	if d := r.Definition(0); d == nil || d.Name() != "Timing" || d.ID() != 0 {
		t.Fatalf("id 0 = %+v, want Timing/0", d)
	}
	if d := r.Definition(1); d == nil || d.Name() != "Network" || d.ID() != 1 {
		t.Fatalf("id 1 = %+v, want Network/1", d)
	}
}

func TestBuilder_DuplicateNameWithoutOverrideConflicts(t *testing.T) {
	t.Parallel()

	first := newPlain("X", "a")
	b := NewBuilder()
	if err := b.Add(first); err != nil {
		t.Fatalf("Add(first) = %v", err)
	}

	err := b.Add(newOverriding("X", false, "b"))
	if err == nil {
		t.Fatalf("duplicate Add succeeded, want conflict")
	}
	if !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("duplicate Add code = %d, want conflict", perr.CodeOf(err))
	}

	// prior entry unchanged
	r, err := b.Build(affinity.New("test"))
	if err != nil {
		t.Fatalf("Build = %v", err)
	}
	if got := ModuleAs[*plainModule](r); got != first {
		t.Fatalf("registered module is not the first instance")
	}
}

func TestBuilder_OverrideReplacesValueKeepsPosition(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	if err := b.Add(newPlain("X", "a")); err != nil {
		t.Fatalf("Add(X) = %v", err)
	}
	if err := b.Add(newPlain("Y", "b")); err != nil {
		t.Fatalf("Add(Y) = %v", err)
	}

	repl := newOverriding("X", true, "a2")
	if err := b.Add(repl); err != nil {
		t.Fatalf("Add(override X) = %v", err)
	}

	r, err := b.Build(affinity.New("test"))
	if err != nil {
		t.Fatalf("Build = %v", err)
	}

	// X keeps slot 0 from its first registration
	if d := r.Definition(0); d.Name() != "X" || d.Target() != Module(repl) {
		t.Fatalf("id 0 = %q/%T, want overridden X", d.Name(), d.Target())
	}
	if d := r.Definition(1); d.Name() != "Y" {
		t.Fatalf("id 1 = %q, want Y", d.Name())
	}
}

func TestBuilder_IsConsumedByBuild(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	if err := b.Add(newPlain("X", "a")); err != nil {
		t.Fatalf("Add = %v", err)
	}
	if _, err := b.Build(affinity.New("test")); err != nil {
		t.Fatalf("Build = %v", err)
	}

	testkit.MustPanic(t, func() { _ = b.Add(newPlain("Y", "b")) })
	testkit.MustPanic(t, func() { _, _ = b.Build(affinity.New("test")) })
}

func TestBuilder_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		mod  Module
	}{
		{name: "nil module", mod: nil},
		{name: "empty name", mod: newPlain("", "a")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := NewBuilder().Add(tc.mod)
			if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
				t.Fatalf("Add = %v, want invalid argument", err)
			}
		})
	}
}

func TestBuild_RejectsBadMethodTables(t *testing.T) {
	t.Parallel()

	bad := []*plainModule{
		{name: "NoName", methods: []Method{{Name: "", Fn: func(context.Context, []any) error { return nil }}}},
		{name: "NilFn", methods: []Method{{Name: "m"}}},
	}
	dup := newPlain("Dup", "m", "m")

	for _, m := range []Module{bad[0], bad[1], dup} {
		b := NewBuilder()
		if err := b.Add(m); err != nil {
			t.Fatalf("Add(%s) = %v", m.Name(), err)
		}
		if _, err := b.Build(affinity.New("test")); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("Build(%s) = %v, want invalid argument", m.Name(), err)
		}
	}
}

func TestBuild_RequiresMintedOwnerToken(t *testing.T) {
	t.Parallel()

	var zero affinity.Token
	_, err := NewBuilder().Build(zero)
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("Build(zero token) = %v, want invalid argument", err)
	}
}

func TestBuild_MethodTableIsFrozen(t *testing.T) {
	t.Parallel()

	m := newPlain("Mut", "a", "b")
	b := NewBuilder()
	if err := b.Add(m); err != nil {
		t.Fatalf("Add = %v", err)
	}
	r, err := b.Build(affinity.New("test"))
	if err != nil {
		t.Fatalf("Build = %v", err)
	}

	// mutate the module's backing slice after build
	m.methods = nil

	if err := r.Call(context.Background(), 0, 1, nil); err != nil {
		t.Fatalf("Call after mutation = %v, want nil", err)
	}
	if len(m.calls) != 1 {
		t.Fatalf("handler calls = %d, want 1", len(m.calls))
	}
}

func TestBuild_IdenticalInputsYieldIdenticalIDs(t *testing.T) {
	t.Parallel()

	build := func() *Registry {
		b := NewBuilder()
		for _, name := range []string{"A", "B", "C"} {
			if err := b.Add(newPlain(name, "m1", "m2")); err != nil {
				t.Fatalf("Add(%s) = %v", name, err)
			}
		}
		r, err := b.Build(affinity.New("test"))
		if err != nil {
			t.Fatalf("Build = %v", err)
		}
		return r
	}

	r1, r2 := build(), build()
	for id := 0; id < r1.Len(); id++ {
		if r1.Definition(id).Name() != r2.Definition(id).Name() {
			t.Fatalf("id %d differs: %q vs %q", id, r1.Definition(id).Name(), r2.Definition(id).Name())
		}
	}
}
