package runtime

import (
	"testing"

	"github.com/cloverlang/clover/internal/value"
)

func TestInternIsIdempotent(t *testing.T) {
	ns := NewNamespace("test.ns")
	a := ns.Intern("x")
	b := ns.Intern("x")
	if a != b {
		t.Error("Intern returned a different *Var for the same name")
	}
}

func TestReferRejectsLocalShadow(t *testing.T) {
	owner := NewNamespace("owner")
	v := owner.Intern("shared")

	target := NewNamespace("target")
	target.Intern("shared") // locally owned
	if err := target.Refer("shared", v); err == nil {
		t.Error("expected Refer to reject shadowing a locally interned var")
	}
}

func TestDynamicBindingStackShadowsRoot(t *testing.T) {
	rt := NewRuntime()
	core := rt.Namespaces["clojure.core"]
	v := core.Intern("*test-dynamic*")
	v.Dynamic = true
	v.BindRoot(value.Int_(1))

	if got := rt.DerefVar(v); value.PrStr(got) != "1" {
		t.Fatalf("DerefVar before binding = %s, want 1", value.PrStr(got))
	}

	if err := rt.PushThreadBindings(map[*Var]value.Value{v: value.Int_(2)}); err != nil {
		t.Fatalf("PushThreadBindings: %v", err)
	}
	if got := rt.DerefVar(v); value.PrStr(got) != "2" {
		t.Errorf("DerefVar inside binding = %s, want 2", value.PrStr(got))
	}
	if !rt.SetDynamic(v, value.Int_(3)) {
		t.Error("SetDynamic on a thread-bound var should succeed")
	}
	if got := rt.DerefVar(v); value.PrStr(got) != "3" {
		t.Errorf("DerefVar after set! = %s, want 3", value.PrStr(got))
	}

	if err := rt.PopThreadBindings(); err != nil {
		t.Fatalf("PopThreadBindings: %v", err)
	}
	if got := rt.DerefVar(v); value.PrStr(got) != "1" {
		t.Errorf("DerefVar after pop = %s, want root value 1", value.PrStr(got))
	}
}

func TestPushThreadBindingsRejectsNonDynamic(t *testing.T) {
	rt := NewRuntime()
	core := rt.Namespaces["clojure.core"]
	v := core.Intern("*not-dynamic*")
	v.BindRoot(value.Int_(1))

	if err := rt.PushThreadBindings(map[*Var]value.Value{v: value.Int_(2)}); err == nil {
		t.Error("expected an error binding a non-dynamic var")
	}
}

func TestAlterVarRoot(t *testing.T) {
	rt := NewRuntime()
	core := rt.Namespaces["clojure.core"]
	v := core.Intern("*counter*")
	v.BindRoot(value.Int_(0))

	newVal, err := rt.AlterVarRoot(v, func(old value.Value) (value.Value, error) {
		n := old.(*value.Int).Value
		return value.Int_(n + 1), nil
	})
	if err != nil {
		t.Fatalf("AlterVarRoot: %v", err)
	}
	if value.PrStr(newVal) != "1" {
		t.Errorf("got %s, want 1", value.PrStr(newVal))
	}
	if value.PrStr(v.Root()) != "1" {
		t.Errorf("Root() = %s, want 1", value.PrStr(v.Root()))
	}
}
