package value

import "testing"

func TestVectorConjAndNth(t *testing.T) {
	v := EmptyVector()
	for i := 0; i < 100; i++ {
		v = v.Conj(Int_(int64(i)))
	}
	if v.Count() != 100 {
		t.Fatalf("Count() = %d, want 100", v.Count())
	}
	// index 40 crosses the first leaf boundary (vecBranch == 32),
	// exercising the trie root rather than just the tail.
	got, err := v.Nth(40)
	if err != nil {
		t.Fatalf("Nth(40): %v", err)
	}
	if PrStr(got) != "40" {
		t.Errorf("Nth(40) = %s, want 40", PrStr(got))
	}
}

func TestVectorAssocN(t *testing.T) {
	v := VectorFrom([]Value{Int_(1), Int_(2), Int_(3)})
	updated, err := v.AssocN(1, Str_("two"))
	if err != nil {
		t.Fatalf("AssocN: %v", err)
	}
	if PrStr(updated) != `[1 "two" 3]` {
		t.Errorf("got %s, want [1 \"two\" 3]", PrStr(updated))
	}
	// original is untouched (persistence)
	if PrStr(v) != "[1 2 3]" {
		t.Errorf("original vector mutated: %s", PrStr(v))
	}
}

func TestTransientVectorRoundTrip(t *testing.T) {
	tv := NewTransientVector(EmptyVector())
	for i := 1; i <= 3; i++ {
		if err := tv.ConjBang(Int_(int64(i))); err != nil {
			t.Fatalf("ConjBang: %v", err)
		}
	}
	pv, err := tv.Persistent()
	if err != nil {
		t.Fatalf("Persistent: %v", err)
	}
	if PrStr(pv) != "[1 2 3]" {
		t.Errorf("got %s, want [1 2 3]", PrStr(pv))
	}
	if err := tv.ConjBang(Int_(4)); err == nil {
		t.Error("expected error conj!-ing a consumed transient")
	}
}

func TestPersistentMapAssocDissoc(t *testing.T) {
	m := EmptyMap().Assoc(Kw("", "a"), Int_(1)).Assoc(Kw("", "b"), Int_(2))
	if m.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", m.Count())
	}
	v, ok := m.Get(Kw("", "a"))
	if !ok || PrStr(v) != "1" {
		t.Errorf("Get(:a) = %v, %v", v, ok)
	}
	m2 := m.Dissoc(Kw("", "a"))
	if m2.Count() != 1 {
		t.Errorf("Count() after dissoc = %d, want 1", m2.Count())
	}
	if m.Count() != 2 {
		t.Error("original map mutated by Dissoc")
	}
}

func TestSetConjDisjDedup(t *testing.T) {
	s := EmptySet().Conj(Int_(1)).Conj(Int_(2)).Conj(Int_(1))
	if s.Count() != 2 {
		t.Fatalf("Count() = %d, want 2 (duplicate conj)", s.Count())
	}
	if !s.Contains(Int_(1)) {
		t.Error("expected set to contain 1")
	}
	s2 := s.Disj(Int_(1))
	if s2.Contains(Int_(1)) {
		t.Error("expected 1 removed after Disj")
	}
}
