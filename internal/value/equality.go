package value

// Eql implements Clojure's `=`: structural equality for collections,
// numeric-cross-type equality for Int/Float, interned identity for
// keywords (falls out of structural ns/name comparison too, since
// keywords are interned), deep equality for symbols, and sequential
// equality across any two "sequential" abstractions (list, vector,
// lazy_seq, cons) holding equal elements in the same order — spec §3's
// "vector ≠ list ... but sequential? collections with equal element
// sequences are equal" rule.
func Eql(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case *Int:
		switch bv := b.(type) {
		case *Int:
			return av.Value == bv.Value
		case *Float:
			return float64(av.Value) == bv.Value
		}
		return false
	case *Float:
		switch bv := b.(type) {
		case *Int:
			return av.Value == float64(bv.Value)
		case *Float:
			return av.Value == bv.Value
		}
		return false
	}

	if a.Tag() != b.Tag() {
		if isSequential(a) && isSequential(b) {
			return sequentialEql(a, b)
		}
		return false
	}

	switch av := a.(type) {
	case *Nil:
		return true
	case *Bool:
		return av.Value == b.(*Bool).Value
	case *Char:
		return av.Value == b.(*Char).Value
	case *Str:
		return av.Value == b.(*Str).Value
	case *Symbol:
		bv := b.(*Symbol)
		return av.Ns == bv.Ns && av.Name == bv.Name
	case *Keyword:
		bv := b.(*Keyword)
		return av == bv || (av.Ns == bv.Ns && av.Name == bv.Name)
	case *List, *Vector, *LazySeq, *Cons:
		return sequentialEql(a, b)
	case *PersistentMap:
		bv := b.(*PersistentMap)
		if av.Count() != bv.Count() {
			return false
		}
		eq := true
		av.Each(func(k, v Value) {
			if !eq {
				return
			}
			bval, ok := bv.Get(k)
			if !ok || !Eql(v, bval) {
				eq = false
			}
		})
		return eq
	case *Set:
		bv := b.(*Set)
		if av.Count() != bv.Count() {
			return false
		}
		eq := true
		av.Each(func(v Value) {
			if !eq {
				return
			}
			if !bv.Contains(v) {
				eq = false
			}
		})
		return eq
	case *Atom, *VolatileRef, *Delay, *BuiltinFn, *Regex, *Matcher:
		return a == b // identity for reference/callable types
	default:
		return a == b
	}
}

func isSequential(v Value) bool {
	switch v.(type) {
	case *List, *Vector, *LazySeq, *Cons, *vectorSeq, *ChunkedCons:
		return true
	}
	if v.Tag() == TagNil {
		return true
	}
	return false
}

// sequentialEql compares two sequential Values element-by-element,
// realizing lazy seqs as needed.
func sequentialEql(a, b Value) bool {
	as := ToSlice(a)
	bs := ToSlice(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !Eql(as[i], bs[i]) {
			return false
		}
	}
	return true
}

// ToSlice flattens any sequential Value (list, vector, cons, realized
// lazy_seq, nil) into a Go slice. Lazy seqs must already be realized by
// the evaluator before reaching here (ToSlice does not invoke thunks,
// to keep package value free of evaluation semantics).
func ToSlice(v Value) []Value {
	switch t := v.(type) {
	case nil:
		return nil
	case *Nil:
		return nil
	case *List:
		return t.Slice()
	case *Vector:
		return t.Slice()
	case *Cons:
		out := []Value{t.First()}
		return append(out, ToSlice(t.Rest())...)
	case *LazySeq:
		if t.realized {
			return ToSlice(t.result)
		}
		return nil
	case Seq:
		var out []Value
		for cur := Value(t); cur != nil && Truthy(cur); {
			s, ok := cur.(Seq)
			if !ok {
				break
			}
			out = append(out, s.SeqFirst())
			cur = s.SeqRest()
			if cur != nil && cur.Tag() == TagNil {
				break
			}
		}
		return out
	default:
		return nil
	}
}
