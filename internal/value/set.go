package value

// Set stores only keys, reusing PersistentMap's array/hash split (spec
// §4.B: "same split as map ... over the keys").
type Set struct {
	m *PersistentMap
}

func EmptySet() *Set { return &Set{m: EmptyMap()} }

func (s *Set) Tag() Tag     { return TagSet }
func (s *Set) Hash() uint32 {
	hashes := make([]uint32, 0, s.Count())
	s.Each(func(v Value) { hashes = append(hashes, v.Hash()) })
	return mixCollectionHash(hashes, s.Count(), false)
}

func (s *Set) Count() int { return s.m.Count() }

func (s *Set) Contains(v Value) bool {
	_, ok := s.m.Get(v)
	return ok
}

func (s *Set) Conj(v Value) *Set {
	return &Set{m: s.m.Assoc(v, v)}
}

func (s *Set) Disj(v Value) *Set {
	return &Set{m: s.m.Dissoc(v)}
}

func (s *Set) Each(f func(v Value)) {
	s.m.Each(func(k, _ Value) { f(k) })
}

func (s *Set) Slice() []Value {
	out := make([]Value, 0, s.Count())
	s.Each(func(v Value) { out = append(out, v) })
	return out
}

func SetFrom(items []Value) (*Set, error) {
	s := EmptySet()
	for _, it := range items {
		if s.Contains(it) {
			return nil, dupSetErr(it)
		}
		s = s.Conj(it)
	}
	return s, nil
}

// SetFromAllowDup builds a set silently deduplicating, for runtime
// (non-literal) construction where spec's *read-dup-set* restriction
// does not apply (that check is a reader-level concern — see §4.C).
func SetFromAllowDup(items []Value) *Set {
	s := EmptySet()
	for _, it := range items {
		s = s.Conj(it)
	}
	return s
}

type dupSetError struct{ v Value }

func (e *dupSetError) Error() string { return "duplicate key in set literal: " + PrStr(e.v) }

func dupSetErr(v Value) error { return &dupSetError{v: v} }
