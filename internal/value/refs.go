package value

import "fmt"

// Atom is a mutable slot with compare-and-set semantics, guaranteed
// consistent by the single-threaded cooperative scheduling model (no
// locking is needed — see spec §5).
type Atom struct {
	slot Value
	meta *PersistentMap
}

func NewAtom(v Value) *Atom { return &Atom{slot: v} }

func (a *Atom) Tag() Tag     { return TagAtom }
func (a *Atom) Hash() uint32 { return a.slot.Hash() }

func (a *Atom) Deref() Value { return a.slot }

func (a *Atom) Meta() *PersistentMap { return a.meta }
func (a *Atom) SetMeta(m *PersistentMap) { a.meta = m }

func (a *Atom) Reset(v Value) Value {
	a.slot = v
	return v
}

// Swap replaces the slot with f(old, args...); f is supplied by the
// caller (the evaluator, which alone knows how to invoke a Value as a
// function) to keep this package free of evaluation semantics.
func (a *Atom) Swap(f func(old Value) (Value, error)) (Value, error) {
	newVal, err := f(a.slot)
	if err != nil {
		return nil, err
	}
	a.slot = newVal
	return newVal, nil
}

// CompareAndSet writes new iff the current slot equals old (by Eql),
// returning whether the write happened.
func (a *Atom) CompareAndSet(old, new Value) bool {
	if !Eql(a.slot, old) {
		return false
	}
	a.slot = new
	return true
}

// VolatileRef is a mutable slot without CAS semantics.
type VolatileRef struct {
	slot Value
}

func NewVolatile(v Value) *VolatileRef { return &VolatileRef{slot: v} }

func (v *VolatileRef) Tag() Tag     { return TagVolatile }
func (v *VolatileRef) Hash() uint32 { return v.slot.Hash() }
func (v *VolatileRef) Deref() Value { return v.slot }
func (v *VolatileRef) Reset(val Value) Value {
	v.slot = val
	return val
}

// Delay is a lazily computed, once-memoized value, per spec §4.J and
// the LazySeq analog. A realized delay caches either its result or its
// raised error permanently.
type Delay struct {
	thunk    Thunk
	realized bool
	result   Value
	err      error
}

func NewDelay(thunk Thunk) *Delay { return &Delay{thunk: thunk} }

func (d *Delay) Tag() Tag { return TagDelay }
func (d *Delay) Hash() uint32 {
	if !d.realized {
		return 0
	}
	if d.result == nil {
		return 0
	}
	return d.result.Hash()
}

func (d *Delay) IsRealized() bool { return d.realized }

// Force runs the thunk on first call; subsequent calls return the
// cached value or re-raise the cached exception, matching spec's
// delay-memoization testable property.
func (d *Delay) Force() (Value, error) {
	if d.realized {
		return d.result, d.err
	}
	v, err := d.thunk()
	d.realized = true
	d.thunk = nil
	if err != nil {
		d.err = err
		return nil, err
	}
	d.result = v
	return v, nil
}

func (d *Delay) String() string { return fmt.Sprintf("#<Delay realized=%v>", d.realized) }
