package value

import "math"

// Nil is the single nil value. A package-level instance is exported so
// callers can compare by identity, but Eql never relies on that.
type Nil struct{}

func (*Nil) Tag() Tag      { return TagNil }
func (*Nil) Hash() uint32  { return 0 }
func (*Nil) SeqFirst() Value { return NilValue }
func (*Nil) SeqRest() Value  { return NilValue }

var NilValue Value = &Nil{}

// Bool wraps Clojure's two boolean literals.
type Bool struct{ Value bool }

func (b *Bool) Tag() Tag { return TagBool }
func (b *Bool) Hash() uint32 {
	if b.Value {
		return 1231
	}
	return 1237
}

var (
	True  Value = &Bool{Value: true}
	False Value = &Bool{Value: false}
)

func Bool_(v bool) Value {
	if v {
		return True
	}
	return False
}

// Int is a 64-bit signed integer.
type Int struct{ Value int64 }

func (i *Int) Tag() Tag { return TagInt }
func (i *Int) Hash() uint32 {
	u := uint64(i.Value)
	return uint32(u ^ (u >> 32))
}

func Int_(v int64) Value { return &Int{Value: v} }

// Float is a 64-bit IEEE double. Hashed so that Float(1.0) and Int(1)
// collide, per spec's "numbers hash as their numeric value" rule.
type Float struct{ Value float64 }

func (f *Float) Tag() Tag { return TagFloat }
func (f *Float) Hash() uint32 {
	if f.Value == math.Trunc(f.Value) && !math.IsInf(f.Value, 0) {
		return (&Int{Value: int64(f.Value)}).Hash()
	}
	bits := math.Float64bits(f.Value)
	return uint32(bits ^ (bits >> 32))
}

func Float_(v float64) Value { return &Float{Value: v} }

// Char is a single Unicode codepoint.
type Char struct{ Value rune }

func (c *Char) Tag() Tag     { return TagChar }
func (c *Char) Hash() uint32 { return uint32(c.Value) }

func Char_(r rune) Value { return &Char{Value: r} }

// Str is an immutable UTF-8 string. Named Str (not String) to keep the
// Go builtin string type unshadowed throughout the package.
type Str struct{ Value string }

func (s *Str) Tag() Tag     { return TagString }
func (s *Str) Hash() uint32 { return hashBytes([]byte(s.Value)) }

func Str_(s string) Value { return &Str{Value: s} }

func hashBytes(b []byte) uint32 {
	var h uint32 = 2166136261
	for _, c := range b {
		h ^= uint32(c)
		h *= 16777619
	}
	return h
}
