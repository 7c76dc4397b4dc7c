package value

import "fmt"

// Seq is implemented by every value that can produce a first/rest pair:
// List, Vector (via indexed iteration), Cons, LazySeq, ChunkedCons, Nil.
// The evaluator's seq/first/rest/next builtins dispatch through this
// rather than duplicating per-type logic.
type Seq interface {
	Value
	SeqFirst() Value
	SeqRest() Value // returns a Value whose Tag is one of the Seq-producing variants, or Nil
}

// Cons is a first+rest cell — spec's "head + rest" sequence abstraction.
type Cons struct {
	Head Value
	Tail Value // the rest seq: another Cons, LazySeq, List, Vector-seq, or Nil
}

func (c *Cons) Tag() Tag { return TagCons }
func (c *Cons) Hash() uint32 {
	return mixCollectionHash([]uint32{c.Head.Hash(), hashOfRest(c.Tail)}, -1, true)
}
func (c *Cons) First() Value     { return c.Head }
func (c *Cons) Rest() Value      { return c.Tail }
func (c *Cons) SeqFirst() Value  { return c.Head }
func (c *Cons) SeqRest() Value   { return c.Tail }

func hashOfRest(v Value) uint32 {
	if v == nil {
		return 0
	}
	return v.Hash()
}

func NewCons(head, tail Value) *Cons { return &Cons{Head: head, Tail: tail} }

// Thunk is the deferred computation a LazySeq or Delay wraps. It returns
// the realized Value or an error (e.g. a propagated user-exception).
type Thunk func() (Value, error)

// LazySeq is a memoized thunk producing a seq on first access. Once
// realized — successfully or not — the result (or error) is cached
// permanently, per spec's delay/lazy_seq memoization invariant.
type LazySeq struct {
	thunk    Thunk
	realized bool
	result   Value // the realized seq, possibly Nil for an empty seq
	err      error
}

func NewLazySeq(thunk Thunk) *LazySeq {
	return &LazySeq{thunk: thunk}
}

func (l *LazySeq) Tag() Tag { return TagLazySeq }
func (l *LazySeq) Hash() uint32 {
	v, err := l.Force()
	if err != nil || v == nil {
		return 0
	}
	return v.Hash()
}

// Force realizes the seq on first call; subsequent calls return the
// cached result or re-raise the cached error.
func (l *LazySeq) Force() (Value, error) {
	if l.realized {
		return l.result, l.err
	}
	v, err := l.thunk()
	l.realized = true
	l.thunk = nil
	if err != nil {
		l.err = err
		return nil, err
	}
	if v == nil {
		v = NilValue
	}
	l.result = v
	return v, nil
}

func (l *LazySeq) SeqFirst() Value {
	v, err := l.Force()
	if err != nil || v == nil {
		return NilValue
	}
	if s, ok := v.(Seq); ok {
		return s.SeqFirst()
	}
	return NilValue
}

func (l *LazySeq) SeqRest() Value {
	v, err := l.Force()
	if err != nil || v == nil {
		return NilValue
	}
	if s, ok := v.(Seq); ok {
		return s.SeqRest()
	}
	return NilValue
}

// Reduced wraps a value to signal reduce should stop early.
type Reduced struct {
	Value Value
}

func (r *Reduced) Tag() Tag     { return TagReduced }
func (r *Reduced) Hash() uint32 { return r.Value.Hash() }

// ArrayChunk is a fixed-size array slice with offset+length, the
// bulk-iteration unit for chunked sequences.
type ArrayChunk struct {
	items  []Value
	offset int
	length int
}

func NewArrayChunk(items []Value, offset, length int) *ArrayChunk {
	return &ArrayChunk{items: items, offset: offset, length: length}
}

func (c *ArrayChunk) Tag() Tag { return TagArrayChunk }
func (c *ArrayChunk) Hash() uint32 {
	hashes := make([]uint32, 0, c.length)
	for i := 0; i < c.length; i++ {
		hashes = append(hashes, c.items[c.offset+i].Hash())
	}
	return mixCollectionHash(hashes, c.length, true)
}

func (c *ArrayChunk) Count() int { return c.length }

func (c *ArrayChunk) Nth(i int) Value { return c.items[c.offset+i] }

// Drop returns a new ArrayChunk with the first n elements removed.
func (c *ArrayChunk) Drop(n int) *ArrayChunk {
	if n >= c.length {
		return &ArrayChunk{items: c.items, offset: c.offset + c.length, length: 0}
	}
	return &ArrayChunk{items: c.items, offset: c.offset + n, length: c.length - n}
}

// ChunkBuffer is a mutable builder for an ArrayChunk. A second call to
// Chunk after finalization is a *value-error* per spec §4.J.
type ChunkBuffer struct {
	items    []Value
	finished bool
}

func NewChunkBuffer(capacity int) *ChunkBuffer {
	return &ChunkBuffer{items: make([]Value, 0, capacity)}
}

func (b *ChunkBuffer) Tag() Tag     { return TagChunkBuffer }
func (b *ChunkBuffer) Hash() uint32 { return uint32(len(b.items)) }

func (b *ChunkBuffer) Add(v Value) error {
	if b.finished {
		return fmt.Errorf("cannot add to a finalized chunk buffer")
	}
	b.items = append(b.items, v)
	return nil
}

func (b *ChunkBuffer) Chunk() (*ArrayChunk, error) {
	if b.finished {
		return nil, fmt.Errorf("chunk buffer already finalized")
	}
	b.finished = true
	return NewArrayChunk(b.items, 0, len(b.items)), nil
}

// ChunkedCons pairs an ArrayChunk with the rest of the sequence.
type ChunkedCons struct {
	Chunk *ArrayChunk
	Tail  Value
}

func NewChunkedCons(chunk *ArrayChunk, tail Value) *ChunkedCons {
	return &ChunkedCons{Chunk: chunk, Tail: tail}
}

func (c *ChunkedCons) Tag() Tag { return TagChunkedCons }
func (c *ChunkedCons) Hash() uint32 {
	return mixCollectionHash([]uint32{c.Chunk.Hash(), hashOfRest(c.Tail)}, -1, true)
}

func (c *ChunkedCons) SeqFirst() Value {
	if c.Chunk.Count() == 0 {
		return NilValue
	}
	return c.Chunk.Nth(0)
}

func (c *ChunkedCons) SeqRest() Value {
	if c.Chunk.Count() > 1 {
		return NewChunkedCons(c.Chunk.Drop(1), c.Tail)
	}
	return c.Tail
}

// ChunkFirst/ChunkRest/ChunkNext expose the two halves per spec §4.J.
func ChunkFirst(v Value) (*ArrayChunk, bool) {
	cc, ok := v.(*ChunkedCons)
	if !ok {
		return nil, false
	}
	return cc.Chunk, true
}

func ChunkRest(v Value) Value {
	cc, ok := v.(*ChunkedCons)
	if !ok {
		return NilValue
	}
	return cc.Tail
}

func ChunkNext(v Value) Value {
	cc, ok := v.(*ChunkedCons)
	if !ok {
		return NilValue
	}
	return cc.SeqRest()
}
