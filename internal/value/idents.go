package value

import "sync"

// Symbol is an (optional namespace, name) pair that may carry metadata.
// Symbols are not interned: two symbols with equal ns/name are equal by
// value (Eql), but are distinct Go pointers, since metadata is
// per-occurrence (a `^:dynamic x` symbol differs in meta from a bare `x`
// even though both resolve the same name).
type Symbol struct {
	Ns   string
	Name string
	Meta *PersistentMap // optional, nil if absent
}

func (s *Symbol) Tag() Tag { return TagSymbol }
func (s *Symbol) Hash() uint32 {
	return hashBytes([]byte(s.Ns)) ^ (hashBytes([]byte(s.Name)) * 31)
}

// WithMeta returns a copy of the symbol carrying new metadata, leaving
// the receiver untouched (symbols are immutable once constructed).
func (s *Symbol) WithMeta(m *PersistentMap) *Symbol {
	return &Symbol{Ns: s.Ns, Name: s.Name, Meta: m}
}

func Sym(name string) *Symbol { return &Symbol{Name: name} }

func NsSym(ns, name string) *Symbol { return &Symbol{Ns: ns, Name: name} }

func (s *Symbol) String() string {
	if s.Ns == "" {
		return s.Name
	}
	return s.Ns + "/" + s.Name
}

// Keyword is interned process-wide: two keywords with the same (ns,
// name) are the same Go pointer, so identity equality holds as spec
// requires. The interning table is guarded by a mutex since the
// runtime's "single-threaded cooperative" model still allows embedders
// to call into the interner from outside the evaluator's own goroutine
// (e.g. a concurrently-running REPL reader).
type Keyword struct {
	Ns   string
	Name string
}

func (k *Keyword) Tag() Tag { return TagKeyword }
func (k *Keyword) Hash() uint32 {
	return hashBytes([]byte(k.Ns))*31 ^ hashBytes([]byte(k.Name))
}

func (k *Keyword) String() string {
	if k.Ns == "" {
		return k.Name
	}
	return k.Ns + "/" + k.Name
}

var (
	keywordMu    sync.Mutex
	keywordTable = make(map[string]*Keyword)
)

func keywordKey(ns, name string) string { return ns + "/" + name }

// Kw interns and returns the keyword for (ns, name).
func Kw(ns, name string) *Keyword {
	key := keywordKey(ns, name)
	keywordMu.Lock()
	defer keywordMu.Unlock()
	if k, ok := keywordTable[key]; ok {
		return k
	}
	k := &Keyword{Ns: ns, Name: name}
	keywordTable[key] = k
	return k
}

// FindKeyword checks for presence of an interned keyword without
// allocating a new one, per the design note on the keyword interning
// table.
func FindKeyword(ns, name string) (*Keyword, bool) {
	keywordMu.Lock()
	defer keywordMu.Unlock()
	k, ok := keywordTable[keywordKey(ns, name)]
	return k, ok
}
