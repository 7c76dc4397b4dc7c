// Package reader turns source text into a tree of Forms, preserving
// source location and reader-macro syntax, per spec §3 Form / §4.C
// Reader. The scan-by-rune technique (readChar/peekChar, line/column
// tracking) is grounded on the teacher's internal/lexer/lexer.go; unlike
// the teacher's two-stage lexer+precedence-climbing parser (suited to
// infix syntax), s-expression syntax has no operator precedence, so the
// two stages collapse into the single recursive-descent reader here.
package reader

import "github.com/cloverlang/clover/internal/value"

// Kind discriminates the Form variants.
type Kind int

const (
	KNil Kind = iota
	KBool
	KInt
	KFloat
	KChar
	KString
	KSymbol
	KKeyword
	KList
	KVector
	KMap // flat [k1,v1,k2,v2,...] per spec §3
	KSet
	KQuote
	KDeref
	KSyntaxQuote
	KUnquote
	KUnquoteSplicing
	KVarQuote
	KMeta
	KDiscard
	KTag
	KRegex
)

// Form is the reader's output: a tagged tree node carrying source
// position. Collection Forms (List/Vector/Map/Set) store child Forms in
// Items; wrapper Forms (Quote, Deref, SyntaxQuote, Unquote,
// UnquoteSplicing, VarQuote, Discard) store the single wrapped Form in
// Items[0]; Meta stores the metadata Form in Meta and the wrapped Form
// in Items[0]; Tag stores the tag name in TagName and the tagged Form in
// Items[0].
type Form struct {
	Kind Kind
	Line int
	Col  int

	Bool  bool
	Int   int64
	Float float64
	Char  rune
	Str   string
	Sym   *value.Symbol
	Kw    *value.Keyword

	Items   []*Form
	Meta    *Form
	TagName string
}

func at(k Kind, line, col int) *Form { return &Form{Kind: k, Line: line, Col: col} }
