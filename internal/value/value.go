// Package value implements the runtime's universal object representation:
// the tagged Value sum described as the core Value model. Every other
// package (reader, analyzer, evaluator, runtime, multimethod, syntaxquote)
// operates on Value; this package owns identity, equality, hashing and
// the two printing modes (str / pr-str).
//
// The variant-per-struct-with-a-Tag()-discriminator shape is grounded on
// the teacher's internal/evaluator/object.go Object interface — we keep
// that dispatch technique (branch directly on a small enum, no vtables)
// and generalize the variant set to spec's ~25 runtime types.
package value

import "fmt"

// Tag is the runtime type discriminator. Hot paths (arithmetic,
// equality, type checks) branch directly on Tag rather than doing a type
// switch, matching the teacher's ObjectType string-constant approach but
// as a small integer for cheaper comparison.
type Tag uint8

const (
	TagNil Tag = iota
	TagBool
	TagInt
	TagFloat
	TagChar
	TagString
	TagSymbol
	TagKeyword
	TagList
	TagVector
	TagMap
	TagSet
	TagLazySeq
	TagCons
	TagArrayChunk
	TagChunkBuffer
	TagChunkedCons
	TagAtom
	TagVolatile
	TagDelay
	TagReduced
	TagFn
	TagBuiltinFn
	TagProtocolFn
	TagMultiFn
	TagVarRef
	TagRegex
	TagMatcher
	TagProtocol
	TagTransientVector
	TagTransientMap
	TagTransientSet
	TagExceptionInfo
	TagNamespace
)

var tagNames = [...]string{
	"nil", "boolean", "integer", "float", "char", "string",
	"symbol", "keyword", "list", "vector", "map", "set",
	"lazy_seq", "cons", "array_chunk", "chunk_buffer", "chunked_cons",
	"atom", "volatile", "delay", "reduced",
	"fn", "builtin_fn", "protocol_fn", "multi_fn", "var_ref",
	"regex", "matcher", "protocol",
	"transient_vector", "transient_map", "transient_set",
	"exception_info", "namespace",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// Value is the interface every runtime object implements.
type Value interface {
	Tag() Tag
	Hash() uint32
}

// Truthy implements Clojure truthiness: nil and false are falsy,
// everything else — including 0, "", empty collections — is truthy.
func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	switch v.Tag() {
	case TagNil:
		return false
	case TagBool:
		return v.(*Bool).Value
	default:
		return true
	}
}

// TypeName returns the spec's runtime-type name for error messages.
func TypeName(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Tag().String()
}

func typeErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
