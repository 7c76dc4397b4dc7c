// Package analyzer turns reader Forms into ast.Node trees: Form→Value
// conversion (collapsing reader-macro wrappers into ordinary list forms,
// same as the real reader/analyzer boundary), macro expansion, and
// special-form recognition, per spec §4.D. Grounded on the teacher's
// internal/analyzer package structure (a single-pass Form-walking
// compiler stage feeding a downstream evaluator/backend) — we keep its
// "one function per node kind, dispatch by switch" shape.
package analyzer

import (
	"github.com/cloverlang/clover/internal/reader"
	"github.com/cloverlang/clover/internal/rterr"
	"github.com/cloverlang/clover/internal/syntaxquote"
	"github.com/cloverlang/clover/internal/value"
)

// FormToValue converts one reader Form into the Value it denotes,
// expanding syntax-quote immediately (matching Clojure: syntax-quote is
// a reader-level construct that expands to ordinary data before the
// analyzer ever sees it). sq is nil outside of any enclosing
// syntax-quote; entering a KSyntaxQuote form creates one for the whole
// sub-tree so `x#` gensym hygiene is scoped to that form.
func FormToValue(f *reader.Form, sq *syntaxquote.Expander) (value.Value, error) {
	if f == nil {
		return value.NilValue, nil
	}
	switch f.Kind {
	case reader.KNil:
		return value.NilValue, nil
	case reader.KBool:
		return value.Bool_(f.Bool), nil
	case reader.KInt:
		return value.Int_(f.Int), nil
	case reader.KFloat:
		return value.Float_(f.Float), nil
	case reader.KChar:
		return value.Char_(f.Char), nil
	case reader.KString:
		return value.Str_(f.Str), nil
	case reader.KSymbol:
		return f.Sym, nil
	case reader.KKeyword:
		return f.Kw, nil
	case reader.KRegex:
		rx, err := value.CompileRegex(f.Str)
		if err != nil {
			return nil, rterr.New(rterr.ReadError, "invalid regex at %d:%d: %v", f.Line, f.Col, err)
		}
		return rx, nil
	case reader.KList:
		items, err := convertSeq(f.Items, sq)
		if err != nil {
			return nil, err
		}
		return value.ListFrom(items), nil
	case reader.KVector:
		items, err := convertSeq(f.Items, sq)
		if err != nil {
			return nil, err
		}
		return value.VectorFrom(items), nil
	case reader.KMap:
		items, err := convertSeq(f.Items, sq)
		if err != nil {
			return nil, err
		}
		if len(items)%2 != 0 {
			return nil, rterr.New(rterr.ReadError, "map literal must have an even number of forms, at %d:%d", f.Line, f.Col)
		}
		m := value.EmptyMap()
		for i := 0; i < len(items); i += 2 {
			m = m.Assoc(items[i], items[i+1])
		}
		return m, nil
	case reader.KSet:
		items, err := convertSeq(f.Items, sq)
		if err != nil {
			return nil, err
		}
		s, err := value.SetFrom(items)
		if err != nil {
			return nil, rterr.New(rterr.ReadError, "%v, at %d:%d", err, f.Line, f.Col)
		}
		return s, nil
	case reader.KQuote:
		inner, err := FormToValue(f.Items[0], sq)
		if err != nil {
			return nil, err
		}
		return value.ListFrom([]value.Value{value.Sym("quote"), inner}), nil
	case reader.KDeref:
		inner, err := FormToValue(f.Items[0], sq)
		if err != nil {
			return nil, err
		}
		return value.ListFrom([]value.Value{value.Sym("deref"), inner}), nil
	case reader.KVarQuote:
		inner, err := FormToValue(f.Items[0], sq)
		if err != nil {
			return nil, err
		}
		return value.ListFrom([]value.Value{value.Sym("var"), inner}), nil
	case reader.KSyntaxQuote:
		rawVal, err := FormToValue(f.Items[0], sq)
		if err != nil {
			return nil, err
		}
		if sq == nil {
			return nil, rterr.New(rterr.ReadError, "internal error: syntax-quote expander not configured, at %d:%d", f.Line, f.Col)
		}
		return sq.Expand(rawVal)
	case reader.KUnquote:
		if sq == nil {
			return nil, rterr.New(rterr.ReadError, "unquote not inside syntax-quote, at %d:%d", f.Line, f.Col)
		}
		inner, err := FormToValue(f.Items[0], sq)
		if err != nil {
			return nil, err
		}
		return value.ListFrom([]value.Value{value.Sym("unquote"), inner}), nil
	case reader.KUnquoteSplicing:
		if sq == nil {
			return nil, rterr.New(rterr.ReadError, "unquote-splicing not inside syntax-quote, at %d:%d", f.Line, f.Col)
		}
		inner, err := FormToValue(f.Items[0], sq)
		if err != nil {
			return nil, err
		}
		return value.ListFrom([]value.Value{value.Sym("unquote-splicing"), inner}), nil
	case reader.KMeta:
		metaVal, err := FormToValue(f.Meta, sq)
		if err != nil {
			return nil, err
		}
		metaMap, err := asMeta(metaVal)
		if err != nil {
			return nil, err
		}
		target, err := FormToValue(f.Items[0], sq)
		if err != nil {
			return nil, err
		}
		return attachMeta(target, metaMap), nil
	case reader.KTag:
		inner, err := FormToValue(f.Items[0], sq)
		if err != nil {
			return nil, err
		}
		return value.ListFrom([]value.Value{value.NsSym("clojure.core", "read-tagged"), value.Str_(f.TagName), inner}), nil
	case reader.KDiscard:
		return nil, nil
	default:
		return nil, rterr.New(rterr.ReadError, "unhandled form kind, at %d:%d", f.Line, f.Col)
	}
}

// convertSeq converts a slice of child Forms to Values, dropping any
// #_ discards (FormToValue returns a nil Value for those).
func convertSeq(items []*reader.Form, sq *syntaxquote.Expander) ([]value.Value, error) {
	out := make([]value.Value, 0, len(items))
	for _, item := range items {
		v, err := FormToValue(item, sq)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func asMeta(v value.Value) (*value.PersistentMap, error) {
	switch m := v.(type) {
	case *value.PersistentMap:
		return m, nil
	case *value.Keyword:
		return value.EmptyMap().Assoc(m, value.True), nil
	case *value.Symbol:
		return value.EmptyMap().Assoc(value.Kw("", "tag"), m), nil
	case *value.Str:
		return value.EmptyMap().Assoc(value.Kw("", "tag"), m), nil
	default:
		return nil, rterr.New(rterr.ReadError, "metadata must be a map, keyword, symbol or string")
	}
}

// attachMeta assigns metadata on symbols and (for everything else)
// wraps the form so the analyzer can apply it after evaluation, since
// only Symbol carries a built-in Meta field in this Value model.
func attachMeta(target value.Value, meta *value.PersistentMap) value.Value {
	if sym, ok := target.(*value.Symbol); ok {
		return sym.WithMeta(meta)
	}
	return value.ListFrom([]value.Value{value.NsSym("clojure.core", "with-meta*"), target, meta})
}
