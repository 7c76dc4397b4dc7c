package evaluator

import (
	"github.com/cloverlang/clover/internal/rterr"
	"github.com/cloverlang/clover/internal/value"
)

// Thrown wraps a clover Value being propagated as a Go error, so `throw`
// of an arbitrary value (not just rterr.Error) can travel through
// ordinary Go error returns up to the nearest matching `catch`. Spec has
// no class hierarchy (Non-goal: no user type system), so catch matching
// is by a Kind tag rather than a real type check — see matchesCatch.
type Thrown struct {
	V value.Value
}

func (t *Thrown) Error() string {
	if exc, ok := t.V.(*value.ExceptionInfo); ok {
		return exc.Message
	}
	return value.Str(t.V)
}

// reify turns any Go error into the clover Value a `catch` binding sees:
// a *rterr.Error becomes an ExceptionInfo tagged with its Kind; a
// *Thrown of an ExceptionInfo or arbitrary value passes through or
// unwraps; anything else becomes a generic eval-error ExceptionInfo.
func reify(err error) value.Value {
	if t, ok := err.(*Thrown); ok {
		return t.V
	}
	if re, ok := err.(*rterr.Error); ok {
		if re.Thrown != nil {
			if v, ok := re.Thrown.(value.Value); ok {
				return v
			}
		}
		return value.NewExceptionInfo(re.Message, nil, string(re.Kind))
	}
	return value.NewExceptionInfo(err.Error(), nil, string(rterr.EvalError))
}

// matchesCatch reports whether a catch clause's declared type filter
// accepts an exception Value: :default accepts anything; a keyword
// matches an ExceptionInfo's Kind tag (or the literal string "user-
// exception" wrapper for a thrown, non-ExceptionInfo value); anything
// else matches only by Eql identity (catching a literal sentinel value).
func matchesCatch(filter value.Value, exc value.Value) bool {
	kw, ok := filter.(*value.Keyword)
	if !ok {
		return value.Eql(filter, exc)
	}
	if kw.Ns == "" && kw.Name == "default" {
		return true
	}
	if ei, ok := exc.(*value.ExceptionInfo); ok {
		return kw.Ns == "" && kw.Name == ei.Kind
	}
	return kw.Ns == "" && kw.Name == "user-exception"
}
