package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Inspector is implemented by Value types that live outside this
// package (Fn in package evaluator, Var in package runtime, MultiFn in
// package multimethod) so Str/PrStr can still render them without this
// package importing theirs.
type Inspector interface {
	InspectStr() string
}

// Str renders v the non-readable way: strings unquoted, chars as raw
// runes, nil as empty — used by (str ...) concatenation, spec §4.A.
func Str(v Value) string {
	if v == nil || v.Tag() == TagNil {
		return ""
	}
	return render(v, false)
}

// PrStr renders v the readable way: strings quoted with escapes, chars
// as \name or \x, nil as "nil" — must round-trip through the reader for
// all printable data, spec §4.A / testable property 2.
func PrStr(v Value) string {
	return render(v, true)
}

func render(v Value, readable bool) string {
	var b strings.Builder
	writeValue(&b, v, readable)
	return b.String()
}

func writeValue(b *strings.Builder, v Value, readable bool) {
	if v == nil {
		if readable {
			b.WriteString("nil")
		}
		return
	}
	switch t := v.(type) {
	case *Nil:
		b.WriteString("nil")
	case *Bool:
		if t.Value {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case *Int:
		b.WriteString(strconv.FormatInt(t.Value, 10))
	case *Float:
		b.WriteString(formatFloat(t.Value))
	case *Char:
		if readable {
			b.WriteString(escapeChar(t.Value))
		} else {
			b.WriteRune(t.Value)
		}
	case *Str:
		if readable {
			b.WriteString(escapeString(t.Value))
		} else {
			b.WriteString(t.Value)
		}
	case *Symbol:
		b.WriteString(t.String())
	case *Keyword:
		b.WriteByte(':')
		b.WriteString(t.String())
	case *List:
		b.WriteByte('(')
		writeSeq(b, t.Slice(), readable)
		b.WriteByte(')')
	case *Vector:
		b.WriteByte('[')
		writeSeq(b, t.Slice(), readable)
		b.WriteByte(']')
	case *PersistentMap:
		b.WriteByte('{')
		first := true
		t.Each(func(k, val Value) {
			if !first {
				b.WriteString(", ")
			}
			first = false
			writeValue(b, k, readable)
			b.WriteByte(' ')
			writeValue(b, val, readable)
		})
		b.WriteByte('}')
	case *Set:
		b.WriteString("#{")
		writeSeq(b, t.Slice(), readable)
		b.WriteByte('}')
	case *Cons:
		b.WriteByte('(')
		writeSeq(b, ToSlice(t), readable)
		b.WriteByte(')')
	case *LazySeq:
		res, err := t.Force()
		if err != nil {
			b.WriteString("#<error realizing lazy-seq>")
			return
		}
		writeValue(b, res, readable)
	case *vectorSeq:
		b.WriteByte('(')
		writeSeq(b, ToSlice(t), readable)
		b.WriteByte(')')
	case *ChunkedCons:
		b.WriteByte('(')
		writeSeq(b, ToSlice(t), readable)
		b.WriteByte(')')
	case *Regex:
		b.WriteString("#\"")
		b.WriteString(t.Source)
		b.WriteByte('"')
	case *Atom:
		fmt.Fprintf(b, "#<Atom %s>", render(t.slot, readable))
	case *VolatileRef:
		fmt.Fprintf(b, "#<Volatile %s>", render(t.slot, readable))
	case *Delay:
		if t.realized {
			fmt.Fprintf(b, "#<Delay %s>", render(t.result, readable))
		} else {
			b.WriteString("#<Delay pending>")
		}
	case *Reduced:
		fmt.Fprintf(b, "#<Reduced %s>", render(t.Value, readable))
	case *BuiltinFn:
		fmt.Fprintf(b, "#<builtin-fn %s>", t.Name)
	case *TransientVector, *TransientMap, *TransientSet:
		fmt.Fprintf(b, "#<transient %s>", v.Tag())
	case *ExceptionInfo:
		fmt.Fprintf(b, "#error{:cause %s, :data %s}", escapeString(t.Message), render(t.Data, readable))
	case Inspector:
		b.WriteString(t.InspectStr())
	default:
		fmt.Fprintf(b, "#<%s>", v.Tag())
	}
}

func writeSeq(b *strings.Builder, items []Value, readable bool) {
	for i, it := range items {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeValue(b, it, readable)
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

var charNames = map[rune]string{
	'\n': "newline",
	' ':  "space",
	'\t': "tab",
	'\r': "return",
	'\b': "backspace",
	'\f': "formfeed",
}

func escapeChar(r rune) string {
	if name, ok := charNames[r]; ok {
		return "\\" + name
	}
	if r < 0x20 || r == 0x7f {
		return fmt.Sprintf("\\u%04x", r)
	}
	return "\\" + string(r)
}

func escapeString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
