package analyzer

// Scope is the analyzer's lexical-frame chain, used only to resolve a
// symbol to (depth, name) for ast.KLocalRef — the evaluator's actual
// environment is a separate, parallel structure built at eval time.
type Scope struct {
	names  []string
	parent *Scope
}

func NewScope(parent *Scope, names []string) *Scope {
	return &Scope{names: names, parent: parent}
}

// Resolve returns the frame-distance (0 = innermost) and true if name is
// bound somewhere in this scope chain.
func (s *Scope) Resolve(name string) (int, bool) {
	depth := 0
	for f := s; f != nil; f = f.parent {
		for _, n := range f.names {
			if n == name {
				return depth, true
			}
		}
		depth++
	}
	return 0, false
}

// Flatten collects every name visible in this chain, innermost first,
// used to compute a fn's free-variable capture set.
func (s *Scope) Flatten() map[string]bool {
	out := make(map[string]bool)
	for f := s; f != nil; f = f.parent {
		for _, n := range f.names {
			out[n] = true
		}
	}
	return out
}
