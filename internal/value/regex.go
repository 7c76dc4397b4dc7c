package value

import "regexp"

// Regex is a compiled pattern. It wraps Go's stdlib regexp/RE2 engine
// rather than a hand-rolled NFA — no third-party regex engine appears
// anywhere in the example pack, and RE2 covers every construct spec
// §4.I requires (literals, classes, anchors, greedy/lazy repetition,
// alternation, capturing/non-capturing groups); see DESIGN.md for the
// full justification of this one stdlib-backed component.
type Regex struct {
	Source     string
	compiled   *regexp.Regexp
	groupCount int
}

func CompileRegex(source string) (*Regex, error) {
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}
	return &Regex{Source: source, compiled: re, groupCount: re.NumSubexp()}, nil
}

func (r *Regex) Tag() Tag       { return TagRegex }
func (r *Regex) Hash() uint32   { return hashBytes([]byte(r.Source)) }
func (r *Regex) GroupCount() int { return r.groupCount }

// MatchResult is a single match: overall span plus per-group spans
// (a group span is (−1,−1) when that group did not participate; callers
// converting to a Value must check Spans, not just Groups, since Groups
// stores "" for an unmatched group for lack of a nil string).
type MatchResult struct {
	Groups []string // Groups[0] is the whole match
	Spans  [][2]int
}

// FindAt finds the next match at or after pos in s, returning nil if
// none. An empty-width match is reported as-is; the caller (Matcher)
// is responsible for advancing the cursor by one to avoid looping, per
// spec §4.I.
func (r *Regex) FindAt(s string, pos int) *MatchResult {
	if pos > len(s) {
		return nil
	}
	loc := r.compiled.FindStringSubmatchIndex(s[pos:])
	if loc == nil {
		return nil
	}
	n := len(loc) / 2
	groups := make([]string, n)
	spans := make([][2]int, n)
	for i := 0; i < n; i++ {
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 {
			spans[i] = [2]int{-1, -1}
			groups[i] = ""
			continue
		}
		spans[i] = [2]int{start + pos, end + pos}
		groups[i] = s[start+pos : end+pos]
	}
	return &MatchResult{Groups: groups, Spans: spans}
}

func (r *Regex) FindAll(s string) []*MatchResult {
	var out []*MatchResult
	pos := 0
	for pos <= len(s) {
		m := r.FindAt(s, pos)
		if m == nil {
			break
		}
		out = append(out, m)
		if m.Spans[0][1] == m.Spans[0][0] {
			pos = m.Spans[0][1] + 1
		} else {
			pos = m.Spans[0][1]
		}
	}
	return out
}

// Matches reports whether the whole string s matches r, for re-matches.
func (r *Regex) Matches(s string) *MatchResult {
	loc := r.compiled.FindStringSubmatchIndex(s)
	if loc == nil || loc[0] != 0 || loc[1] != len(s) {
		return nil
	}
	n := len(loc) / 2
	groups := make([]string, n)
	spans := make([][2]int, n)
	for i := 0; i < n; i++ {
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 {
			spans[i] = [2]int{-1, -1}
			continue
		}
		spans[i] = [2]int{start, end}
		groups[i] = s[start:end]
	}
	return &MatchResult{Groups: groups, Spans: spans}
}

// Matcher binds a compiled Regex to an input string and tracks a
// position cursor for stateful iteration via re-matcher + re-find.
type Matcher struct {
	Pattern *Regex
	Input   string
	pos     int
	last    *MatchResult
}

func NewMatcher(p *Regex, input string) *Matcher {
	return &Matcher{Pattern: p, Input: input}
}

func (m *Matcher) Tag() Tag     { return TagMatcher }
func (m *Matcher) Hash() uint32 { return hashBytes([]byte(m.Input)) ^ uint32(m.pos) }

// Find advances the cursor and returns the next match, or nil when
// exhausted. Mirrors re-find called repeatedly on a re-matcher.
func (m *Matcher) Find() *MatchResult {
	res := m.Pattern.FindAt(m.Input, m.pos)
	if res == nil {
		m.last = nil
		return nil
	}
	if res.Spans[0][1] == res.Spans[0][0] {
		m.pos = res.Spans[0][1] + 1
	} else {
		m.pos = res.Spans[0][1]
	}
	m.last = res
	return res
}

func (m *Matcher) Last() *MatchResult { return m.last }

func (m *Matcher) Reset() {
	m.pos = 0
	m.last = nil
}
