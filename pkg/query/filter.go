package query

import (
	"strings"

	"github.com/leapstack-labs/insightql/pkg/core"
)

// Filter is a WHERE node. Structural checks happen when the node is parsed,
// so Eval never fails: a record either matches or it does not.
type Filter interface {
	Eval(rec core.Record) bool
	// walkKeys calls fn for every qualified key referenced by the node.
	walkKeys(fn func(Key))
}

// True matches every record. It is the empty WHERE object.
type True struct{}

// And matches when every operand matches.
type And struct{ Filters []Filter }

// Or matches when any operand matches.
type Or struct{ Filters []Filter }

// Not negates its operand.
type Not struct{ Filter Filter }

// CompareOp is a numeric comparison.
type CompareOp string

// Comparison operators.
const (
	OpLT CompareOp = "LT"
	OpGT CompareOp = "GT"
	OpEQ CompareOp = "EQ"
)

// Compare matches records whose numeric field compares to Value under Op.
// Absent or non-numeric fields never match.
type Compare struct {
	Op    CompareOp
	Key   Key
	Value float64
}

// Match matches records whose string field satisfies Pattern.
// Non-string fields never match.
type Match struct {
	Key     Key
	Pattern Pattern
}

func (True) Eval(core.Record) bool { return true }

func (f And) Eval(rec core.Record) bool {
	for _, sub := range f.Filters {
		if !sub.Eval(rec) {
			return false
		}
	}
	return true
}

func (f Or) Eval(rec core.Record) bool {
	for _, sub := range f.Filters {
		if sub.Eval(rec) {
			return true
		}
	}
	return false
}

func (f Not) Eval(rec core.Record) bool { return !f.Filter.Eval(rec) }

func (f Compare) Eval(rec core.Record) bool {
	v := rec.Get(f.Key.Field)
	if !v.IsNumber() {
		return false
	}
	switch f.Op {
	case OpLT:
		return v.Num < f.Value
	case OpGT:
		return v.Num > f.Value
	default:
		return v.Num == f.Value
	}
}

func (f Match) Eval(rec core.Record) bool {
	v := rec.Get(f.Key.Field)
	if !v.IsString() {
		return false
	}
	return f.Pattern.Matches(v.Str)
}

func (True) walkKeys(func(Key)) {}

func (f And) walkKeys(fn func(Key)) {
	for _, sub := range f.Filters {
		sub.walkKeys(fn)
	}
}

func (f Or) walkKeys(fn func(Key)) {
	for _, sub := range f.Filters {
		sub.walkKeys(fn)
	}
}

func (f Not) walkKeys(fn func(Key))     { f.Filter.walkKeys(fn) }
func (f Compare) walkKeys(fn func(Key)) { fn(f.Key) }
func (f Match) walkKeys(fn func(Key))   { fn(f.Key) }

// MatchMode selects how a pattern's literal text is compared.
type MatchMode int

// Match modes, from the position of the wildcards.
const (
	MatchAll      MatchMode = iota // "*"
	MatchExact                     // "abc"
	MatchPrefix                    // "abc*"
	MatchSuffix                    // "*abc"
	MatchContains                  // "*abc*"
)

// Pattern is a compiled IS pattern.
type Pattern struct {
	Mode MatchMode
	Text string
}

// CompilePattern compiles an IS pattern. A '*' is allowed only as the first
// or last character.
func CompilePattern(p string) (Pattern, error) {
	if p == "*" {
		return Pattern{Mode: MatchAll}, nil
	}
	if len(p) > 2 && strings.Contains(p[1:len(p)-1], "*") {
		return Pattern{}, core.NewValidationErrorf("invalid pattern %q: wildcard '*' in the middle", p)
	}

	starts := strings.HasPrefix(p, "*")
	text := strings.TrimPrefix(p, "*")
	ends := strings.HasSuffix(text, "*")
	text = strings.TrimSuffix(text, "*")

	switch {
	case starts && ends:
		return Pattern{Mode: MatchContains, Text: text}, nil
	case starts:
		return Pattern{Mode: MatchSuffix, Text: text}, nil
	case ends:
		return Pattern{Mode: MatchPrefix, Text: text}, nil
	default:
		return Pattern{Mode: MatchExact, Text: text}, nil
	}
}

// Matches reports whether s satisfies the pattern.
func (p Pattern) Matches(s string) bool {
	switch p.Mode {
	case MatchAll:
		return true
	case MatchPrefix:
		return strings.HasPrefix(s, p.Text)
	case MatchSuffix:
		return strings.HasSuffix(s, p.Text)
	case MatchContains:
		return strings.Contains(s, p.Text)
	default:
		return s == p.Text
	}
}
