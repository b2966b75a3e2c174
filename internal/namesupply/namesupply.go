// Package namesupply hands out collision-free C identifiers and remembers
// interned global symbols for the duration of one generation pass.
package namesupply

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// cReserved are never handed out verbatim.
var cReserved = []string{
	"auto", "bool", "break", "case", "char", "const", "continue", "default",
	"do", "double", "else", "enum", "extern", "float", "for", "goto", "if",
	"inline", "int", "long", "register", "restrict", "return", "short",
	"signed", "sizeof", "static", "struct", "switch", "typedef", "union",
	"unsigned", "void", "volatile", "while", "half", "NULL", "true", "false",
	"TVMValue", "DLTensor", "TVM_DLL",
}

// Supply issues identifiers. The zero value is not usable; call New.
type Supply struct {
	// next holds the last suffix tried for a base name.
	next map[string]int
	used map[string]struct{}
}

// New returns a supply with the C keywords and runtime type names reserved.
func New() *Supply {
	s := &Supply{
		next: make(map[string]int),
		used: make(map[string]struct{}, len(cReserved)),
	}
	for _, kw := range cReserved {
		s.used[kw] = struct{}{}
	}
	return s
}

// Reserve claims name exactly. It returns false when name is not a valid
// identifier or has already been issued or reserved.
func (s *Supply) Reserve(name string) bool {
	if Sanitize(name) != name {
		return false
	}
	if _, ok := s.used[name]; ok {
		return false
	}
	s.used[name] = struct{}{}
	return true
}

// Contains reports whether name has been issued or reserved.
func (s *Supply) Contains(name string) bool {
	_, ok := s.used[name]
	return ok
}

// FreshName returns an identifier derived from hint that was never returned
// before. Collisions are resolved with "_1", "_2", ... suffixes.
func (s *Supply) FreshName(hint string) string {
	base := Sanitize(hint)
	if _, ok := s.used[base]; !ok {
		s.used[base] = struct{}{}
		return base
	}
	for i := s.next[base] + 1; ; i++ {
		cand := base + "_" + strconv.Itoa(i)
		if _, ok := s.used[cand]; ok {
			continue
		}
		s.next[base] = i
		s.used[cand] = struct{}{}
		return cand
	}
}

// Sanitize turns an arbitrary hint into a C identifier. Accents are dropped,
// every other character outside [A-Za-z0-9_] becomes '_', and a leading digit
// is prefixed with '_'. An empty hint yields "v".
func Sanitize(hint string) string {
	// Chained transformers carry state, so each call builds its own.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, hint)
	if err != nil {
		folded = hint
	}
	var sb strings.Builder
	sb.Grow(len(folded) + 1)
	for _, r := range folded {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if out == "" {
		return "v"
	}
	if out[0] >= '0' && out[0] <= '9' {
		return "_" + out
	}
	return out
}
