package qca

import (
	"fmt"
	"strings"
)

// Formula notation
const (
	NegationMark   = "~"
	ConjunctionSep = " * "
	DisjunctionSep = " + "
	// TautologyTerm is the conjunction with no literals
	TautologyTerm = "1"
)

// Literal is a condition name or its negation
type Literal struct {
	Condition string `json:"condition"`
	Negated   bool   `json:"negated"`
}

// String renders the literal as name or ~name
func (l Literal) String() string {
	if l.Negated {
		return NegationMark + l.Condition
	}
	return l.Condition
}

// Holds reports whether the literal is satisfied by a membership value
func (l Literal) Holds(value int) bool {
	return (value == 1) != l.Negated
}

// Term is a conjunction of literals
type Term []Literal

// TermFromCombination builds the full conjunction for one truth-table row
func TermFromCombination(conditions []string, combination []int) Term {
	term := make(Term, len(conditions))
	for i, name := range conditions {
		term[i] = Literal{Condition: name, Negated: combination[i] == 0}
	}
	return term
}

// String renders the term joined with " * "
func (t Term) String() string {
	if len(t) == 0 {
		return TautologyTerm
	}
	parts := make([]string, len(t))
	for i, l := range t {
		parts[i] = l.String()
	}
	return strings.Join(parts, ConjunctionSep)
}

// Matches reports whether a case's values satisfy every literal
func (t Term) Matches(values map[string]int) bool {
	for _, l := range t {
		if !l.Holds(values[l.Condition]) {
			return false
		}
	}
	return true
}

// JoinTerms renders a sum of products
func JoinTerms(terms []Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, DisjunctionSep)
}

// ParseTerm parses "A * ~B" back into literals
func ParseTerm(s string) (Term, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty term", ErrInvalidFormula)
	}
	if s == TautologyTerm {
		return Term{}, nil
	}
	fields := strings.Split(s, "*")
	term := make(Term, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		negated := strings.HasPrefix(f, NegationMark)
		name := strings.TrimSpace(strings.TrimPrefix(f, NegationMark))
		if name == "" {
			return nil, fmt.Errorf("%w: empty literal in %q", ErrInvalidFormula, s)
		}
		term = append(term, Literal{Condition: name, Negated: negated})
	}
	return term, nil
}

// ParseFormula parses "A * B + ~C" into terms. The no-solution sentinel parses to no terms.
func ParseFormula(s string) ([]Term, error) {
	s = strings.TrimSpace(s)
	if s == NoSufficientConditions || s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "+")
	terms := make([]Term, 0, len(parts))
	for _, p := range parts {
		t, err := ParseTerm(p)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, nil
}
