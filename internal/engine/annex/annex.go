// Package annex holds the Level-1/2/3 classification table. A Table is built
// once at startup and is read-only afterwards, so it is safe to share across
// concurrent analysis runs.
package annex

import (
	"regexp"
	"sort"
	"strings"

	"github.com/crimson-sun/trendwatch/internal/model"
)

// NotAvailableTerm is the placeholder problem text that never maps to a code.
const NotAvailableTerm = "Appropriate Term/Code Not Available"

// Entry is one coded term of the table.
type Entry struct {
	Code  string
	Term  string
	Level int
}

// Table is the immutable classification hierarchy.
type Table struct {
	byCode map[string]Entry
	byTerm [4]map[string]string // level → normalized term → code
	nodes  map[string]*model.Node
	roots  []*model.Node
}

// New builds a Table. Codes of length 3, 5 and 7 are Level 1, 2 and 3; other
// lengths are ignored. The first entry for a code or term wins.
func New(entries []Entry) *Table {
	t := &Table{
		byCode: make(map[string]Entry, len(entries)),
		nodes:  make(map[string]*model.Node, len(entries)),
	}
	for i := range t.byTerm {
		t.byTerm[i] = make(map[string]string)
	}

	for _, e := range entries {
		e.Code = strings.ToUpper(strings.TrimSpace(e.Code))
		e.Term = strings.TrimSpace(e.Term)
		e.Level = levelOf(e.Code)
		if e.Level == 0 {
			continue
		}
		if _, dup := t.byCode[e.Code]; dup {
			continue
		}
		t.byCode[e.Code] = e
		if nt := NormTerm(e.Term); nt != "" {
			if _, dup := t.byTerm[e.Level][nt]; !dup {
				t.byTerm[e.Level][nt] = e.Code
			}
		}
		t.nodes[e.Code] = &model.Node{Code: e.Code, Term: e.Term, Level: e.Level}
	}

	codes := make([]string, 0, len(t.nodes))
	for c := range t.nodes {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		n := t.nodes[c]
		switch n.Level {
		case 1:
			t.roots = append(t.roots, n)
		case 2:
			if p, ok := t.nodes[c[:3]]; ok {
				p.Children = append(p.Children, n)
			}
		case 3:
			if p, ok := t.nodes[c[:5]]; ok {
				p.Children = append(p.Children, n)
			}
		}
	}
	return t
}

func levelOf(code string) int {
	switch len(code) {
	case 3:
		return 1
	case 5:
		return 2
	case 7:
		return 3
	}
	return 0
}

// Len returns the number of coded entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byCode)
}

// Lookup finds an entry by exact code.
func (t *Table) Lookup(code string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.byCode[code]
	return e, ok
}

// LookupTerm finds an entry by normalized term, preferring Level 3, then 2, then 1.
func (t *Table) LookupTerm(text string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	nt := NormTerm(text)
	if nt == "" {
		return Entry{}, false
	}
	for level := 3; level >= 1; level-- {
		if code, ok := t.byTerm[level][nt]; ok {
			return t.byCode[code], true
		}
	}
	return Entry{}, false
}

// Roots returns the Level-1 nodes in code order. Callers must not modify them.
func (t *Table) Roots() []*model.Node {
	if t == nil {
		return nil
	}
	return t.roots
}

// Term returns the term for a code, or "".
func (t *Table) Term(code string) string {
	e, _ := t.Lookup(code)
	return e.Term
}

// Consistent reports whether the codes form a valid path in the table:
// every non-empty level exists and descends from the one above it.
func (t *Table) Consistent(l1, l2, l3 string) bool {
	if l1 == "" {
		return false
	}
	if e, ok := t.Lookup(l1); !ok || e.Level != 1 {
		return false
	}
	if l2 == "" {
		return l3 == ""
	}
	if e, ok := t.Lookup(l2); !ok || e.Level != 2 || !strings.HasPrefix(l2, l1) {
		return false
	}
	if l3 == "" {
		return true
	}
	e, ok := t.Lookup(l3)
	return ok && e.Level == 3 && strings.HasPrefix(l3, l2)
}

var (
	spaceRun    = regexp.MustCompile(`\s+`)
	slashSpaces = regexp.MustCompile(`\s*/\s*`)
	trailPunct  = regexp.MustCompile(`[.,;:]+$`)
)

// NormTerm normalizes a descriptive term for matching: lower-cased, runs of
// whitespace collapsed, spaces around "/" removed, trailing ".,;:" dropped.
func NormTerm(s string) string {
	if model.IsBlank(s) {
		return ""
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = spaceRun.ReplaceAllString(s, " ")
	s = slashSpaces.ReplaceAllString(s, "/")
	s = trailPunct.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
