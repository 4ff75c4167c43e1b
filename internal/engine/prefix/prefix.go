// Package prefix holds the category-prefix rule shared by field
// normalization and code resolution, and the record → prefix extractor.
package prefix

import (
	"sort"
	"strings"

	"github.com/crimson-sun/trendwatch/internal/model"
)

// Width is the number of characters in a category prefix.
const Width = 3

// Alnum strips every character that is not an ASCII letter or digit and
// upper-cases the rest.
func Alnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Of returns the prefix of a code: its first Width alphanumeric characters,
// upper-cased. ok is false when fewer than Width remain.
func Of(code string) (p string, ok bool) {
	a := Alnum(code)
	if len(a) < Width {
		return "", false
	}
	return a[:Width], true
}

// Valid reports whether a code is long enough to yield a prefix.
func Valid(code string) bool {
	_, ok := Of(code)
	return ok
}

// Association links a record to one of its prefixes.
type Association struct {
	Prefix string
	Record *model.Record
}

// Extractor derives prefix associations from resolved records.
type Extractor struct {
	// IncludeUnresolved lets codes that no tier resolved contribute their
	// raw prefix. Used when no classification table is loaded.
	IncludeUnresolved bool
}

// Prefixes returns the distinct prefixes of a record in ascending order.
func (e Extractor) Prefixes(r *model.Record) []string {
	seen := make(map[string]struct{}, len(r.Resolved))
	var out []string
	for _, rc := range r.Resolved {
		if rc.Prefix == "" {
			continue
		}
		if !rc.Resolved() && !e.IncludeUnresolved {
			continue
		}
		if _, dup := seen[rc.Prefix]; dup {
			continue
		}
		seen[rc.Prefix] = struct{}{}
		out = append(out, rc.Prefix)
	}
	sort.Strings(out)
	return out
}

// Extract emits one association per distinct prefix per record. A record
// with several prefixes contributes to each of them independently.
func (e Extractor) Extract(records []*model.Record) []Association {
	var out []Association
	for _, r := range records {
		for _, p := range e.Prefixes(r) {
			out = append(out, Association{Prefix: p, Record: r})
		}
	}
	return out
}

// Split splits a multi-code field on sep, trims and upper-cases each entry
// and drops entries too short to yield a prefix. skipped counts the dropped
// non-empty entries.
func Split(field, sep string) (codes []string, skipped int) {
	if model.IsBlank(field) {
		return nil, 0
	}
	if sep == "" {
		sep = "|"
	}
	for _, part := range strings.Split(field, sep) {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if !Valid(code) {
			skipped++
			continue
		}
		codes = append(codes, code)
	}
	return codes, skipped
}
