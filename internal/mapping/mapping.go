// Package mapping resolves which source columns land in which destination
// columns.
//
// A Mapping is either explicit (read from a mapping file) or automatic, in
// which case source headers are matched to destination columns ignoring
// case. Either way it is an ordered list of source -> destination pairs with
// unique sources and unique destinations, and it is never modified after
// construction.
package mapping

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"sheetimport/internal/config"
	"sheetimport/internal/failure"
)

// Mode records how a Mapping was built.
type Mode string

const (
	ModeExplicit Mode = "explicit"
	ModeAuto     Mode = "auto"
)

// Pair maps one source column to one destination column.
type Pair struct {
	Source string
	Dest   string
}

// Mapping is an immutable, ordered set of pairs.
type Mapping struct {
	mode  Mode
	pairs []Pair
	bySrc map[string]int
}

// New builds a Mapping from pairs. Repeated sources or destinations fail
// with failure.ErrInvalidMapping.
func New(mode Mode, pairs []Pair) (Mapping, error) {
	m := Mapping{mode: mode, pairs: make([]Pair, 0, len(pairs)), bySrc: make(map[string]int, len(pairs))}
	dests := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.Source == "" || p.Dest == "" {
			return Mapping{}, failure.Newf(failure.ErrInvalidMapping, "mapping %q -> %q: names must not be empty", p.Source, p.Dest)
		}
		if _, dup := m.bySrc[p.Source]; dup {
			return Mapping{}, failure.Newf(failure.ErrInvalidMapping, "source column %q is mapped twice", p.Source)
		}
		if prev, dup := dests[p.Dest]; dup {
			return Mapping{}, errors.WithHint(
				failure.Newf(failure.ErrInvalidMapping, "source columns %q and %q both map to %q", prev, p.Source, p.Dest),
				"each destination column can receive only one source column")
		}
		dests[p.Dest] = p.Source
		m.bySrc[p.Source] = len(m.pairs)
		m.pairs = append(m.pairs, p)
	}
	return m, nil
}

// Mode returns how the mapping was built.
func (m Mapping) Mode() Mode { return m.mode }

// Len returns the number of pairs.
func (m Mapping) Len() int { return len(m.pairs) }

// Pairs returns a copy of the pairs in order.
func (m Mapping) Pairs() []Pair { return append([]Pair(nil), m.pairs...) }

// Dest returns the destination of source.
func (m Mapping) Dest(source string) (string, bool) {
	i, ok := m.bySrc[source]
	if !ok {
		return "", false
	}
	return m.pairs[i].Dest, true
}

// Dests returns the destination names in pair order.
func (m Mapping) Dests() []string {
	out := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		out[i] = p.Dest
	}
	return out
}

// IsSource reports whether name is a mapped source column.
func (m Mapping) IsSource(name string) bool {
	_, ok := m.bySrc[name]
	return ok
}

// Explicit builds a Mapping from a mapping file's columns, keeping file order.
func Explicit(cols config.ColumnMap) (Mapping, error) {
	pairs := make([]Pair, len(cols))
	for i, c := range cols {
		pairs[i] = Pair{Source: c.Source, Dest: c.Dest}
	}
	return New(ModeExplicit, pairs)
}

// Auto matches source headers to destination columns ignoring case. For
// each destination, in schema order, a source with the same fold key is
// mapped to it. When several sources fold to the same key the last source
// wins; when several destinations do, the source keeps its first position
// and maps to the last of them.
// An empty result fails with failure.ErrNoMappingFound.
func Auto(sources, schema []string) (Mapping, error) {
	byKey := make(map[string]string, len(sources))
	for _, s := range sources {
		byKey[FoldKey(s)] = s
	}
	pos := make(map[string]int, len(schema))
	var pairs []Pair
	for _, d := range schema {
		src, ok := byKey[FoldKey(d)]
		if !ok {
			continue
		}
		if i, seen := pos[src]; seen {
			pairs[i].Dest = d
			continue
		}
		pos[src] = len(pairs)
		pairs = append(pairs, Pair{Source: src, Dest: d})
	}
	if len(pairs) == 0 {
		err := failure.Newf(failure.ErrNoMappingFound,
			"no automatic matches between sheet columns and table columns")
		for _, s := range Suggest(sources, schema) {
			err = errors.WithHintf(err, "sheet column %q looks like table column %q", s.Source, s.Dest)
		}
		return Mapping{}, errors.WithHint(err, "provide --mapping to map columns")
	}
	return New(ModeAuto, pairs)
}

// Resolve picks explicit mode when file carries a columns section and auto
// mode otherwise. warnings lists explicit targets that are not destination
// columns; they are dropped at write time.
func Resolve(file *config.MappingFile, sources, schema []string) (m Mapping, warnings []string, err error) {
	if file == nil || !file.HasColumns() {
		m, err = Auto(sources, schema)
		return m, nil, err
	}
	m, err = Explicit(file.Columns)
	if err != nil {
		return Mapping{}, nil, err
	}
	known := make(map[string]bool, len(schema))
	for _, c := range schema {
		known[c] = true
	}
	for _, p := range m.pairs {
		if !known[p.Dest] {
			warnings = append(warnings, fmt.Sprintf("mapping target %q (from %q) is not a column of the destination table", p.Dest, p.Source))
		}
	}
	return m, warnings, nil
}

// FoldKey returns the case-insensitive comparison key of a column name:
// NFC-normalized, then case folded.
func FoldKey(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Suggest pairs source headers with destination columns whose identifier
// forms match (accents stripped, punctuation and spaces as underscores),
// e.g. "Full Name" and full_name. It only feeds hints; Auto never maps these.
func Suggest(sources, schema []string) []Pair {
	byIdent := make(map[string]string, len(schema))
	for _, d := range schema {
		if id := identifier(d); id != "" {
			byIdent[id] = d
		}
	}
	var out []Pair
	for _, s := range sources {
		if d, ok := byIdent[identifier(s)]; ok && d != "" {
			out = append(out, Pair{Source: s, Dest: d})
		}
	}
	return out
}

// identifier converts header text into a lowercase ASCII identifier:
// lowercase, strip accents (NFD, remove Mn, NFC), keep [a-z0-9], turn runs of
// anything else into one underscore.
func identifier(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
