// Package retrieval selects the corpus sections relevant to a question.
//
// Matching is lexical: a query term matches a section when it equals or shares a
// stem with one of the section's terms, or occurs verbatim inside its title or text. The corpus is small and static, so every query scans
// all sections inline.
package retrieval

import (
	"sort"

	"lexassist-backend/models"
)

const (
	DefaultTopK    = 8
	DefaultTopActs = 3
)

// Options bounds the size of a match result
type Options struct {
	TopK    int // maximum sections returned
	TopActs int // maximum acts surfaced as selected acts
}

// Index holds pre-tokenized sections in declaration order
type Index struct {
	sections []models.Section
	terms    []TermSet
}

// NewIndex tokenizes sections once so repeated queries skip that work
func NewIndex(sections []models.Section) *Index {
	idx := &Index{
		sections: sections,
		terms:    make([]TermSet, len(sections)),
	}
	for i, s := range sections {
		idx.terms[i] = NewTermSet(s.Title + " " + s.Text)
	}
	return idx
}

// Len returns the number of indexed sections
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.sections)
}

// Result is the outcome of matching one query
type Result struct {
	QueryTerms       []string
	References       []models.Reference
	Sections         []models.Section // section records behind References, same order
	SelectedActs     []string
	SelectedSections []string
}

// Grounded reports whether any section matched
func (r *Result) Grounded() bool {
	return r != nil && len(r.References) > 0
}

// Matcher ranks sections against a query
type Matcher struct {
	opts Options
}

// NewMatcher creates a matcher, zero options fall back to the defaults
func NewMatcher(opts Options) *Matcher {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.TopActs <= 0 {
		opts.TopActs = DefaultTopActs
	}
	return &Matcher{opts: opts}
}

// Match scores an ad-hoc list of sections, e.g. an uploaded document
func (m *Matcher) Match(query string, sections []models.Section) *Result {
	return m.Search(query, NewIndex(sections))
}

// Search scores every indexed section against query.
// Sections sharing no term with the query are excluded; an empty result is not an error.
func (m *Matcher) Search(query string, idx *Index) *Result {
	terms := Tokens(query)
	result := &Result{
		QueryTerms:       terms,
		References:       []models.Reference{},
		Sections:         []models.Section{},
		SelectedActs:     []string{},
		SelectedSections: []string{},
	}
	if len(terms) == 0 || idx.Len() == 0 {
		return result
	}

	type hit struct {
		pos     int
		matched []string
	}
	hits := make([]hit, 0)
	for i, set := range idx.terms {
		var matched []string
		for _, term := range terms {
			if set.Contains(term) {
				matched = append(matched, term)
			}
		}
		if len(matched) > 0 {
			hits = append(hits, hit{pos: i, matched: matched})
		}
	}

	// stable sort keeps declaration order among equal scores
	sort.SliceStable(hits, func(a, b int) bool {
		return len(hits[a].matched) > len(hits[b].matched)
	})
	if len(hits) > m.opts.TopK {
		hits = hits[:m.opts.TopK]
	}

	for _, h := range hits {
		s := idx.sections[h.pos]
		ref := models.Reference{
			Act:             s.Act,
			Section:         s.Section,
			Title:           s.Title,
			MatchedKeywords: h.matched,
			Score:           len(h.matched),
		}
		result.References = append(result.References, ref)
		result.Sections = append(result.Sections, s)
		result.SelectedSections = append(result.SelectedSections, ref.Label())
	}
	result.SelectedActs = m.rankActs(result.References)
	return result
}

// rankActs orders acts by their summed section score, first appearance breaks ties
func (m *Matcher) rankActs(refs []models.Reference) []string {
	type actScore struct {
		name  string
		score int
	}
	var acts []actScore
	pos := make(map[string]int)
	for _, ref := range refs {
		i, ok := pos[ref.Act]
		if !ok {
			i = len(acts)
			pos[ref.Act] = i
			acts = append(acts, actScore{name: ref.Act})
		}
		acts[i].score += ref.Score
	}
	sort.SliceStable(acts, func(a, b int) bool {
		return acts[a].score > acts[b].score
	})
	if len(acts) > m.opts.TopActs {
		acts = acts[:m.opts.TopActs]
	}
	names := make([]string, len(acts))
	for i, a := range acts {
		names[i] = a.name
	}
	return names
}
