package retrieval

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// minTokenLength drops tokens too short to carry meaning ("a", "of", "to")
const minTokenLength = 3

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		about above after again against all also and any are because been before
		being below between both but can cannot could did does doing down during each
		few for from further had has have having her here hers herself him himself his
		how into its itself just more most myself nor not now off once only other our
		ours ourselves out over own same she should some such than that the their
		theirs them themselves then there these they this those through too under
		until very was were what when where which while who whom why will with would
		you your yours yourself yourselves shall may must might upon within without
		please tell explain know want need regarding malaysia malaysian law laws legal`) {
		stopwords[w] = struct{}{}
	}
}

// fold applies NFKC and Unicode case folding; a Caser is stateful so one is built per call
func fold(text string) string {
	return cases.Fold().String(norm.NFKC.String(text))
}

// Tokens returns the non-trivial terms of text in order of first appearance, without duplicates.
func Tokens(text string) []string {
	folded := fold(text)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !keep(f) {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// NewTermSet indexes the tokens of text by exact form and by stem and keeps the folded text
func NewTermSet(text string) TermSet {
	tokens := Tokens(text)
	set := TermSet{
		exact:  make(map[string]struct{}, len(tokens)),
		stems:  make(map[string]struct{}, len(tokens)),
		folded: fold(text),
	}
	for _, tok := range tokens {
		set.exact[tok] = struct{}{}
		set.stems[stem(tok)] = struct{}{}
	}
	return set
}

// TermSet is the searchable vocabulary of one section
type TermSet struct {
	exact  map[string]struct{}
	stems  map[string]struct{}
	folded string
}

// Contains reports whether token occurs in the set exactly, by shared stem, or as a
// substring of the folded text ("pay" in "repayment"). token must already be folded.
func (s TermSet) Contains(token string) bool {
	if _, ok := s.exact[token]; ok {
		return true
	}
	if _, ok := s.stems[stem(token)]; ok {
		return true
	}
	return len([]rune(token)) >= minTokenLength && strings.Contains(s.folded, token)
}

func keep(token string) bool {
	if len([]rune(token)) < minTokenLength {
		return false
	}
	_, stop := stopwords[token]
	return !stop
}

var suffixes = []string{"ments", "ment", "ings", "ing", "ies", "ed", "es", "s"}

// stem strips one common English inflection. It only widens matching,
// exact token hits never depend on it.
func stem(token string) string {
	for _, suf := range suffixes {
		if strings.HasSuffix(token, suf) && len(token)-len(suf) >= 4 {
			base := strings.TrimSuffix(token, suf)
			if suf == "ies" {
				base += "y"
			}
			return base
		}
	}
	return token
}
