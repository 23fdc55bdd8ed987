package retrieval

import (
	"reflect"
	"strings"
	"testing"

	"lexassist-backend/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var vocabulary = []string{
	"salary", "payment", "employer", "employee", "tenant", "landlord", "deposit",
	"contract", "consideration", "breach", "termination", "notice", "wages", "overtime",
}

func genWords() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, len(vocabulary)-1)).Map(func(ix []int) string {
		parts := make([]string, len(ix))
		for i, n := range ix {
			parts[i] = vocabulary[n]
		}
		return strings.Join(parts, " ")
	})
}

func genSections() gopter.Gen {
	return gen.SliceOfN(20, genWords()).Map(func(texts []string) []models.Section {
		sections := make([]models.Section, len(texts))
		for i, text := range texts {
			act := "Act A"
			if i%3 == 0 {
				act = "Act B"
			}
			sections[i] = models.Section{Act: act, Section: strings.Repeat("1", i%4+1), Text: text}
		}
		return sections
	})
}

// TestMatchProperties verifies ordering and keyword invariants of Match.
// Property: results are deterministic, ranked by score, and every reference carries its matched terms
func TestMatchProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	m := NewMatcher(Options{})

	properties.Property("same input gives same output", prop.ForAll(
		func(query string, sections []models.Section) bool {
			return reflect.DeepEqual(m.Match(query, sections), m.Match(query, sections))
		},
		genWords(), genSections(),
	))

	properties.Property("scores are non-increasing and bounded by TopK", prop.ForAll(
		func(query string, sections []models.Section) bool {
			refs := m.Match(query, sections).References
			if len(refs) > DefaultTopK {
				return false
			}
			for i := 1; i < len(refs); i++ {
				if refs[i].Score > refs[i-1].Score {
					return false
				}
			}
			return true
		},
		genWords(), genSections(),
	))

	properties.Property("every reference has matched keywords drawn from the query", prop.ForAll(
		func(query string, sections []models.Section) bool {
			result := m.Match(query, sections)
			terms := make(map[string]bool)
			for _, q := range result.QueryTerms {
				terms[q] = true
			}
			for _, ref := range result.References {
				if len(ref.MatchedKeywords) == 0 || ref.Score != len(ref.MatchedKeywords) {
					return false
				}
				for _, kw := range ref.MatchedKeywords {
					if !terms[kw] {
						return false
					}
				}
			}
			return len(result.SelectedActs) <= DefaultTopActs
		},
		genWords(), genSections(),
	))

	properties.Property("a section containing a query word verbatim always matches", prop.ForAll(
		func(word string, sections []models.Section) bool {
			sections = append(sections, models.Section{Act: "Act C", Section: "99", Text: "the " + word})
			// a single query term means every hit scores 1, so only the first TopK survive
			result := NewMatcher(Options{TopK: len(sections)}).Match(word, sections)
			for _, ref := range result.References {
				if ref.Act == "Act C" {
					return true
				}
			}
			return false
		},
		gen.IntRange(0, len(vocabulary)-1).Map(func(n int) string { return vocabulary[n] }), genSections(),
	))

	properties.Property("a query word embedded inside a longer section word still matches", prop.ForAll(
		func(word, prefix, suffix string, sections []models.Section) bool {
			sections = append(sections, models.Section{Act: "Act D", Section: "7", Text: "the " + prefix + word + suffix + " clause"})
			result := NewMatcher(Options{TopK: len(sections)}).Match(word, sections)
			for _, ref := range result.References {
				if ref.Act == "Act D" {
					return len(ref.MatchedKeywords) == 1 && ref.MatchedKeywords[0] == word
				}
			}
			return false
		},
		gen.IntRange(0, len(vocabulary)-1).Map(func(n int) string { return vocabulary[n] }),
		gen.AlphaString(),
		gen.AlphaString(),
		genSections(),
	))

	properties.TestingRun(t)
}

func TestVocabularyTokensSurvive(t *testing.T) {
	for _, w := range vocabulary {
		if got := Tokens(w); len(got) != 1 || got[0] != w {
			t.Fatalf("Tokens(%q) = %v", w, got)
		}
	}
}
