package service

import (
	"fmt"
	"regexp"
	"strings"

	"lexassist-backend/models"
)

var (
	sectionCitation = regexp.MustCompile(`(?i)\bsections?\s+(\d+[A-Za-z]?)\b`)
	actCitation     = regexp.MustCompile(`\b((?:[A-Z][A-Za-z'&-]*\s+){1,8}Act\s+\d{4})\b`)
	// text allowed between a section number and the act it belongs to: "(1) of the "
	sectionOfAct = regexp.MustCompile(`(?i)^(?:\s*\([^)\n]*\))*\s*,?\s*(?:of|under|in)?\s*(?:the\s+)?$`)
	trailingNote = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

type actMention struct {
	name       string
	key        string
	start, end int
}

// citationWarnings lists acts and sections cited in answer that are not among refs.
// A cited section is read against the act named right after it ("Section 5 of the
// Contracts Act 1950") or else the nearest act named before it. A section with no act
// in sight counts as supplied if any reference carries its number.
func citationWarnings(answer string, refs []models.Reference) []string {
	numbers := make(map[string]bool, len(refs))
	for _, r := range refs {
		numbers[strings.ToUpper(r.Section)] = true
	}

	warnings := []string{}
	seen := make(map[string]bool)
	warn := func(msg string) {
		if !seen[msg] {
			seen[msg] = true
			warnings = append(warnings, msg)
		}
	}

	var mentions []actMention
	for _, m := range actCitation.FindAllStringSubmatchIndex(answer, -1) {
		name := strings.Join(strings.Fields(answer[m[2]:m[3]]), " ")
		mention := actMention{name: name, key: actKey(name), start: m[2], end: m[3]}
		mentions = append(mentions, mention)
		if !suppliedAct(mention.key, refs) {
			warn(fmt.Sprintf("cited act %q is not among the supplied references", name))
		}
	}

	for _, m := range sectionCitation.FindAllStringSubmatchIndex(answer, -1) {
		number := strings.ToUpper(answer[m[2]:m[3]])
		act, ok := governingAct(answer, m[1], m[0], mentions)
		if !ok {
			if !numbers[number] {
				warn(fmt.Sprintf("cited section %s is not among the supplied references", answer[m[2]:m[3]]))
			}
			continue
		}
		// an unsupplied act is already reported
		if !suppliedAct(act.key, refs) {
			continue
		}
		if !suppliedSection(act.key, number, refs) {
			warn(fmt.Sprintf("cited section %s of %s is not among the supplied references", answer[m[2]:m[3]], act.name))
		}
	}
	return warnings
}

// governingAct picks the act a section citation spanning [start, end) refers to
func governingAct(answer string, end, start int, mentions []actMention) (actMention, bool) {
	for _, a := range mentions {
		if a.start >= end && sectionOfAct.MatchString(answer[end:a.start]) {
			return a, true
		}
	}
	for i := len(mentions) - 1; i >= 0; i-- {
		if mentions[i].end <= start {
			return mentions[i], true
		}
	}
	return actMention{}, false
}

// actKey lower-cases an act name and drops trailing notes such as "(Act 136)"
func actKey(name string) string {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	for {
		trimmed := trailingNote.ReplaceAllString(key, "")
		if trimmed == key {
			return key
		}
		key = trimmed
	}
}

// matchesAct tolerates leading words the pattern may sweep in ("Under Employment Act 1955")
func matchesAct(cited, act string) bool {
	if act == "" {
		return false
	}
	return cited == act || strings.HasSuffix(cited, " "+act) || strings.HasSuffix(act, " "+cited)
}

func suppliedAct(cited string, refs []models.Reference) bool {
	for _, r := range refs {
		if matchesAct(cited, actKey(r.Act)) {
			return true
		}
	}
	return false
}

func suppliedSection(cited, number string, refs []models.Reference) bool {
	for _, r := range refs {
		if strings.ToUpper(r.Section) == number && matchesAct(cited, actKey(r.Act)) {
			return true
		}
	}
	return false
}
