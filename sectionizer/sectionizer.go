// Package sectionizer splits extracted document text into section records.
//
// Splitting is a heuristic over heading lines. Text without recognizable headings
// degrades to fixed-size chunks so every non-blank document yields at least one
// addressable section.
package sectionizer

import (
	"fmt"
	"regexp"
	"strings"

	"lexassist-backend/models"
)

// ChunkSize is the number of characters per fallback chunk
const ChunkSize = 1500

// Pattern matches heading lines. Group 1 is the identifier, group 2 the rest of the line.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

// NewPattern builds a heading pattern for the given marker alternatives (e.g. "Section")
func NewPattern(name string, caseInsensitive bool, markers ...string) Pattern {
	quoted := make([]string, len(markers))
	for i, m := range markers {
		quoted[i] = regexp.QuoteMeta(m)
	}
	flags := "(?m)"
	if caseInsensitive {
		flags = "(?mi)"
	}
	expr := flags + `^[ \t]*(?:` + strings.Join(quoted, "|") + `)[ \t]+(\d+[A-Za-z]?)\b([ \t]*(?:\([^)\n]*\))?[^\n]*)$`
	return Pattern{Name: name, re: regexp.MustCompile(expr)}
}

var (
	// LawHeadings matches "Section 12A (1) Title" style headings in statutes
	LawHeadings = NewPattern("law", false, "Section")
	// ContractHeadings matches "Clause 3 Payment" / "ARTICLE 4" style headings in contracts
	ContractHeadings = NewPattern("contract", true, "Clause", "Article")
)

// SplitLaw sectionizes the text of an act
func SplitLaw(text, actName string) []models.Section {
	return Split(text, actName, LawHeadings)
}

// SplitContract sectionizes the text of a contract into clauses
func SplitContract(text, contractName string) []models.Section {
	return Split(text, contractName, ContractHeadings)
}

// Split scans text for headings and returns one section per heading in document order.
// Text before the first heading is not part of any section.
func Split(text, label string, p Pattern) []models.Section {
	matches := p.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return Chunk(text, label)
	}

	sections := make([]models.Section, 0, len(matches))
	for i, m := range matches {
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		sections = append(sections, models.Section{
			Act:     label,
			Section: text[m[2]:m[3]],
			Title:   strings.TrimSpace(text[m[4]:m[5]]),
			Text:    collapse(text[m[1]:bodyEnd]),
		})
	}
	return sections
}

// Chunk cuts text into ChunkSize-character pieces labelled "Chunk 1", "Chunk 2", ...
// Blank text yields no chunks.
func Chunk(text, label string) []models.Section {
	if strings.TrimSpace(text) == "" {
		return []models.Section{}
	}
	runes := []rune(text)
	count := (len(runes) + ChunkSize - 1) / ChunkSize
	sections := make([]models.Section, 0, count)
	for i := 0; i < count; i++ {
		end := (i + 1) * ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		sections = append(sections, models.Section{
			Act:     label,
			Section: fmt.Sprintf("Chunk %d", i+1),
			Title:   "",
			Text:    string(runes[i*ChunkSize : end]),
		})
	}
	return sections
}

// collapse trims the body and joins its words with single spaces
func collapse(body string) string {
	return strings.Join(strings.Fields(body), " ")
}
