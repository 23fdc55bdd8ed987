package service

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"lexassist-backend/models"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

var ErrUnknownTemplate = errors.New("unknown analysis template")

// PromptTemplates holds the prompt text loaded from YAML
type PromptTemplates struct {
	System   map[string]string `yaml:"system"`
	Prompts  map[string]string `yaml:"prompts"`
	Analysis map[string]string `yaml:"analysis"`
}

var requiredTemplates = map[string][]string{
	"system":   {"qa", "contract", "document"},
	"prompts":  {"qa_grounded", "qa_ungrounded", "starter_questions", "followups", "contract", "ask_document", "summarize_document", "extract_key_clauses", "query_contract"},
	"analysis": {"risk_analysis", "validate_contract", "extract_obligations"},
}

// ParsePromptTemplates decodes YAML and checks every template the services use is present
func ParsePromptTemplates(data []byte) (*PromptTemplates, error) {
	var t PromptTemplates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	groups := map[string]map[string]string{"system": t.System, "prompts": t.Prompts, "analysis": t.Analysis}
	var missing []string
	for group, names := range requiredTemplates {
		for _, name := range names {
			if strings.TrimSpace(groups[group][name]) == "" {
				missing = append(missing, group+"."+name)
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("prompt templates missing: %s", strings.Join(missing, ", "))
	}
	return &t, nil
}

// DefaultPromptTemplates returns the embedded templates
func DefaultPromptTemplates() *PromptTemplates {
	t, err := ParsePromptTemplates(defaultTemplatesYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// AnalysisNames lists the analysis templates in sorted order
func (t *PromptTemplates) AnalysisNames() []string {
	names := make([]string, 0, len(t.Analysis))
	for name := range t.Analysis {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *PromptTemplates) prompt(name string, vars map[string]string) string {
	return render(t.Prompts[name], vars)
}

var placeholder = regexp.MustCompile(`\{\{\s*([a-z_]+)\s*\}\}`)

// render substitutes {{name}} placeholders; unknown names render empty
func render(text string, vars map[string]string) string {
	return strings.TrimSpace(placeholder.ReplaceAllStringFunc(text, func(m string) string {
		return vars[placeholder.FindStringSubmatch(m)[1]]
	}))
}

// formatSections renders sections as labelled blocks, stopping before budget runes are exceeded.
// At least one section is always included.
func formatSections(sections []models.Section, budget int) string {
	var sb strings.Builder
	used := 0
	for i, s := range sections {
		block := "[" + s.Citation() + "]\n" + s.Text + "\n\n"
		n := len([]rune(block))
		if i > 0 && budget > 0 && used+n > budget {
			break
		}
		sb.WriteString(block)
		used += n
	}
	return strings.TrimSpace(sb.String())
}

func formatHistory(turns []models.ChatTurn) string {
	if len(turns) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", t.Question, t.Answer)
	}
	return strings.TrimSpace(sb.String())
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)]|Q\d*[:.])\s*`)

// parseQuestionList reads one question per line, tolerating bullets and numbering
func parseQuestionList(text string, limit int) []string {
	questions := []string{}
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		q := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		q = strings.Trim(q, "\"*")
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		questions = append(questions, q)
		if limit > 0 && len(questions) == limit {
			break
		}
	}
	return questions
}
