package repository

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"lexassist-backend/models"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed law.schema.json
var lawSchemaJSON string

const lawSchemaURL = "https://lexassist.local/schemas/law.schema.json"

var fileKeyPattern = regexp.MustCompile(`^[a-z0-9_\-]+$`)

// ValidationError lists every problem found in a law document
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid law data: " + strings.Join(e.Problems, "; ")
}

func compileLawSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(lawSchemaURL, strings.NewReader(lawSchemaJSON)); err != nil {
		return nil, fmt.Errorf("law schema load failed: %w", err)
	}
	schema, err := c.Compile(lawSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("law schema compile failed: %w", err)
	}
	return schema, nil
}

// Validator turns raw JSON into a normalized law file or a ValidationError
type Validator struct {
	schema *jsonschema.Schema
	now    func() time.Time
}

func NewValidator(now func() time.Time) (*Validator, error) {
	schema, err := compileLawSchema()
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Validator{schema: schema, now: now}, nil
}

// Parse checks shape against the schema, then semantics, then fills computed fields
func (v *Validator) Parse(data []byte) (*models.LawFile, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Problems: []string{"malformed JSON: " + err.Error()}}
	}
	if err := v.schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, &ValidationError{Problems: schemaProblems(verr)}
		}
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var law models.LawFile
	if err := json.Unmarshal(data, &law); err != nil {
		return nil, &ValidationError{Problems: []string{"malformed law document: " + err.Error()}}
	}
	law.Normalize(v.now())

	if problems := semanticProblems(&law); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return &law, nil
}

// schemaProblems flattens the error tree into "location: message" lines
func schemaProblems(verr *jsonschema.ValidationError) []string {
	var problems []string
	seen := make(map[string]bool)
	for _, e := range verr.BasicOutput().Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		line := loc + ": " + e.Error
		if !seen[line] {
			seen[line] = true
			problems = append(problems, line)
		}
	}
	if len(problems) == 0 {
		problems = append(problems, verr.Error())
	}
	sort.Strings(problems)
	return problems
}

func semanticProblems(law *models.LawFile) []string {
	var problems []string
	if strings.TrimSpace(law.Metadata.ActName) == "" {
		problems = append(problems, "/metadata/act_name: must not be blank")
	}
	if !fileKeyPattern.MatchString(law.Metadata.FileKey) {
		problems = append(problems, "/metadata/file_key: only lowercase letters, digits, '_' and '-' are allowed")
	}
	if _, err := semver.NewVersion(law.Metadata.Version); err != nil {
		problems = append(problems, fmt.Sprintf("/metadata/version: %q is not a valid version", law.Metadata.Version))
	}
	return problems
}

// isNewerVersion reports whether candidate is strictly greater than current
func isNewerVersion(current, candidate string) (bool, error) {
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("stored version %q: %w", current, err)
	}
	next, err := semver.NewVersion(candidate)
	if err != nil {
		return false, fmt.Errorf("new version %q: %w", candidate, err)
	}
	return next.GreaterThan(cur), nil
}

// compareLaws diffs sections by label and selected metadata fields
func compareLaws(current, candidate *models.LawFile) *models.VersionComparison {
	cmp := &models.VersionComparison{MetadataChanges: map[string]models.FieldChange{}}

	old := make(map[string]models.Section, len(current.Sections))
	for _, s := range current.Sections {
		if _, dup := old[s.Section]; !dup {
			old[s.Section] = s
		}
	}
	seen := make(map[string]bool, len(candidate.Sections))
	for _, s := range candidate.Sections {
		if seen[s.Section] {
			continue
		}
		seen[s.Section] = true
		prev, ok := old[s.Section]
		switch {
		case !ok:
			cmp.SectionsAdded++
		case prev.Title != s.Title || prev.Text != s.Text:
			cmp.SectionsModified++
		}
	}
	for label := range old {
		if !seen[label] {
			cmp.SectionsRemoved++
		}
	}

	fields := []struct {
		name     string
		old, new string
	}{
		{"act_name", current.Metadata.ActName, candidate.Metadata.ActName},
		{"year", current.Metadata.Year, candidate.Metadata.Year},
		{"version", current.Metadata.Version, candidate.Metadata.Version},
		{"source", current.Metadata.Source, candidate.Metadata.Source},
	}
	for _, f := range fields {
		if f.old != f.new {
			cmp.MetadataChanges[f.name] = models.FieldChange{Old: f.old, New: f.new}
		}
	}
	return cmp
}
