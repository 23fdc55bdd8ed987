package models

import (
	"time"
)

// SchemaVersion is the law file format version written by this service
const SchemaVersion = "1.0"

const (
	DefaultLawVersion = "1.0"
	DefaultLawSource  = "Official gazette"
	lastUpdatedLayout = "2006-01-02"
)

// Section represents one addressable unit of an act or an uploaded document
type Section struct {
	Act     string `json:"act"`
	Section string `json:"section"`
	Title   string `json:"title"`
	Text    string `json:"text"`
}

// Citation returns the label used when a section is quoted to the model
func (s Section) Citation() string {
	if s.Title == "" {
		return s.Act + " - Section " + s.Section
	}
	return s.Act + " - Section " + s.Section + ": " + s.Title
}

// LawMetadata holds the descriptive fields of a law file
type LawMetadata struct {
	ActName       string `json:"act_name"`
	FileKey       string `json:"file_key"`
	Year          string `json:"year"`
	LastUpdated   string `json:"last_updated"`
	Version       string `json:"version"`
	TotalSections int    `json:"total_sections"`
	Source        string `json:"source"`
}

// LawFile is the on-disk representation of a single law
type LawFile struct {
	SchemaVersion string      `json:"schema_version"`
	Metadata      LawMetadata `json:"metadata"`
	Sections      []Section   `json:"sections"`
}

// NewLawFileParams are the inputs for building a law file from scratch
type NewLawFileParams struct {
	ActName     string
	FileKey     string
	Year        string
	Sections    []Section
	LastUpdated string
	Version     string
	Source      string
}

// NewLawFile builds a law file and fills in the computed fields
func NewLawFile(p NewLawFileParams, now time.Time) *LawFile {
	law := &LawFile{
		Metadata: LawMetadata{
			ActName:     p.ActName,
			FileKey:     p.FileKey,
			Year:        p.Year,
			LastUpdated: p.LastUpdated,
			Version:     p.Version,
			Source:      p.Source,
		},
		Sections: p.Sections,
	}
	law.Normalize(now)
	return law
}

// Normalize fills defaults and recomputes total_sections.
// Sections without an act inherit the act name.
func (l *LawFile) Normalize(now time.Time) {
	if l.SchemaVersion == "" {
		l.SchemaVersion = SchemaVersion
	}
	if l.Metadata.LastUpdated == "" {
		l.Metadata.LastUpdated = now.Format(lastUpdatedLayout)
	}
	if l.Metadata.Version == "" {
		l.Metadata.Version = DefaultLawVersion
	}
	if l.Metadata.Source == "" {
		l.Metadata.Source = DefaultLawSource
	}
	if l.Sections == nil {
		l.Sections = make([]Section, 0)
	}
	for i := range l.Sections {
		if l.Sections[i].Act == "" {
			l.Sections[i].Act = l.Metadata.ActName
		}
	}
	l.Metadata.TotalSections = len(l.Sections)
}

// Law returns the in-memory entity for this file
func (l *LawFile) Law() Law {
	sections := make([]Section, len(l.Sections))
	copy(sections, l.Sections)
	return Law{LawMetadata: l.Metadata, Sections: sections}
}

// Law is an act together with its ordered sections
type Law struct {
	LawMetadata
	Sections []Section `json:"sections"`
}

// Corpus is an ordered, read-only snapshot of the law database
type Corpus struct {
	Laws []Law
}

// Sections flattens the corpus in declaration order (law order, then section order)
func (c *Corpus) Sections() []Section {
	if c == nil {
		return nil
	}
	total := 0
	for _, law := range c.Laws {
		total += len(law.Sections)
	}
	out := make([]Section, 0, total)
	for _, law := range c.Laws {
		out = append(out, law.Sections...)
	}
	return out
}

// ActNames lists act names in corpus order
func (c *Corpus) ActNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Laws))
	for _, law := range c.Laws {
		names = append(names, law.ActName)
	}
	return names
}

// LawStats summarizes the law database
type LawStats struct {
	TotalLaws     int    `json:"total_laws"`
	TotalSections int    `json:"total_sections"`
	OldestYear    string `json:"oldest_year,omitempty"`
	NewestYear    string `json:"newest_year,omitempty"`
}

// FieldChange records an old/new pair for a metadata field
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// VersionComparison describes the difference between a stored law and a candidate replacement
type VersionComparison struct {
	SectionsAdded    int                    `json:"sections_added"`
	SectionsModified int                    `json:"sections_modified"`
	SectionsRemoved  int                    `json:"sections_removed"`
	MetadataChanges  map[string]FieldChange `json:"metadata_changes"`
}
