package models

// MaxDisplayKeywords caps the keyword list shown next to a reference
const MaxDisplayKeywords = 5

// Reference is a section selected by the matcher together with the query terms it matched
type Reference struct {
	Act             string   `json:"act"`
	Section         string   `json:"section"`
	Title           string   `json:"title"`
	MatchedKeywords []string `json:"matched_keywords"`
	Score           int      `json:"score"`
}

// DisplayKeywords returns at most n matched keywords, n <= 0 means MaxDisplayKeywords
func (r Reference) DisplayKeywords(n int) []string {
	if n <= 0 {
		n = MaxDisplayKeywords
	}
	if len(r.MatchedKeywords) <= n {
		return r.MatchedKeywords
	}
	return r.MatchedKeywords[:n]
}

// Label formats the reference as "Act - Section N"
func (r Reference) Label() string {
	return r.Act + " - Section " + r.Section
}
