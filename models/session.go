package models

import (
	"sync"
	"time"
)

// ChatTurn represents one answered question in a session
type ChatTurn struct {
	Question         string      `json:"question"`
	Answer           string      `json:"answer"`
	References       []Reference `json:"references"`
	SelectedActs     []string    `json:"selected_acts"`
	SelectedSections []string    `json:"selected_sections"`
	Grounded         bool        `json:"grounded"`
	CitationWarnings []string    `json:"citation_warnings,omitempty"`
	AskedAt          time.Time   `json:"asked_at"`
}

// UploadedDocument is a sectionized document that lives only as long as its session.
// Uploaded contracts use the same shape.
type UploadedDocument struct {
	Name     string    `json:"name"`
	Sections []Section `json:"sections"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Session holds per-user conversational state.
// It is created at session start and cleared explicitly or when the store expires it.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu               sync.Mutex
	lastActive       time.Time
	history          []ChatTurn
	starterQuestions []string
	followUps        []string
	document         *UploadedDocument
	contract         *UploadedDocument
}

// NewSession creates an empty session
func NewSession(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, lastActive: now}
}

// Touch records activity at now
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastActive) {
		s.lastActive = now
	}
}

// LastActive is the time of the latest recorded activity
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// History returns a copy of the chat history
func (s *Session) History() []ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatTurn, len(s.history))
	copy(out, s.history)
	return out
}

// RecentHistory returns the last n turns, oldest first
func (s *Session) RecentHistory(n int) []ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.history) == 0 {
		return nil
	}
	start := len(s.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]ChatTurn, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}

// AppendTurn records a completed turn and replaces the suggested follow-ups
func (s *Session) AppendTurn(turn ChatTurn, followUps []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, turn)
	s.followUps = followUps
}

// StarterQuestions returns the cached starter questions, if any
func (s *Session) StarterQuestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.starterQuestions...)
}

// SetStarterQuestions caches starter questions for the session
func (s *Session) SetStarterQuestions(questions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starterQuestions = append([]string(nil), questions...)
}

// FollowUps returns the follow-up suggestions for the latest turn
func (s *Session) FollowUps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.followUps...)
}

// Document returns the uploaded document, nil when none is loaded
func (s *Session) Document() *UploadedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// SetDocument replaces the uploaded document; nil removes it
func (s *Session) SetDocument(doc *UploadedDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = doc
}

// Contract returns the uploaded contract, nil when none is loaded
func (s *Session) Contract() *UploadedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contract
}

// SetContract replaces the uploaded contract; nil removes it
func (s *Session) SetContract(doc *UploadedDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contract = doc
}

// Reset clears everything except the identity of the session
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.starterQuestions = nil
	s.followUps = nil
	s.document = nil
	s.contract = nil
}
