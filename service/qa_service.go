package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lexassist-backend/llm"
	"lexassist-backend/logger"
	"lexassist-backend/metrics"
	"lexassist-backend/models"
	"lexassist-backend/retrieval"
)

var (
	ErrEmptyQuestion   = errors.New("question must not be empty")
	ErrEmptyCorpus     = errors.New("law database is empty")
	ErrNoQuestionsMade = errors.New("model did not return any questions")
)

// UngroundedNotice is shown with answers that no law section supports
const UngroundedNotice = "No matching provision was found in the law database. This answer is general guidance only and is not based on a specific statute."

// CorpusSource provides the current law snapshot
type CorpusSource interface {
	Corpus() *models.Corpus
}

// QAService answers questions over the law corpus and keeps the session transcript
type QAService struct {
	corpus      CorpusSource
	model       llm.Provider
	matcher     *retrieval.Matcher
	templates   *PromptTemplates
	log         logger.Logger
	temperature float32

	historyTurns  int
	starterCount  int
	followUpCount int

	indexes *IndexCache
}

type QAServiceOption func(*QAService)

func QAWithCorpus(c CorpusSource) QAServiceOption {
	return func(s *QAService) {
		s.corpus = c
	}
}

func QAWithModel(p llm.Provider) QAServiceOption {
	return func(s *QAService) {
		s.model = p
	}
}

func QAWithMatcher(m *retrieval.Matcher) QAServiceOption {
	return func(s *QAService) {
		s.matcher = m
	}
}

func QAWithTemplates(t *PromptTemplates) QAServiceOption {
	return func(s *QAService) {
		s.templates = t
	}
}

// QAWithIndexCache shares the corpus index with other services
func QAWithIndexCache(c *IndexCache) QAServiceOption {
	return func(s *QAService) {
		s.indexes = c
	}
}

func QAWithLogger(l logger.Logger) QAServiceOption {
	return func(s *QAService) {
		s.log = l
	}
}

func QAWithTemperature(t float32) QAServiceOption {
	return func(s *QAService) {
		s.temperature = t
	}
}

// QAWithLimits sets history turns sent to the model and the number of suggested questions
func QAWithLimits(historyTurns, starters, followUps int) QAServiceOption {
	return func(s *QAService) {
		s.historyTurns = historyTurns
		s.starterCount = starters
		s.followUpCount = followUps
	}
}

func NewQAService(opts ...QAServiceOption) *QAService {
	s := &QAService{
		matcher:       retrieval.NewMatcher(retrieval.Options{}),
		templates:     DefaultPromptTemplates(),
		log:           logger.NewNoOpLogger(),
		temperature:   0.2,
		historyTurns:  3,
		starterCount:  5,
		followUpCount: 3,
		indexes:       NewIndexCache(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AskRequest represents a question asked within a session
type AskRequest struct {
	Session  *models.Session
	Question string
	APIKey   string
}

// AskResult represents an answered question
type AskResult struct {
	Turn      models.ChatTurn `json:"turn"`
	FollowUps []string        `json:"followups"`
	Notice    string          `json:"notice,omitempty"`
}

// Ask retrieves matching sections, asks the model and appends the turn to the session.
// The session is left unchanged when the model call fails.
func (s *QAService) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	if s.corpus == nil || s.model == nil {
		return nil, errors.New("qa service not configured")
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	match := s.matcher.Search(question, s.indexes.For(s.corpus.Corpus()))
	metrics.RetrievalReferences.WithLabelValues("corpus").Observe(float64(len(match.References)))

	vars := map[string]string{
		"question": question,
		"history":  formatHistory(req.Session.RecentHistory(s.historyTurns)),
	}
	promptName := "qa_grounded"
	if match.Grounded() {
		vars["context"] = formatSections(match.Sections, 0)
	} else {
		promptName = "qa_ungrounded"
		metrics.UngroundedAnswers.WithLabelValues("corpus").Inc()
		s.log.Info("no law section matched question", map[string]interface{}{"session_id": req.Session.ID, "terms": match.QueryTerms})
	}

	answer, err := s.model.Complete(ctx, req.APIKey, llm.Request{
		Operation:   "qa_answer",
		System:      s.templates.System["qa"],
		Prompt:      s.templates.prompt(promptName, vars),
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}
	answer = strings.TrimSpace(answer)

	warnings := citationWarnings(answer, match.References)
	if len(warnings) > 0 {
		metrics.CitationWarnings.Add(float64(len(warnings)))
		s.log.Warn("answer cites provisions outside the supplied references", map[string]interface{}{
			"session_id": req.Session.ID,
			"warnings":   warnings,
		})
	}

	followUps := s.suggestFollowUps(ctx, req.APIKey, question, answer)

	turn := models.ChatTurn{
		Question:         question,
		Answer:           answer,
		References:       match.References,
		SelectedActs:     match.SelectedActs,
		SelectedSections: match.SelectedSections,
		Grounded:         match.Grounded(),
		CitationWarnings: warnings,
		AskedAt:          time.Now().UTC(),
	}
	req.Session.AppendTurn(turn, followUps)

	result := &AskResult{Turn: turn, FollowUps: followUps}
	if !turn.Grounded {
		result.Notice = UngroundedNotice
	}
	return result, nil
}

// suggestFollowUps never fails the turn; errors are logged and yield no suggestions
func (s *QAService) suggestFollowUps(ctx context.Context, apiKey, question, answer string) []string {
	if s.followUpCount <= 0 {
		return []string{}
	}
	text, err := s.model.Complete(ctx, apiKey, llm.Request{
		Operation: "qa_followups",
		Prompt: s.templates.prompt("followups", map[string]string{
			"question": question,
			"answer":   answer,
			"count":    strconv.Itoa(s.followUpCount),
		}),
		Temperature: 0.7,
	})
	if err != nil {
		s.log.WithError(err).Warn("follow-up generation failed", nil)
		return []string{}
	}
	return parseQuestionList(text, s.followUpCount)
}

// StarterQuestions returns the session's cached starter questions, generating them
// from the corpus act names on first use. A failure leaves the cache empty.
func (s *QAService) StarterQuestions(ctx context.Context, sess *models.Session, apiKey string) ([]string, error) {
	if cached := sess.StarterQuestions(); len(cached) > 0 {
		return cached, nil
	}
	if s.corpus == nil || s.model == nil {
		return nil, errors.New("qa service not configured")
	}
	acts := s.corpus.Corpus().ActNames()
	if len(acts) == 0 {
		return nil, ErrEmptyCorpus
	}

	text, err := s.model.Complete(ctx, apiKey, llm.Request{
		Operation: "qa_starters",
		Prompt: s.templates.prompt("starter_questions", map[string]string{
			"acts":  "- " + strings.Join(acts, "\n- "),
			"count": strconv.Itoa(s.starterCount),
		}),
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate starter questions: %w", err)
	}
	questions := parseQuestionList(text, s.starterCount)
	if len(questions) == 0 {
		return nil, ErrNoQuestionsMade
	}
	sess.SetStarterQuestions(questions)
	return questions, nil
}
