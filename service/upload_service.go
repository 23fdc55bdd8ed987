package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lexassist-backend/llm"
	"lexassist-backend/logger"
	"lexassist-backend/metrics"
	"lexassist-backend/models"
	"lexassist-backend/retrieval"
	"lexassist-backend/sectionizer"
)

var (
	ErrNoDocumentLoaded = errors.New("no document loaded in this session")
	ErrNoContractLoaded = errors.New("no contract loaded in this session")
	ErrEmptyDocument    = errors.New("document contains no text")
)

// DefaultContextBudget caps how many runes of an upload are sent to the model
const DefaultContextBudget = 12000

// uploadAnalyzer is shared by the document and contract services
type uploadAnalyzer struct {
	model       llm.Provider
	matcher     *retrieval.Matcher
	templates   *PromptTemplates
	log         logger.Logger
	temperature float32
	budget      int
}

type UploadOption func(*uploadAnalyzer)

func UploadWithModel(p llm.Provider) UploadOption {
	return func(u *uploadAnalyzer) {
		u.model = p
	}
}

func UploadWithMatcher(m *retrieval.Matcher) UploadOption {
	return func(u *uploadAnalyzer) {
		u.matcher = m
	}
}

func UploadWithTemplates(t *PromptTemplates) UploadOption {
	return func(u *uploadAnalyzer) {
		u.templates = t
	}
}

func UploadWithLogger(l logger.Logger) UploadOption {
	return func(u *uploadAnalyzer) {
		u.log = l
	}
}

func UploadWithTemperature(t float32) UploadOption {
	return func(u *uploadAnalyzer) {
		u.temperature = t
	}
}

// UploadWithContextBudget sets the rune budget for excerpts sent to the model
func UploadWithContextBudget(runes int) UploadOption {
	return func(u *uploadAnalyzer) {
		if runes > 0 {
			u.budget = runes
		}
	}
}

func newUploadAnalyzer(opts []UploadOption) uploadAnalyzer {
	u := uploadAnalyzer{
		matcher:     retrieval.NewMatcher(retrieval.Options{}),
		templates:   DefaultPromptTemplates(),
		log:         logger.NewNoOpLogger(),
		temperature: 0.2,
		budget:      DefaultContextBudget,
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// UploadRequest addresses the document or contract held by a session
type UploadRequest struct {
	Session  *models.Session
	Question string
	APIKey   string
}

// UploadAnswer is a model response about an uploaded document or contract
type UploadAnswer struct {
	Name       string             `json:"name"`
	Answer     string             `json:"answer"`
	References []models.Reference `json:"references"`
	// Fallback is set when no section matched and leading sections were used instead
	Fallback bool `json:"fallback"`
}

func (u *uploadAnalyzer) load(name, text string, pattern sectionizer.Pattern) (*models.UploadedDocument, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "document"
	}
	sections := sectionizer.Split(text, name, pattern)
	if len(sections) == 0 {
		return nil, ErrEmptyDocument
	}
	return &models.UploadedDocument{Name: name, Sections: sections, LoadedAt: time.Now().UTC()}, nil
}

// ask matches the question against the upload; with no match the leading sections are used
func (u *uploadAnalyzer) ask(ctx context.Context, doc *models.UploadedDocument, req UploadRequest, op, prompt, system string) (*UploadAnswer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	match := u.matcher.Match(question, doc.Sections)
	metrics.RetrievalReferences.WithLabelValues(op).Observe(float64(len(match.References)))

	sections := match.Sections
	fallback := !match.Grounded()
	if fallback {
		sections = doc.Sections
		u.log.Info("no section matched, using leading sections", map[string]interface{}{"document": doc.Name, "operation": op})
	}

	text, err := u.complete(ctx, req.APIKey, op, system, u.templates.prompt(prompt, map[string]string{
		"name":     doc.Name,
		"question": question,
		"context":  formatSections(sections, u.budget),
	}))
	if err != nil {
		return nil, err
	}
	return &UploadAnswer{Name: doc.Name, Answer: text, References: match.References, Fallback: fallback}, nil
}

// whole runs an instruction over the upload from the start, within the budget
func (u *uploadAnalyzer) whole(ctx context.Context, doc *models.UploadedDocument, apiKey, op, system, prompt string) (*UploadAnswer, error) {
	text, err := u.complete(ctx, apiKey, op, system, render(prompt, map[string]string{
		"name":    doc.Name,
		"context": formatSections(doc.Sections, u.budget),
	}))
	if err != nil {
		return nil, err
	}
	return &UploadAnswer{Name: doc.Name, Answer: text, References: []models.Reference{}}, nil
}

func (u *uploadAnalyzer) complete(ctx context.Context, apiKey, op, system, prompt string) (string, error) {
	if u.model == nil {
		return "", errors.New("model provider not set")
	}
	text, err := u.model.Complete(ctx, apiKey, llm.Request{
		Operation:   op,
		System:      system,
		Prompt:      prompt,
		Temperature: u.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s failed: %w", strings.ReplaceAll(op, "_", " "), err)
	}
	return strings.TrimSpace(text), nil
}

// DocumentService answers questions about an uploaded document (act, judgment, letter...)
type DocumentService struct {
	uploadAnalyzer
}

func NewDocumentService(opts ...UploadOption) *DocumentService {
	return &DocumentService{uploadAnalyzer: newUploadAnalyzer(opts)}
}

// Load sectionizes text with statute headings and attaches it to the session, replacing any previous document
func (s *DocumentService) Load(sess *models.Session, name, text string) (*models.UploadedDocument, error) {
	doc, err := s.load(name, text, sectionizer.LawHeadings)
	if err != nil {
		return nil, err
	}
	sess.SetDocument(doc)
	s.log.Info("document loaded", map[string]interface{}{"session_id": sess.ID, "document": doc.Name, "sections": len(doc.Sections)})
	return doc, nil
}

func (s *DocumentService) Ask(ctx context.Context, req UploadRequest) (*UploadAnswer, error) {
	doc := req.Session.Document()
	if doc == nil {
		return nil, ErrNoDocumentLoaded
	}
	return s.ask(ctx, doc, req, "ask_document", "ask_document", s.templates.System["document"])
}

func (s *DocumentService) Summarize(ctx context.Context, req UploadRequest) (*UploadAnswer, error) {
	doc := req.Session.Document()
	if doc == nil {
		return nil, ErrNoDocumentLoaded
	}
	return s.whole(ctx, doc, req.APIKey, "summarize_document", s.templates.System["document"], s.templates.Prompts["summarize_document"])
}

func (s *DocumentService) KeyClauses(ctx context.Context, req UploadRequest) (*UploadAnswer, error) {
	doc := req.Session.Document()
	if doc == nil {
		return nil, ErrNoDocumentLoaded
	}
	return s.whole(ctx, doc, req.APIKey, "extract_key_clauses", s.templates.System["document"], s.templates.Prompts["extract_key_clauses"])
}

// Remove drops the session's document
func (s *DocumentService) Remove(sess *models.Session) error {
	if sess.Document() == nil {
		return ErrNoDocumentLoaded
	}
	sess.SetDocument(nil)
	return nil
}

// ContractAnalysisService queries and reviews an uploaded contract
type ContractAnalysisService struct {
	uploadAnalyzer
}

func NewContractAnalysisService(opts ...UploadOption) *ContractAnalysisService {
	return &ContractAnalysisService{uploadAnalyzer: newUploadAnalyzer(opts)}
}

// Load sectionizes text by clause headings and attaches it to the session
func (s *ContractAnalysisService) Load(sess *models.Session, name, text string) (*models.UploadedDocument, error) {
	doc, err := s.load(name, text, sectionizer.ContractHeadings)
	if err != nil {
		return nil, err
	}
	sess.SetContract(doc)
	s.log.Info("contract loaded", map[string]interface{}{"session_id": sess.ID, "contract": doc.Name, "clauses": len(doc.Sections)})
	return doc, nil
}

func (s *ContractAnalysisService) Query(ctx context.Context, req UploadRequest) (*UploadAnswer, error) {
	doc := req.Session.Contract()
	if doc == nil {
		return nil, ErrNoContractLoaded
	}
	return s.ask(ctx, doc, req, "query_contract", "query_contract", s.templates.System["document"])
}

// Templates lists the analyses Analyze accepts
func (s *ContractAnalysisService) Templates() []string {
	return s.templates.AnalysisNames()
}

// Analyze runs a named analysis template over the full contract
func (s *ContractAnalysisService) Analyze(ctx context.Context, req UploadRequest, template string) (*UploadAnswer, error) {
	prompt, ok := s.templates.Analysis[template]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, template)
	}
	doc := req.Session.Contract()
	if doc == nil {
		return nil, ErrNoContractLoaded
	}
	return s.whole(ctx, doc, req.APIKey, template, s.templates.System["document"], prompt)
}

func (s *ContractAnalysisService) Remove(sess *models.Session) error {
	if sess.Contract() == nil {
		return ErrNoContractLoaded
	}
	sess.SetContract(nil)
	return nil
}
