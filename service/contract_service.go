package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"lexassist-backend/llm"
	"lexassist-backend/logger"
	"lexassist-backend/metrics"
	"lexassist-backend/models"
	"lexassist-backend/retrieval"
	"lexassist-backend/storage"
)

var (
	ErrUnknownContractType   = errors.New("unknown contract type")
	ErrMissingContractFields = errors.New("required contract fields are missing")
	ErrNoOutputStorage       = errors.New("contract output storage is not configured")
)

const (
	contractStartMarker = "=== CONTRACT ==="
	contractEndMarker   = "=== END CONTRACT ==="
)

// ContractService drafts contracts grounded in the law corpus
type ContractService struct {
	corpus      CorpusSource
	model       llm.Provider
	matcher     *retrieval.Matcher
	templates   *PromptTemplates
	outputs     storage.Storage
	indexes     *IndexCache
	log         logger.Logger
	temperature float32
}

type ContractServiceOption func(*ContractService)

func ContractWithCorpus(c CorpusSource) ContractServiceOption {
	return func(s *ContractService) {
		s.corpus = c
	}
}

func ContractWithModel(p llm.Provider) ContractServiceOption {
	return func(s *ContractService) {
		s.model = p
	}
}

func ContractWithMatcher(m *retrieval.Matcher) ContractServiceOption {
	return func(s *ContractService) {
		s.matcher = m
	}
}

func ContractWithTemplates(t *PromptTemplates) ContractServiceOption {
	return func(s *ContractService) {
		s.templates = t
	}
}

// ContractWithOutputStorage saves each drafted contract; without it nothing is written
func ContractWithOutputStorage(st storage.Storage) ContractServiceOption {
	return func(s *ContractService) {
		s.outputs = st
	}
}

// ContractWithIndexCache shares the corpus index with other services
func ContractWithIndexCache(c *IndexCache) ContractServiceOption {
	return func(s *ContractService) {
		s.indexes = c
	}
}

func ContractWithLogger(l logger.Logger) ContractServiceOption {
	return func(s *ContractService) {
		s.log = l
	}
}

func ContractWithTemperature(t float32) ContractServiceOption {
	return func(s *ContractService) {
		s.temperature = t
	}
}

func NewContractService(opts ...ContractServiceOption) *ContractService {
	s := &ContractService{
		matcher:     retrieval.NewMatcher(retrieval.Options{}),
		templates:   DefaultPromptTemplates(),
		indexes:     NewIndexCache(),
		log:         logger.NewNoOpLogger(),
		temperature: 0.3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Types lists the supported contract types and their fields
func (s *ContractService) Types() []models.ContractTemplate {
	return models.ContractTemplates
}

// GenerateContractRequest represents a drafting request
type GenerateContractRequest struct {
	ContractType   string
	Fields         map[string]string
	AdditionalInfo string
	APIKey         string
}

// Generate drafts a contract. The model response is kept whole in FullResponse and the
// contract body alone goes to ContractText and, when configured, output storage.
func (s *ContractService) Generate(ctx context.Context, req GenerateContractRequest) (*models.GeneratedContract, error) {
	if s.corpus == nil || s.model == nil {
		return nil, errors.New("contract service not configured")
	}
	tmpl, ok := models.LookupContractTemplate(req.ContractType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContractType, req.ContractType)
	}
	fields := normalizeFields(tmpl, req.Fields)
	if missing := missingFields(tmpl, fields); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingContractFields, strings.Join(missing, ", "))
	}

	details := formatDetails(tmpl, fields, req.AdditionalInfo)
	query := string(tmpl.Type) + " " + strings.Join(tmpl.Hints, " ") + " " + req.AdditionalInfo
	match := s.matcher.Search(query, s.indexes.For(s.corpus.Corpus()))
	metrics.RetrievalReferences.WithLabelValues("contract").Observe(float64(len(match.References)))

	lawContext := "(no matching provisions in the law database; rely on general principles of the Contracts Act 1950)"
	if match.Grounded() {
		lawContext = formatSections(match.Sections, 0)
	} else {
		metrics.UngroundedAnswers.WithLabelValues("contract").Inc()
	}

	full, err := s.model.Complete(ctx, req.APIKey, llm.Request{
		Operation: "contract_generate",
		System:    s.templates.System["contract"],
		Prompt: s.templates.prompt("contract", map[string]string{
			"contract_type": string(tmpl.Type),
			"details":       details,
			"context":       lawContext,
		}),
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate contract: %w", err)
	}
	full = strings.TrimSpace(full)

	warnings := citationWarnings(full, match.References)
	if len(warnings) > 0 {
		metrics.CitationWarnings.Add(float64(len(warnings)))
		s.log.Warn("draft cites provisions outside the supplied references", map[string]interface{}{
			"contract_type": tmpl.Type,
			"warnings":      warnings,
		})
	}

	result := &models.GeneratedContract{
		Type:             tmpl.Type,
		RelevantActs:     match.SelectedActs,
		LawReferences:    match.References,
		FullResponse:     full,
		ContractText:     extractContract(full),
		Grounded:         match.Grounded(),
		CitationWarnings: warnings,
		GeneratedAt:      time.Now().UTC(),
	}

	if s.outputs != nil {
		name := strings.ReplaceAll(string(tmpl.Type), " ", "_") + ".txt"
		key, err := s.outputs.Save(ctx, storage.KindContract, name, strings.NewReader(result.ContractText))
		if err != nil {
			// the draft is still returned; only the saved copy is missing
			s.log.WithError(err).Warn("failed to save generated contract", map[string]interface{}{"contract_type": tmpl.Type})
		} else {
			result.OutputName = storage.Name(key)
			result.OutputPath = s.outputs.Location(key)
		}
	}
	return result, nil
}

// Outputs lists the saved drafts, oldest first
func (s *ContractService) Outputs(ctx context.Context) ([]storage.Artifact, error) {
	if s.outputs == nil {
		return nil, ErrNoOutputStorage
	}
	keys, err := s.outputs.List(ctx, storage.KindContract)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	return storage.Describe(s.outputs, keys), nil
}

// OpenOutput streams a saved draft by the name reported in OutputName
func (s *ContractService) OpenOutput(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := s.outputKey(name)
	if err != nil {
		return nil, err
	}
	return s.outputs.Open(ctx, key)
}

// DeleteOutput removes a saved draft; removing a missing one is not an error
func (s *ContractService) DeleteOutput(ctx context.Context, name string) error {
	key, err := s.outputKey(name)
	if err != nil {
		return err
	}
	return s.outputs.Delete(ctx, key)
}

func (s *ContractService) outputKey(name string) (string, error) {
	if s.outputs == nil {
		return "", ErrNoOutputStorage
	}
	return storage.Key(storage.KindContract, name)
}

// normalizeFields matches user keys to template fields case-insensitively and trims values
func normalizeFields(tmpl models.ContractTemplate, in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := strings.TrimSpace(k)
		for _, f := range tmpl.Fields {
			if strings.EqualFold(f, key) {
				key = f
				break
			}
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}

func missingFields(tmpl models.ContractTemplate, fields map[string]string) []string {
	var missing []string
	for _, f := range tmpl.Fields {
		if fields[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// formatDetails lists template fields in template order, then any extra fields sorted by name
func formatDetails(tmpl models.ContractTemplate, fields map[string]string, additional string) string {
	var lines []string
	known := make(map[string]bool, len(tmpl.Fields))
	for _, f := range tmpl.Fields {
		known[f] = true
		lines = append(lines, f+": "+fields[f])
	}
	var extra []string
	for k := range fields {
		if !known[k] && fields[k] != "" {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		lines = append(lines, k+": "+fields[k])
	}
	if a := strings.TrimSpace(additional); a != "" {
		lines = append(lines, "Additional Information: "+a)
	}
	return strings.Join(lines, "\n")
}

// extractContract returns the text between the contract markers, or the whole response without them
func extractContract(full string) string {
	start := strings.Index(full, contractStartMarker)
	if start < 0 {
		return full
	}
	body := full[start+len(contractStartMarker):]
	if end := strings.Index(body, contractEndMarker); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
