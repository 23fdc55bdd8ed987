package service

import (
	"context"
	"sync"

	"lexassist-backend/llm"
	"lexassist-backend/models"
)

type staticCorpus struct {
	corpus *models.Corpus
}

func (s staticCorpus) Corpus() *models.Corpus { return s.corpus }

func testCorpus() staticCorpus {
	return staticCorpus{corpus: &models.Corpus{Laws: []models.Law{
		{
			LawMetadata: models.LawMetadata{ActName: "Contracts Act 1950", FileKey: "contracts_act_1950", Year: "1950"},
			Sections: []models.Section{
				{Act: "Contracts Act 1950", Section: "10", Title: "What agreements are contracts", Text: "All agreements are contracts if they are made by the free consent of parties competent to contract, for a lawful consideration and with a lawful object."},
				{Act: "Contracts Act 1950", Section: "24", Title: "Consideration and object unlawful", Text: "The consideration or object of an agreement is lawful, unless it is forbidden by a law."},
			},
		},
		{
			LawMetadata: models.LawMetadata{ActName: "Employment Act 1955", FileKey: "employment_act_1955", Year: "1955"},
			Sections: []models.Section{
				{Act: "Employment Act 1955", Section: "19", Title: "Time of payment of wages", Text: "Every employer shall pay to each of his employees the salary earned; payment shall be made not later than the seventh day after the last day of any wage period."},
				{Act: "Employment Act 1955", Section: "60A", Title: "Hours of work", Text: "An employee shall not be required under his contract of service to work more than eight hours in one day."},
			},
		},
	}}}
}

// scriptedModel answers by operation and records every request
type scriptedModel struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	requests  []llm.Request
}

func newScriptedModel() *scriptedModel {
	return &scriptedModel{responses: map[string]string{}, errs: map[string]error{}}
}

func (m *scriptedModel) Complete(ctx context.Context, apiKey string, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if err := m.errs[req.Operation]; err != nil {
		return "", err
	}
	return m.responses[req.Operation], nil
}

func (m *scriptedModel) calls(op string) []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []llm.Request
	for _, r := range m.requests {
		if r.Operation == op {
			out = append(out, r)
		}
	}
	return out
}
