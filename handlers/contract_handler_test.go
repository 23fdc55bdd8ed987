package handlers

import (
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListContractTypes(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	code, env := s.do(t, http.MethodGet, "/api/contracts/types", nil)
	require.Equal(t, http.StatusOK, code)

	var types []struct {
		Type   string   `json:"type"`
		Fields []string `json:"fields"`
	}
	decode(t, env.Data, &types)
	require.Len(t, types, 5)
	assert.Equal(t, "Employment Contract", types[0].Type)
	assert.Contains(t, types[1].Fields, "Rent")
}

type generatedData struct {
	ContractText     string   `json:"contract_text"`
	OutputName       string   `json:"output_name"`
	OutputPath       string   `json:"output_path"`
	RelevantActs     []string `json:"relevant_acts"`
	Grounded         bool     `json:"grounded"`
	CitationWarnings []string `json:"citation_warnings"`
}

func (s *testServer) generateEmploymentContract(t *testing.T) generatedData {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/contracts/generate", GenerateContractRequest{
		ContractType: "Employment Contract",
		Fields: map[string]string{
			"Employee Name": "Aisyah",
			"Employer Name": "Maju Sdn Bhd",
			"Start Date":    "2026-11-01",
			"Salary":        "RM5000",
			"Position":      "Analyst",
		},
	})
	require.Equal(t, http.StatusOK, code, env.Error.Message)
	var data generatedData
	decode(t, env.Data, &data)
	return data
}

func TestGenerateContract(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	data := s.generateEmploymentContract(t)

	assert.Equal(t, "EMPLOYMENT CONTRACT", data.ContractText)
	assert.True(t, data.Grounded)
	assert.Empty(t, data.CitationWarnings)
	assert.NotEmpty(t, data.OutputName)
	assert.Equal(t, []string{"Employment Act 1955"}, data.RelevantActs)
	saved, err := os.ReadFile(data.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "EMPLOYMENT CONTRACT", string(saved))
}

func TestGenerateContract_ReportsUnsuppliedCitations(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.model.responses["contract_generate"] = "Under the Companies Act 2016 directors sign.\n=== CONTRACT ===\nEMPLOYMENT CONTRACT\n=== END CONTRACT ==="

	data := s.generateEmploymentContract(t)

	assert.Equal(t, []string{`cited act "Companies Act 2016" is not among the supplied references`}, data.CitationWarnings)
}

func TestContractOutputs(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	data := s.generateEmploymentContract(t)

	code, env := s.do(t, http.MethodGet, "/api/contracts/outputs", nil)
	require.Equal(t, http.StatusOK, code, env.Error.Message)
	var listed struct {
		Outputs []struct {
			Name     string `json:"name"`
			Location string `json:"location"`
		} `json:"outputs"`
	}
	decode(t, env.Data, &listed)
	require.Len(t, listed.Outputs, 1)
	assert.Equal(t, data.OutputName, listed.Outputs[0].Name)
	assert.Equal(t, data.OutputPath, listed.Outputs[0].Location)

	w := s.raw(t, http.MethodGet, "/api/contracts/outputs/"+data.OutputName)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EMPLOYMENT CONTRACT", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), data.OutputName)

	code, env = s.do(t, http.MethodGet, "/api/contracts/outputs/x..txt", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	code, _ = s.do(t, http.MethodDelete, "/api/contracts/outputs/"+data.OutputName, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/contracts/outputs/"+data.OutputName, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestGenerateContract_Errors(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	code, env := s.do(t, http.MethodPost, "/api/contracts/generate", GenerateContractRequest{ContractType: "Prenup"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "UNKNOWN_CONTRACT_TYPE", env.Error.Code)

	code, env = s.do(t, http.MethodPost, "/api/contracts/generate", GenerateContractRequest{
		ContractType: "Tenancy Agreement",
		Fields:       map[string]string{"Tenant Name": "Lim"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "MISSING_FIELDS", env.Error.Code)
	assert.Contains(t, env.Error.Message, "Landlord Name")

	code, _ = s.do(t, http.MethodPost, "/api/contracts/generate", `{"fields":{}}`)
	assert.Equal(t, http.StatusBadRequest, code)
}
