package models

import (
	"strings"
	"time"
)

// ContractType represents the kind of contract the generator can draft
type ContractType string

const (
	ContractTypeEmployment ContractType = "Employment Contract"
	ContractTypeTenancy    ContractType = "Tenancy Agreement"
	ContractTypeNDA        ContractType = "Non-Disclosure Agreement (NDA)"
	ContractTypeIP         ContractType = "Intellectual Property Agreement"
	ContractTypeGeneral    ContractType = "General Contract under Contracts Act 1950"
)

// ContractTemplate describes the inputs and retrieval hints for a contract type
type ContractTemplate struct {
	Type   ContractType `json:"type"`
	Fields []string     `json:"fields"`
	// Hints are extra query terms that steer retrieval towards the governing acts
	Hints []string `json:"-"`
}

// ContractTemplates lists the supported contract types in display order
var ContractTemplates = []ContractTemplate{
	{
		Type:   ContractTypeEmployment,
		Fields: []string{"Employee Name", "Employer Name", "Start Date", "Salary", "Position"},
		Hints:  []string{"employment", "employee", "employer", "wages", "salary", "termination", "working hours", "leave"},
	},
	{
		Type:   ContractTypeTenancy,
		Fields: []string{"Tenant Name", "Landlord Name", "Property Address", "Rent", "Start Date", "End Date"},
		Hints:  []string{"tenancy", "tenant", "landlord", "lease", "rent", "property", "distress"},
	},
	{
		Type:   ContractTypeNDA,
		Fields: []string{"Party A", "Party B", "Effective Date", "Confidential Information Details", "Term"},
		Hints:  []string{"confidential", "information", "disclosure", "contract", "breach", "damages"},
	},
	{
		Type:   ContractTypeIP,
		Fields: []string{"Owner", "Recipient", "IP Type", "Effective Date", "Term"},
		Hints:  []string{"copyright", "trademark", "patent", "intellectual", "property", "owner", "licence"},
	},
	{
		Type:   ContractTypeGeneral,
		Fields: []string{"Party A", "Party B", "Effective Date", "Terms"},
		Hints:  []string{"contract", "agreement", "consideration", "offer", "acceptance", "void", "breach"},
	},
}

// LookupContractTemplate finds a template by type, case-insensitively
func LookupContractTemplate(name string) (ContractTemplate, bool) {
	for _, t := range ContractTemplates {
		if strings.EqualFold(string(t.Type), strings.TrimSpace(name)) {
			return t, true
		}
	}
	return ContractTemplate{}, false
}

// GeneratedContract is the outcome of a contract drafting request
type GeneratedContract struct {
	Type             ContractType `json:"contract_type"`
	RelevantActs     []string     `json:"relevant_acts"`
	LawReferences    []Reference  `json:"law_references"`
	FullResponse     string       `json:"full_response"`
	ContractText     string       `json:"contract_text"`
	OutputName       string       `json:"output_name,omitempty"` // download name under /api/contracts/outputs
	OutputPath       string       `json:"output_path,omitempty"`
	Grounded         bool         `json:"grounded"`
	CitationWarnings []string     `json:"citation_warnings,omitempty"`
	GeneratedAt      time.Time    `json:"generated_at"`
}
