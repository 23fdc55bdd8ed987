package service

import (
	"context"
	"errors"
	"testing"

	"lexassist-backend/logger"
	"lexassist-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leaseText = `TENANCY ACT (DRAFT)
Section 1 Short title
This Act may be cited as the Tenancy Act.
Section 2 Deposit
The landlord shall refund the deposit within fourteen days
after the tenancy ends.
`

const contractText = `SERVICE AGREEMENT
Clause 1 Payment
Rent of RM2000 is payable monthly in advance.
CLAUSE 2 Termination
Either party may terminate with one month written notice.
`

func TestDocumentService_LoadAndAsk(t *testing.T) {
	model := newScriptedModel()
	model.responses["ask_document"] = " Within fourteen days. "
	svc := NewDocumentService(UploadWithModel(model), UploadWithLogger(logger.NewTestLogger(t)))
	sess := models.NewSession("s1", fixedTime)

	doc, err := svc.Load(sess, "lease.txt", leaseText)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Deposit", doc.Sections[1].Title)
	assert.Same(t, doc, sess.Document())

	answer, err := svc.Ask(context.Background(), UploadRequest{Session: sess, Question: "deposit refund", APIKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, "Within fourteen days.", answer.Answer)
	assert.False(t, answer.Fallback)
	require.Len(t, answer.References, 1)
	assert.Equal(t, "2", answer.References[0].Section)
	prompt := model.calls("ask_document")[0].Prompt
	assert.Contains(t, prompt, "[lease.txt - Section 2: Deposit]")
	assert.NotContains(t, prompt, "Short title")
}

func TestDocumentService_AskFallsBackToLeadingSections(t *testing.T) {
	model := newScriptedModel()
	svc := NewDocumentService(UploadWithModel(model))
	sess := models.NewSession("s1", fixedTime)
	_, err := svc.Load(sess, "lease.txt", leaseText)
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), UploadRequest{Session: sess, Question: "cryptocurrency"})
	require.NoError(t, err)

	assert.True(t, answer.Fallback)
	assert.Empty(t, answer.References)
	prompt := model.calls("ask_document")[0].Prompt
	assert.Contains(t, prompt, "Section 1: Short title")
	assert.Contains(t, prompt, "Section 2: Deposit")
}

func TestDocumentService_WholeDocumentOperations(t *testing.T) {
	model := newScriptedModel()
	model.responses["summarize_document"] = "A short tenancy statute."
	model.responses["extract_key_clauses"] = "Section 2 governs deposits."
	svc := NewDocumentService(UploadWithModel(model))
	sess := models.NewSession("s1", fixedTime)
	_, err := svc.Load(sess, "lease.txt", leaseText)
	require.NoError(t, err)

	summary, err := svc.Summarize(context.Background(), UploadRequest{Session: sess})
	require.NoError(t, err)
	assert.Equal(t, "A short tenancy statute.", summary.Answer)

	clauses, err := svc.KeyClauses(context.Background(), UploadRequest{Session: sess})
	require.NoError(t, err)
	assert.Equal(t, "Section 2 governs deposits.", clauses.Answer)

	assert.Contains(t, model.calls("summarize_document")[0].Prompt, "Document: lease.txt")
	assert.Equal(t, DefaultPromptTemplates().System["document"], model.calls("extract_key_clauses")[0].System)
}

func TestDocumentService_RequiresDocument(t *testing.T) {
	svc := NewDocumentService(UploadWithModel(newScriptedModel()))
	sess := models.NewSession("s1", fixedTime)
	ctx := context.Background()

	_, err := svc.Ask(ctx, UploadRequest{Session: sess, Question: "deposit"})
	assert.ErrorIs(t, err, ErrNoDocumentLoaded)
	_, err = svc.Summarize(ctx, UploadRequest{Session: sess})
	assert.ErrorIs(t, err, ErrNoDocumentLoaded)
	_, err = svc.KeyClauses(ctx, UploadRequest{Session: sess})
	assert.ErrorIs(t, err, ErrNoDocumentLoaded)
	assert.ErrorIs(t, svc.Remove(sess), ErrNoDocumentLoaded)

	_, err = svc.Load(sess, "blank.txt", " \n\t ")
	assert.ErrorIs(t, err, ErrEmptyDocument)
	assert.Nil(t, sess.Document())
}

func TestDocumentService_Remove(t *testing.T) {
	svc := NewDocumentService()
	sess := models.NewSession("s1", fixedTime)
	_, err := svc.Load(sess, "", leaseText)
	require.NoError(t, err)
	assert.Equal(t, "document", sess.Document().Name)

	require.NoError(t, svc.Remove(sess))
	assert.Nil(t, sess.Document())
}

func TestContractAnalysisService_QueryAndAnalyze(t *testing.T) {
	model := newScriptedModel()
	model.responses["query_contract"] = "Clause 2 allows one month notice."
	model.responses["risk_analysis"] = "Clause 1: Low risk."
	svc := NewContractAnalysisService(UploadWithModel(model), UploadWithLogger(logger.NewTestLogger(t)))
	sess := models.NewSession("s1", fixedTime)

	doc, err := svc.Load(sess, "service.txt", contractText)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Termination", doc.Sections[1].Title)
	assert.Nil(t, sess.Document(), "contracts and documents are held separately")

	answer, err := svc.Query(context.Background(), UploadRequest{Session: sess, Question: "terminate notice"})
	require.NoError(t, err)
	require.NotEmpty(t, answer.References)
	assert.Equal(t, "2", answer.References[0].Section)

	risk, err := svc.Analyze(context.Background(), UploadRequest{Session: sess}, "risk_analysis")
	require.NoError(t, err)
	assert.Equal(t, "Clause 1: Low risk.", risk.Answer)
	assert.Contains(t, model.calls("risk_analysis")[0].Prompt, "Rent of RM2000")
}

func TestContractAnalysisService_Errors(t *testing.T) {
	model := newScriptedModel()
	model.errs["query_contract"] = errors.New("upstream down")
	svc := NewContractAnalysisService(UploadWithModel(model))
	sess := models.NewSession("s1", fixedTime)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, UploadRequest{Session: sess}, "risk_analysis")
	assert.ErrorIs(t, err, ErrNoContractLoaded)
	_, err = svc.Analyze(ctx, UploadRequest{Session: sess}, "horoscope")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	assert.Equal(t, []string{"extract_obligations", "risk_analysis", "validate_contract"}, svc.Templates())

	_, err = svc.Load(sess, "service.txt", contractText)
	require.NoError(t, err)
	_, err = svc.Query(ctx, UploadRequest{Session: sess, Question: "payment"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query contract failed")

	_, err = svc.Query(ctx, UploadRequest{Session: sess, Question: " "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	require.NoError(t, svc.Remove(sess))
	assert.ErrorIs(t, svc.Remove(sess), ErrNoContractLoaded)
}
