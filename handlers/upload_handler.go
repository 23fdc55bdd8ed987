package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"lexassist-backend/models"
	"lexassist-backend/service"
	"lexassist-backend/session"

	"github.com/gin-gonic/gin"
)

// MaxUploadFileSize caps multipart text uploads
const MaxUploadFileSize = 10 * 1024 * 1024

// UploadRequest is the body for attaching extracted text to a session
type UploadRequest struct {
	Name string `json:"name"`
	Text string `json:"text" binding:"required"`
}

func uploadError(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// readUpload accepts a JSON body or a multipart form with a "file" part and optional "name".
// It writes the error response itself when the upload is unusable.
func readUpload(c *gin.Context) (UploadRequest, bool) {
	var req UploadRequest
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return req, false
		}
		return req, true
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		uploadError(c, "MISSING_FILE", "File is required")
		return req, false
	}
	if fileHeader.Size > MaxUploadFileSize {
		uploadError(c, "FILE_TOO_LARGE", fmt.Sprintf("File size exceeds maximum of %d bytes", MaxUploadFileSize))
		return req, false
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
		case ".txt", ".md":
			mimeType = "text/plain"
		}
	}
	if !strings.HasPrefix(mimeType, "text/") {
		uploadError(c, "INVALID_FILE_TYPE", "Only extracted plain text is accepted (TXT)")
		return req, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		uploadError(c, "FILE_OPEN_ERROR", err.Error())
		return req, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		uploadError(c, "FILE_OPEN_ERROR", err.Error())
		return req, false
	}

	req.Name = c.PostForm("name")
	if req.Name == "" {
		req.Name = fileHeader.Filename
	}
	req.Text = string(data)
	return req, true
}

func uploadSummary(doc *models.UploadedDocument) gin.H {
	labels := make([]string, len(doc.Sections))
	for i, s := range doc.Sections {
		labels[i] = s.Section
	}
	return gin.H{
		"name":      doc.Name,
		"sections":  len(doc.Sections),
		"labels":    labels,
		"loaded_at": doc.LoadedAt,
	}
}

type uploadCall func(ctx context.Context, req service.UploadRequest) (*service.UploadAnswer, error)

// answerUpload runs call for the session in :id; withQuestion requires a question body
func answerUpload(c *gin.Context, store *session.Store, withQuestion bool, call uploadCall) {
	var body QuestionRequest
	if withQuestion {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
	}
	sess, found := loadSession(c, store)
	if !found {
		return
	}
	answer, err := call(c.Request.Context(), service.UploadRequest{
		Session:  sess,
		Question: body.Question,
		APIKey:   c.GetHeader(APIKeyHeader),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, answer)
}

// DocumentHandler handles the uploaded-document endpoints of a session
type DocumentHandler struct {
	sessions  *session.Store
	documents *service.DocumentService
}

func NewDocumentHandler(sessions *session.Store, documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{sessions: sessions, documents: documents}
}

// LoadDocument handles POST /api/sessions/:id/document
func (h *DocumentHandler) LoadDocument(c *gin.Context) {
	req, valid := readUpload(c)
	if !valid {
		return
	}
	sess, found := loadSession(c, h.sessions)
	if !found {
		return
	}
	doc, err := h.documents.Load(sess, req.Name, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, uploadSummary(doc))
}

// AskDocument handles POST /api/sessions/:id/document/ask
func (h *DocumentHandler) AskDocument(c *gin.Context) {
	answerUpload(c, h.sessions, true, h.documents.Ask)
}

// SummarizeDocument handles POST /api/sessions/:id/document/summarize
func (h *DocumentHandler) SummarizeDocument(c *gin.Context) {
	answerUpload(c, h.sessions, false, h.documents.Summarize)
}

// KeyClauses handles POST /api/sessions/:id/document/clauses
func (h *DocumentHandler) KeyClauses(c *gin.Context) {
	answerUpload(c, h.sessions, false, h.documents.KeyClauses)
}

// RemoveDocument handles DELETE /api/sessions/:id/document
func (h *DocumentHandler) RemoveDocument(c *gin.Context) {
	sess, found := loadSession(c, h.sessions)
	if !found {
		return
	}
	if err := h.documents.Remove(sess); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"removed": true})
}

// ContractAnalysisHandler handles the uploaded-contract endpoints of a session
type ContractAnalysisHandler struct {
	sessions  *session.Store
	contracts *service.ContractAnalysisService
}

func NewContractAnalysisHandler(sessions *session.Store, contracts *service.ContractAnalysisService) *ContractAnalysisHandler {
	return &ContractAnalysisHandler{sessions: sessions, contracts: contracts}
}

// LoadContract handles POST /api/sessions/:id/contract
func (h *ContractAnalysisHandler) LoadContract(c *gin.Context) {
	req, valid := readUpload(c)
	if !valid {
		return
	}
	sess, found := loadSession(c, h.sessions)
	if !found {
		return
	}
	doc, err := h.contracts.Load(sess, req.Name, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	summary := uploadSummary(doc)
	summary["analyses"] = h.contracts.Templates()
	ok(c, http.StatusCreated, summary)
}

// QueryContract handles POST /api/sessions/:id/contract/query
func (h *ContractAnalysisHandler) QueryContract(c *gin.Context) {
	answerUpload(c, h.sessions, true, h.contracts.Query)
}

// AnalyzeContract handles POST /api/sessions/:id/contract/analyze/:template
func (h *ContractAnalysisHandler) AnalyzeContract(c *gin.Context) {
	template := c.Param("template")
	answerUpload(c, h.sessions, false, func(ctx context.Context, req service.UploadRequest) (*service.UploadAnswer, error) {
		return h.contracts.Analyze(ctx, req, template)
	})
}

// ListAnalyses handles GET /api/contracts/analyses
func (h *ContractAnalysisHandler) ListAnalyses(c *gin.Context) {
	ok(c, http.StatusOK, h.contracts.Templates())
}

// RemoveContract handles DELETE /api/sessions/:id/contract
func (h *ContractAnalysisHandler) RemoveContract(c *gin.Context) {
	sess, found := loadSession(c, h.sessions)
	if !found {
		return
	}
	if err := h.contracts.Remove(sess); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"removed": true})
}
