package handlers

import (
	"net/http"

	"lexassist-backend/models"
	"lexassist-backend/service"
	"lexassist-backend/session"

	"github.com/gin-gonic/gin"
)

// SessionHandler handles session lifecycle and law Q&A
type SessionHandler struct {
	sessions        *session.Store
	qa              *service.QAService
	displayKeywords int
}

// NewSessionHandler creates a new session handler; displayKeywords caps keywords shown per reference
func NewSessionHandler(sessions *session.Store, qa *service.QAService, displayKeywords int) *SessionHandler {
	return &SessionHandler{
		sessions:        sessions,
		qa:              qa,
		displayKeywords: displayKeywords,
	}
}

// loadSession resolves :id, writing the error response when it is unknown
func loadSession(c *gin.Context, store *session.Store) (*models.Session, bool) {
	sess, err := store.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return sess, true
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	sess := h.sessions.Create()
	ok(c, http.StatusCreated, gin.H{
		"id":         sess.ID,
		"created_at": sess.CreatedAt,
	})
}

// ResetSession handles DELETE /api/sessions/:id
func (h *SessionHandler) ResetSession(c *gin.Context) {
	sess, err := h.sessions.Reset(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": sess.ID})
}

// GetHistory handles GET /api/sessions/:id/history
func (h *SessionHandler) GetHistory(c *gin.Context) {
	sess, found := loadSession(c, h.sessions)
	if !found {
		return
	}
	ok(c, http.StatusOK, gin.H{
		"id":        sess.ID,
		"history":   sess.History(),
		"followups": sess.FollowUps(),
	})
}

// GetStarterQuestions handles GET /api/sessions/:id/starter-questions
func (h *SessionHandler) GetStarterQuestions(c *gin.Context) {
	sess, found := loadSession(c, h.sessions)
	if !found {
		return
	}
	questions, err := h.qa.StarterQuestions(c.Request.Context(), sess, c.GetHeader(APIKeyHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"questions": questions})
}

// QuestionRequest is the body of every ask/query endpoint
type QuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

// referenceView is a reference with its keyword list trimmed for display
type referenceView struct {
	Label    string   `json:"label"`
	Act      string   `json:"act"`
	Section  string   `json:"section"`
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
	Score    int      `json:"score"`
}

func referenceViews(refs []models.Reference, keywords int) []referenceView {
	views := make([]referenceView, len(refs))
	for i, r := range refs {
		views[i] = referenceView{
			Label:    r.Label(),
			Act:      r.Act,
			Section:  r.Section,
			Title:    r.Title,
			Keywords: r.DisplayKeywords(keywords),
			Score:    r.Score,
		}
	}
	return views
}

// Ask handles POST /api/sessions/:id/ask
func (h *SessionHandler) Ask(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, found := loadSession(c, h.sessions)
	if !found {
		return
	}

	result, err := h.qa.Ask(c.Request.Context(), service.AskRequest{
		Session:  sess,
		Question: req.Question,
		APIKey:   c.GetHeader(APIKeyHeader),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	ok(c, http.StatusOK, gin.H{
		"answer":            result.Turn.Answer,
		"grounded":          result.Turn.Grounded,
		"notice":            result.Notice,
		"references":        referenceViews(result.Turn.References, h.displayKeywords),
		"selected_acts":     result.Turn.SelectedActs,
		"selected_sections": result.Turn.SelectedSections,
		"citation_warnings": result.Turn.CitationWarnings,
		"followups":         result.FollowUps,
	})
}
