package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lexassist-backend/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type askData struct {
	Answer     string `json:"answer"`
	Grounded   bool   `json:"grounded"`
	Notice     string `json:"notice"`
	References []struct {
		Label    string   `json:"label"`
		Keywords []string `json:"keywords"`
	} `json:"references"`
	SelectedActs []string `json:"selected_acts"`
	FollowUps    []string `json:"followups"`
}

func TestAsk_GroundedTurnIsRecorded(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	id := s.newSession(t)

	code, env := s.do(t, http.MethodPost, "/api/sessions/"+id+"/ask", QuestionRequest{Question: "employer salary payment wages"})
	require.Equal(t, http.StatusOK, code, env.Error.Message)

	var data askData
	decode(t, env.Data, &data)
	assert.True(t, data.Grounded)
	assert.Empty(t, data.Notice)
	require.NotEmpty(t, data.References)
	assert.Equal(t, "Employment Act 1955 - Section 19", data.References[0].Label)
	assert.Len(t, data.References[0].Keywords, 2, "display keywords are capped")
	assert.Equal(t, []string{"Employment Act 1955"}, data.SelectedActs)
	assert.Equal(t, []string{"What if wages are late?", "Can overtime be unpaid?"}, data.FollowUps)

	code, env = s.do(t, http.MethodGet, "/api/sessions/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, code)
	var history struct {
		History []struct {
			Question string `json:"question"`
		} `json:"history"`
	}
	decode(t, env.Data, &history)
	require.Len(t, history.History, 1)
	assert.Equal(t, "employer salary payment wages", history.History[0].Question)
}

func TestAsk_UngroundedCarriesNotice(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	id := s.newSession(t)

	code, env := s.do(t, http.MethodPost, "/api/sessions/"+id+"/ask", QuestionRequest{Question: "cryptocurrency taxation"})
	require.Equal(t, http.StatusOK, code)

	var data askData
	decode(t, env.Data, &data)
	assert.False(t, data.Grounded)
	assert.NotEmpty(t, data.Notice)
	assert.Empty(t, data.References)
}

func TestAsk_ModelErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"timeout", llm.ErrTimeout, http.StatusGatewayTimeout, "MODEL_TIMEOUT"},
		{"upstream failure", &llm.APIError{StatusCode: 400, Message: "bad"}, http.StatusBadGateway, "MODEL_ERROR"},
		{"rejected key", &llm.APIError{StatusCode: 401}, http.StatusUnauthorized, "INVALID_API_KEY"},
		{"empty response", llm.ErrEmptyResponse, http.StatusBadGateway, "MODEL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, serverOptions{})
			id := s.newSession(t)
			s.model.fail(tt.err)

			code, env := s.do(t, http.MethodPost, "/api/sessions/"+id+"/ask", QuestionRequest{Question: "salary"})

			assert.Equal(t, tt.wantCode, code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantErr, env.Error.Code)

			sess, err := s.sessions.Get(id)
			require.NoError(t, err)
			assert.Empty(t, sess.History(), "failed turns are not recorded")
		})
	}
}

func TestAsk_RequestErrors(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	id := s.newSession(t)

	code, env := s.do(t, http.MethodPost, "/api/sessions/"+id+"/ask", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	code, env = s.do(t, http.MethodPost, "/api/sessions/missing/ask", QuestionRequest{Question: "salary"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/ask", strings.NewReader(`{"question":"salary"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_API_KEY")
}

func TestResetSession(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	id := s.newSession(t)
	code, _ := s.do(t, http.MethodPost, "/api/sessions/"+id+"/ask", QuestionRequest{Question: "salary"})
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, code)

	sess, err := s.sessions.Get(id)
	require.NoError(t, err)
	assert.Empty(t, sess.History())
	assert.Empty(t, sess.FollowUps())

	code, _ = s.do(t, http.MethodDelete, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStarterQuestions(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.model.responses["qa_starters"] = "1. When are wages due?\n2. How long is a work day?"
	id := s.newSession(t)

	code, env := s.do(t, http.MethodGet, "/api/sessions/"+id+"/starter-questions", nil)
	require.Equal(t, http.StatusOK, code)

	var data struct {
		Questions []string `json:"questions"`
	}
	decode(t, env.Data, &data)
	assert.Equal(t, []string{"When are wages due?", "How long is a work day?"}, data.Questions)
}
