package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"lexassist-backend/llm"
	"lexassist-backend/repository"
	"lexassist-backend/service"
	"lexassist-backend/session"
	"lexassist-backend/storage"

	"github.com/gin-gonic/gin"
)

// APIKeyHeader carries the caller's model credential; it is never stored
const APIKeyHeader = "X-API-Key"

type errorMapping struct {
	target error
	status int
	code   string
}

var sentinelErrors = []errorMapping{
	{session.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
	{repository.ErrLawNotFound, http.StatusNotFound, "NOT_FOUND"},
	{repository.ErrDuplicateFileKey, http.StatusConflict, "DUPLICATE_FILE_KEY"},
	{repository.ErrVersionNotNewer, http.StatusConflict, "VERSION_NOT_NEWER"},
	{repository.ErrFileKeyMismatch, http.StatusBadRequest, "FILE_KEY_MISMATCH"},
	{repository.ErrBackupNotAvailable, http.StatusBadRequest, "BACKUP_NOT_AVAILABLE"},
	{service.ErrReadOnly, http.StatusForbidden, "READ_ONLY"},
	{service.ErrEmptyQuestion, http.StatusBadRequest, "INVALID_REQUEST"},
	{service.ErrEmptyDocument, http.StatusBadRequest, "EMPTY_DOCUMENT"},
	{service.ErrNoDocumentLoaded, http.StatusConflict, "NO_DOCUMENT"},
	{service.ErrNoContractLoaded, http.StatusConflict, "NO_CONTRACT"},
	{service.ErrUnknownTemplate, http.StatusNotFound, "UNKNOWN_TEMPLATE"},
	{service.ErrUnknownContractType, http.StatusBadRequest, "UNKNOWN_CONTRACT_TYPE"},
	{service.ErrMissingContractFields, http.StatusBadRequest, "MISSING_FIELDS"},
	{service.ErrEmptyCorpus, http.StatusConflict, "EMPTY_CORPUS"},
	{service.ErrNoOutputStorage, http.StatusBadRequest, "OUTPUTS_NOT_AVAILABLE"},
	{storage.ErrArtifactNotFound, http.StatusNotFound, "NOT_FOUND"},
	{storage.ErrInvalidKey, http.StatusBadRequest, "INVALID_REQUEST"},
	{llm.ErrMissingAPIKey, http.StatusUnauthorized, "MISSING_API_KEY"},
	{llm.ErrInvalidAPIKey, http.StatusUnauthorized, "INVALID_API_KEY"},
	{llm.ErrTimeout, http.StatusGatewayTimeout, "MODEL_TIMEOUT"},
	{llm.ErrEmptyResponse, http.StatusBadGateway, "MODEL_ERROR"},
	{service.ErrNoQuestionsMade, http.StatusBadGateway, "MODEL_ERROR"},
}

// classify maps a service error to an HTTP status and envelope code
func classify(err error) (int, string) {
	var verr *repository.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, "INVALID_LAW_DATA"
	}
	for _, m := range sentinelErrors {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return http.StatusUnauthorized, "INVALID_API_KEY"
		}
		return http.StatusBadGateway, "MODEL_ERROR"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func writeError(c *gin.Context, err error) {
	status, code := classify(err)
	body := gin.H{
		"code":    code,
		"message": err.Error(),
	}
	var verr *repository.ValidationError
	if errors.As(err, &verr) {
		body["details"] = verr.Problems
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INVALID_REQUEST",
			"message": err.Error(),
		},
	})
}

// sendArtifact streams a stored artifact as a download and closes it
func sendArtifact(c *gin.Context, name string, rc io.ReadCloser) {
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, storage.ContentType(name), rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
	})
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}
