package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"lexassist-backend/service"

	"github.com/gin-gonic/gin"
)

// LawHandler handles the law database endpoints
type LawHandler struct {
	laws *service.LawService
}

func NewLawHandler(laws *service.LawService) *LawHandler {
	return &LawHandler{laws: laws}
}

// ListLaws handles GET /api/laws
func (h *LawHandler) ListLaws(c *gin.Context) {
	ok(c, http.StatusOK, h.laws.List())
}

// GetStats handles GET /api/laws/stats
func (h *LawHandler) GetStats(c *gin.Context) {
	ok(c, http.StatusOK, h.laws.Stats())
}

// GetLaw handles GET /api/laws/:key
func (h *LawHandler) GetLaw(c *gin.Context) {
	law, err := h.laws.Get(c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, law)
}

// ListBackups handles GET /api/laws/backups
func (h *LawHandler) ListBackups(c *gin.Context) {
	backups, err := h.laws.Backups(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"backups": backups})
}

// DownloadBackup handles GET /api/laws/backups/:name
func (h *LawHandler) DownloadBackup(c *gin.Context) {
	name := c.Param("name")
	rc, err := h.laws.OpenBackup(c.Request.Context(), name)
	if err != nil {
		writeError(c, err)
		return
	}
	sendArtifact(c, name, rc)
}

// CreateLaw handles POST /api/laws.
// A body with a "metadata" object is a complete law document; anything else is read as
// individual fields (act_name, file_key, year, sections...).
func (h *LawHandler) CreateLaw(c *gin.Context) {
	data, err := readBody(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) == nil {
		if _, isDocument := fields["metadata"]; !isDocument {
			var req service.CreateLawRequest
			if err := json.Unmarshal(data, &req); err != nil {
				badRequest(c, err)
				return
			}
			result, err := h.laws.Create(c.Request.Context(), req)
			if err != nil {
				writeError(c, err)
				return
			}
			ok(c, http.StatusCreated, result)
			return
		}
	}

	result, err := h.laws.Add(c.Request.Context(), data)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, result)
}

// CompareLaw handles POST /api/laws/:key/compare
func (h *LawHandler) CompareLaw(c *gin.Context) {
	data, err := readBody(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	cmp, err := h.laws.Compare(c.Param("key"), data)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, cmp)
}

// UpdateLaw handles PUT /api/laws/:key?enforce_version=true
func (h *LawHandler) UpdateLaw(c *gin.Context) {
	enforce, err := boolQuery(c, "enforce_version", true)
	if err != nil {
		badRequest(c, err)
		return
	}
	data, err := readBody(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.laws.Update(c.Request.Context(), c.Param("key"), data, enforce)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// DeleteLaw handles DELETE /api/laws/:key?backup=true
func (h *LawHandler) DeleteLaw(c *gin.Context) {
	backup, err := boolQuery(c, "backup", true)
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.laws.Delete(c.Request.Context(), c.Param("key"), backup)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

func readBody(c *gin.Context) ([]byte, error) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}
	return data, nil
}

func boolQuery(c *gin.Context, name string, def bool) (bool, error) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("query parameter %s: %q is not a boolean", name, raw)
	}
	return v, nil
}
