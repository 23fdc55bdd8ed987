package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contractsAct = `{
  "metadata": {"act_name": "Contracts Act 1950", "file_key": "contracts_act_1950", "year": "1950"},
  "sections": [{"section": "10", "title": "What agreements are contracts", "text": "All agreements are contracts if made by free consent."}]
}`

func employmentActVersion(version, extraSection string) string {
	doc := strings.Replace(employmentAct, `"version": "1.0"`, `"version": "`+version+`"`, 1)
	if extraSection != "" {
		doc = strings.Replace(doc, `    {"section": "60A"`, `    {"section": "`+extraSection+`", "title": "New", "text": "Added."},
    {"section": "60A"`, 1)
	}
	return doc
}

func TestLawReadEndpoints(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	code, env := s.do(t, http.MethodGet, "/api/laws", nil)
	require.Equal(t, http.StatusOK, code)
	var list []struct {
		FileKey       string `json:"file_key"`
		TotalSections int    `json:"total_sections"`
	}
	decode(t, env.Data, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "employment_act_1955", list[0].FileKey)
	assert.Equal(t, 2, list[0].TotalSections)

	code, env = s.do(t, http.MethodGet, "/api/laws/stats", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"total_laws":1,"total_sections":2,"oldest_year":"1955","newest_year":"1955"}`, string(env.Data))

	code, _ = s.do(t, http.MethodGet, "/api/laws/employment_act_1955", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/laws/penal_code", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCreateLaw(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	code, env := s.do(t, http.MethodPost, "/api/laws", contractsAct)
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	assert.Len(t, s.repo.List(), 2)

	code, env = s.do(t, http.MethodPost, "/api/laws", contractsAct)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "DUPLICATE_FILE_KEY", env.Error.Code)

	code, env = s.do(t, http.MethodPost, "/api/laws", map[string]interface{}{
		"act_name": "Sale of Goods Act 1957",
		"file_key": "sale_of_goods_act_1957",
		"year":     "1957",
		"sections": []map[string]string{{"section": "4", "title": "Sale", "text": "A contract of sale of goods."}},
	})
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	var created struct {
		Law struct {
			Metadata struct {
				Version string `json:"version"`
			} `json:"metadata"`
		} `json:"law"`
	}
	decode(t, env.Data, &created)
	assert.Equal(t, "1.0", created.Law.Metadata.Version)
}

func TestCreateLaw_InvalidDocument(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	code, env := s.do(t, http.MethodPost, "/api/laws", `{"metadata":{"act_name":"X","file_key":"x","year":"19"},"sections":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_LAW_DATA", env.Error.Code)
	require.NotEmpty(t, env.Error.Details)
	assert.Contains(t, env.Error.Details[0], "/metadata/year")

	code, env = s.do(t, http.MethodPost, "/api/laws", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_LAW_DATA", env.Error.Code)

	code, _ = s.do(t, http.MethodPost, "/api/laws", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Len(t, s.repo.List(), 1)
}

func TestUpdateLaw(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	path := "/api/laws/employment_act_1955"

	code, env := s.do(t, http.MethodPut, path, employmentActVersion("0.9", ""))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "VERSION_NOT_NEWER", env.Error.Code)

	code, env = s.do(t, http.MethodPut, "/api/laws/contracts_act_1950", employmentActVersion("2.0", ""))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "FILE_KEY_MISMATCH", env.Error.Code)

	code, env = s.do(t, http.MethodPut, path+"?enforce_version=false", employmentActVersion("0.9", "20"))
	require.Equal(t, http.StatusOK, code, env.Error.Message)
	var result struct {
		BackupKey string `json:"backup_key"`
	}
	decode(t, env.Data, &result)
	assert.NotEmpty(t, result.BackupKey)
	assert.Equal(t, 3, s.repo.Stats().TotalSections)

	code, _ = s.do(t, http.MethodPut, path+"?enforce_version=maybe", employmentActVersion("3.0", ""))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCompareLaw(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	code, env := s.do(t, http.MethodPost, "/api/laws/employment_act_1955/compare", employmentActVersion("1.1", "20"))
	require.Equal(t, http.StatusOK, code, env.Error.Message)

	var cmp struct {
		Added           int                          `json:"sections_added"`
		MetadataChanges map[string]map[string]string `json:"metadata_changes"`
	}
	decode(t, env.Data, &cmp)
	assert.Equal(t, 1, cmp.Added)
	assert.Equal(t, map[string]string{"old": "1.0", "new": "1.1"}, cmp.MetadataChanges["version"])
	assert.Equal(t, 2, s.repo.Stats().TotalSections, "compare never writes")
}

func TestDeleteLaw(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	code, env := s.do(t, http.MethodDelete, "/api/laws/employment_act_1955", nil)
	require.Equal(t, http.StatusOK, code, env.Error.Message)
	var result struct {
		BackupLocation string `json:"backup_location"`
	}
	decode(t, env.Data, &result)
	assert.NotEmpty(t, result.BackupLocation)
	assert.Empty(t, s.repo.List())

	code, _ = s.do(t, http.MethodDelete, "/api/laws/employment_act_1955?backup=false", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLawBackups(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	code, env := s.do(t, http.MethodGet, "/api/laws/backups", nil)
	require.Equal(t, http.StatusOK, code)
	var listed struct {
		Backups []struct {
			Name string `json:"name"`
			Key  string `json:"key"`
		} `json:"backups"`
	}
	decode(t, env.Data, &listed)
	assert.Empty(t, listed.Backups)

	code, env = s.do(t, http.MethodDelete, "/api/laws/employment_act_1955", nil)
	require.Equal(t, http.StatusOK, code, env.Error.Message)
	var deleted struct {
		BackupKey string `json:"backup_key"`
	}
	decode(t, env.Data, &deleted)

	code, env = s.do(t, http.MethodGet, "/api/laws/backups", nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, env.Data, &listed)
	require.Len(t, listed.Backups, 1)
	assert.Equal(t, deleted.BackupKey, listed.Backups[0].Key)

	w := s.raw(t, http.MethodGet, "/api/laws/backups/"+listed.Backups[0].Name)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"file_key": "employment_act_1955"`)

	code, env = s.do(t, http.MethodGet, "/api/laws/backups/missing.json", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestLawMutations_ReadOnly(t *testing.T) {
	s := newTestServer(t, serverOptions{readOnly: true})

	code, env := s.do(t, http.MethodPost, "/api/laws", contractsAct)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "READ_ONLY", env.Error.Code)

	code, _ = s.do(t, http.MethodDelete, "/api/laws/employment_act_1955", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Len(t, s.repo.List(), 1)

	code, _ = s.do(t, http.MethodGet, "/api/laws", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/laws/backups", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRequestBodyLimit(t *testing.T) {
	s := newTestServer(t, serverOptions{maxBody: 64})

	code, env := s.do(t, http.MethodPost, "/api/laws", contractsAct)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}
