package handlers

import (
	"net/http"

	"lexassist-backend/service"

	"github.com/gin-gonic/gin"
)

// ContractHandler handles contract drafting
type ContractHandler struct {
	contracts *service.ContractService
}

func NewContractHandler(contracts *service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// ListContractTypes handles GET /api/contracts/types
func (h *ContractHandler) ListContractTypes(c *gin.Context) {
	ok(c, http.StatusOK, h.contracts.Types())
}

// GenerateContractRequest represents the request body for drafting a contract
type GenerateContractRequest struct {
	ContractType   string            `json:"contract_type" binding:"required"`
	Fields         map[string]string `json:"fields"`
	AdditionalInfo string            `json:"additional_info"`
}

// GenerateContract handles POST /api/contracts/generate
func (h *ContractHandler) GenerateContract(c *gin.Context) {
	var req GenerateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.contracts.Generate(c.Request.Context(), service.GenerateContractRequest{
		ContractType:   req.ContractType,
		Fields:         req.Fields,
		AdditionalInfo: req.AdditionalInfo,
		APIKey:         c.GetHeader(APIKeyHeader),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// ListOutputs handles GET /api/contracts/outputs
func (h *ContractHandler) ListOutputs(c *gin.Context) {
	outputs, err := h.contracts.Outputs(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"outputs": outputs})
}

// DownloadOutput handles GET /api/contracts/outputs/:name
func (h *ContractHandler) DownloadOutput(c *gin.Context) {
	name := c.Param("name")
	rc, err := h.contracts.OpenOutput(c.Request.Context(), name)
	if err != nil {
		writeError(c, err)
		return
	}
	sendArtifact(c, name, rc)
}

// DeleteOutput handles DELETE /api/contracts/outputs/:name
func (h *ContractHandler) DeleteOutput(c *gin.Context) {
	name := c.Param("name")
	if err := h.contracts.DeleteOutput(c.Request.Context(), name); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": name})
}
