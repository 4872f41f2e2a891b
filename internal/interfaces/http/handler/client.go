package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appclient "github.com/tradelinemarket/backend/internal/application/client"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/interfaces/http/dto"
	"github.com/tradelinemarket/backend/internal/interfaces/http/middleware"
)

// ClientHandler handles admin review of client KYC documents
type ClientHandler struct {
	BaseHandler
	clientService *appclient.ClientService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clientService *appclient.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// DocumentURL godoc
// @Summary      Signed download link for a client document
// @Tags         admin-clients
// @Param        type      path  string true "id_document or ssn_document"
// @Param        filename  path  string true "Stored file name"
// @Param        client_id query string true "Client ID"
// @Router       /admin/documents/{type}/{filename} [get]
func (h *ClientHandler) DocumentURL(c *gin.Context) {
	clientID, err := uuid.Parse(c.Query("client_id"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "client_id query parameter must be a valid UUID")
		return
	}

	resp, err := h.clientService.DocumentURL(c.Request.Context(), clientID,
		client.DocumentType(c.Param("type")), c.Param("filename"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// VerifyDocuments godoc
// @Summary      Approve or reject a client's documents
// @Tags         admin-clients
// @Router       /admin/clients/{id}/verify-documents [put]
func (h *ClientHandler) VerifyDocuments(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req VerifyDocumentsRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	profile, err := h.clientService.VerifyDocuments(c.Request.Context(), id, *req.Verified, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}
