package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appclient "github.com/tradelinemarket/backend/internal/application/client"
	apporder "github.com/tradelinemarket/backend/internal/application/order"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/infrastructure/logger"
	"github.com/tradelinemarket/backend/internal/interfaces/http/dto"
	"github.com/tradelinemarket/backend/internal/interfaces/http/middleware"
)

// PortalHandler serves the client portal
type PortalHandler struct {
	BaseHandler
	clients *appclient.ClientService
	orders  *apporder.OrderService
}

// NewPortalHandler creates a new PortalHandler
func NewPortalHandler(clients *appclient.ClientService, orders *apporder.OrderService) *PortalHandler {
	return &PortalHandler{clients: clients, orders: orders}
}

// Profile godoc
// @Summary      Client profile
// @Tags         portal
// @Router       /portal/profile [get]
func (h *PortalHandler) Profile(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	profile, err := h.clients.Profile(c.Request.Context(), p.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profile)
}

// Orders godoc
// @Summary      Client order history
// @Tags         portal
// @Router       /portal/orders [get]
func (h *PortalHandler) Orders(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	filter := listFilter(c, 20)
	orders, total, err := h.orders.ListForClient(c.Request.Context(), p.ID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// Order godoc
// @Summary      One of the client's orders
// @Tags         portal
// @Router       /portal/orders/{id} [get]
func (h *PortalHandler) Order(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetForClient(c.Request.Context(), p.ID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// UploadDocument godoc
// @Summary      Upload an identity document
// @Description  Multipart form with "type" (id_document or ssn_document) and "file" (JPEG, PNG, WEBP or PDF up to 10MB)
// @Tags         portal
// @Accept       multipart/form-data
// @Router       /portal/documents [post]
func (h *PortalHandler) UploadDocument(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	docType := c.PostForm("type")
	if docType == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationRequired, "type is required")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationRequired, "file is required")
		return
	}
	if fh.Size > appclient.MaxDocumentSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeFileTooLarge, "File exceeds the 10MB limit")
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, appclient.MaxDocumentSize+1))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	doc, err := h.clients.UploadDocument(c.Request.Context(), p.ID, appclient.UploadDocumentRequest{
		Type:        client.DocumentType(docType),
		Filename:    fh.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// ForgotPassword godoc
// @Summary      Request a password reset link
// @Description  Always succeeds so account existence is not revealed
// @Tags         portal
// @Router       /portal/forgot-password [post]
func (h *PortalHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	if err := h.clients.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		// the response is identical either way
		logger.L(c.Request.Context()).Error("Forgot password failed", zap.Error(err))
	}
	h.Success(c, MessageResponse{Message: "If the email is registered, a reset link has been sent"})
}

// ValidateResetToken godoc
// @Summary      Check a reset token
// @Tags         portal
// @Router       /portal/validate-reset-token [post]
func (h *PortalHandler) ValidateResetToken(c *gin.Context) {
	var req ValidateResetTokenRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	valid, err := h.clients.ValidateResetToken(c.Request.Context(), req.Token)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ValidateResetTokenResponse{Valid: valid})
}

// ResetPassword godoc
// @Summary      Set a new password with a reset token
// @Tags         portal
// @Router       /portal/reset-password [post]
func (h *PortalHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	if err := h.clients.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageResponse{Message: "Password has been reset"})
}
