// Package client implements the client portal: profile, KYC documents and
// password recovery, plus the admin document review.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/identity"
	"github.com/tradelinemarket/backend/internal/domain/shared"
)

// Document limits
const (
	MaxDocumentSize   = 10 << 20
	DocumentURLExpiry = time.Hour
)

var allowedDocumentTypes = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"application/pdf": "pdf",
}

// ResetNotifier delivers password reset links
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, c *client.Client, link string) error
}

// PrincipalRevoker invalidates every token issued to a principal
type PrincipalRevoker interface {
	InvalidatePrincipal(ctx context.Context, principalID string, ttl time.Duration) error
}

// ClientServiceDeps wires ClientService
type ClientServiceDeps struct {
	Clients   client.Repository
	Storage   DocumentStorage
	Activity  analytics.ActivityRepository
	Notifier  ResetNotifier
	Revoker   PrincipalRevoker
	TokenTTL  time.Duration
	PortalURL string
	Logger    *zap.Logger
}

// ClientService handles client portal operations
type ClientService struct {
	clients   client.Repository
	storage   DocumentStorage
	activity  analytics.ActivityRepository
	notifier  ResetNotifier
	revoker   PrincipalRevoker
	tokenTTL  time.Duration
	portalURL string
	logger    *zap.Logger
	now       func() time.Time
}

// NewClientService creates a new ClientService
func NewClientService(deps ClientServiceDeps) *ClientService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("clients")
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewLogResetNotifier(logger)
	}
	return &ClientService{
		clients:   deps.Clients,
		storage:   deps.Storage,
		activity:  deps.Activity,
		notifier:  notifier,
		revoker:   deps.Revoker,
		tokenTTL:  deps.TokenTTL,
		portalURL: strings.TrimRight(deps.PortalURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// Profile returns the client's account
func (s *ClientService) Profile(ctx context.Context, clientID uuid.UUID) (*ProfileResponse, error) {
	c, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	resp := ToProfileResponse(c)
	return &resp, nil
}

// UploadDocument stores an identity document and attaches it to the client.
// A replaced document is removed from storage. Verification is reset.
func (s *ClientService) UploadDocument(ctx context.Context, clientID uuid.UUID, req UploadDocumentRequest) (*DocumentResponse, error) {
	if !req.Type.IsIdentity() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type must be id_document or ssn_document")
	}
	if len(req.Data) == 0 {
		return nil, shared.NewDomainError("INVALID_FILE", "File is empty")
	}
	if len(req.Data) > MaxDocumentSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "File exceeds the 10MB limit")
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(req.ContentType, ";")[0]))
	ext, ok := allowedDocumentTypes[contentType]
	if !ok {
		return nil, shared.NewDomainError("INVALID_FILE_TYPE", "Only JPEG, PNG, WEBP and PDF files are accepted")
	}

	c, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	key, err := client.DocumentKey(c.ID, req.Type, ext, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.storage.Upload(ctx, key, req.Data, contentType); err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	previous := c.IDDocumentPath
	if req.Type == client.DocumentTypeSSN {
		previous = c.SSNDocumentPath
	}
	if err := c.AttachDocument(req.Type, key); err != nil {
		return nil, err
	}
	if err := s.clients.Save(ctx, c); err != nil {
		return nil, err
	}
	if previous != "" && previous != key {
		if err := s.storage.Delete(ctx, previous); err != nil {
			s.logger.Warn("Failed to delete replaced document", zap.String("key", previous), zap.Error(err))
		}
	}

	s.logger.Info("Document uploaded",
		zap.String("client_id", c.ID.String()),
		zap.String("type", string(req.Type)))
	return &DocumentResponse{Type: string(req.Type), Filename: path.Base(key)}, nil
}

// DocumentURL returns a signed download link for a client's identity document
func (s *ClientService) DocumentURL(ctx context.Context, clientID uuid.UUID, docType client.DocumentType, filename string) (*DocumentURLResponse, error) {
	if !docType.IsIdentity() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type must be id_document or ssn_document")
	}
	key, err := client.DocumentKeyFromFilename(clientID, docType, filename)
	if err != nil {
		return nil, err
	}
	c, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !c.OwnsDocument(key) {
		return nil, shared.ErrNotFound
	}
	signed, expiresAt, err := s.storage.PresignGet(ctx, key, DocumentURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign document: %w", err)
	}
	return &DocumentURLResponse{
		URL:       signed,
		ExpiresIn: int(DocumentURLExpiry.Seconds()),
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyDocuments records the admin KYC decision
func (s *ClientService) VerifyDocuments(ctx context.Context, clientID uuid.UUID, verified bool, actor analytics.Actor) (*ProfileResponse, error) {
	c, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if verified && c.IDDocumentPath == "" && c.SSNDocumentPath == "" {
		return nil, shared.NewDomainError("NO_DOCUMENTS", "Client has not uploaded any documents")
	}
	c.SetDocumentsVerified(verified)
	if err := s.clients.Save(ctx, c); err != nil {
		return nil, err
	}

	if s.activity != nil {
		entry := analytics.NewActivityLog(analytics.ActionDocumentsVerified, "client", &c.ID, actor, map[string]any{
			"verified": verified,
		})
		if err := s.activity.Create(ctx, entry); err != nil {
			s.logger.Warn("Failed to record activity", zap.Error(err))
		}
	}
	resp := ToProfileResponse(c)
	return &resp, nil
}

// ForgotPassword issues a reset token when the email belongs to a client.
// The outcome is never revealed to the caller.
func (s *ClientService) ForgotPassword(ctx context.Context, email string) error {
	c, err := s.clients.FindByEmail(ctx, identity.NormalizeEmail(email))
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := c.IssueResetToken(s.now())
	if err != nil {
		return err
	}
	if err := s.clients.Save(ctx, c); err != nil {
		return err
	}
	link := s.portalURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.notifier.SendPasswordReset(ctx, c, link); err != nil {
		s.logger.Warn("Failed to send password reset", zap.String("client_id", c.ID.String()), zap.Error(err))
	}
	return nil
}

// ValidateResetToken reports whether token is a live reset token
func (s *ClientService) ValidateResetToken(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	c, err := s.clients.FindByResetToken(ctx, token)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return c.ResetTokenValid(token, s.now()), nil
}

// ResetPassword sets a new password and revokes outstanding sessions
func (s *ClientService) ResetPassword(ctx context.Context, token, password string) error {
	c, err := s.clients.FindByResetToken(ctx, token)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError("INVALID_TOKEN", "Reset token is invalid or expired")
	}
	if err != nil {
		return err
	}
	if err := c.ResetPassword(token, password, s.now()); err != nil {
		return err
	}
	if err := s.clients.Save(ctx, c); err != nil {
		return err
	}
	if s.revoker != nil {
		if err := s.revoker.InvalidatePrincipal(ctx, c.ID.String(), s.tokenTTL); err != nil {
			s.logger.Warn("Failed to revoke client sessions", zap.String("client_id", c.ID.String()), zap.Error(err))
		}
	}
	s.logger.Info("Client password reset", zap.String("client_id", c.ID.String()))
	return nil
}

// LogResetNotifier records that a reset was requested without delivering it.
// The link carries a live credential and is never written to the log.
type LogResetNotifier struct {
	logger *zap.Logger
}

// NewLogResetNotifier creates a LogResetNotifier
func NewLogResetNotifier(logger *zap.Logger) *LogResetNotifier {
	return &LogResetNotifier{logger: logger}
}

// SendPasswordReset logs the request. Configure mail to deliver the link.
func (n *LogResetNotifier) SendPasswordReset(_ context.Context, c *client.Client, _ string) error {
	n.logger.Warn("Password reset requested but mail delivery is not configured",
		zap.String("client_id", c.ID.String()))
	return nil
}
