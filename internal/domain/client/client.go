// Package client models marketplace customers, their KYC documents and
// portal credentials.
package client

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/identity"
	"github.com/tradelinemarket/backend/internal/domain/shared"
)

// ResetTokenTTL is how long a password reset token stays valid
const ResetTokenTTL = time.Hour

// DocumentType names an uploaded KYC artifact
type DocumentType string

const (
	DocumentTypeID        DocumentType = "id_document"
	DocumentTypeSSN       DocumentType = "ssn_document"
	DocumentTypeSignature DocumentType = "signature"
)

// IsValid checks if the document type is valid
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeID, DocumentTypeSSN, DocumentTypeSignature:
		return true
	}
	return false
}

// IsIdentity reports whether the type is an identity document admins may view
func (t DocumentType) IsIdentity() bool {
	return t == DocumentTypeID || t == DocumentTypeSSN
}

// Address is a postal address
type Address struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

// Client is an end customer
type Client struct {
	shared.BaseEntity
	Name                string
	Email               string
	Phone               string
	Address             Address
	DateOfBirth         *time.Time
	PasswordHash        string
	ResetToken          string
	ResetTokenExpires   *time.Time
	IDDocumentPath      string
	SSNDocumentPath     string
	DocumentsVerified   bool
	Signature           string
	SignedAgreementDate *time.Time
	ExcludedBanks       []string
	LastLoginAt         *time.Time
}

// Contact is the data collected at checkout
type Contact struct {
	Name        string
	Email       string
	Phone       string
	Address     Address
	DateOfBirth *time.Time
}

// NewClient creates a client from checkout contact data
func NewClient(c Contact) (*Client, error) {
	cl := &Client{BaseEntity: shared.NewBaseEntity()}
	if err := cl.UpdateContact(c); err != nil {
		return nil, err
	}
	return cl, nil
}

// UpdateContact refreshes contact details. Email is the identity key and is
// validated but may only change through this method.
func (c *Client) UpdateContact(ct Contact) error {
	name := strings.TrimSpace(ct.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Client name cannot be empty")
	}
	email := identity.NormalizeEmail(ct.Email)
	if err := identity.ValidateEmail(email); err != nil {
		return err
	}
	c.Name = name
	c.Email = email
	if ct.Phone != "" {
		c.Phone = strings.TrimSpace(ct.Phone)
	}
	if ct.Address != (Address{}) {
		c.Address = ct.Address
	}
	if ct.DateOfBirth != nil {
		c.DateOfBirth = ct.DateOfBirth
	}
	c.Touch()
	return nil
}

// FillMissingContact copies checkout details into fields the client has not
// set yet. Anonymous checkouts use it so knowing an email never rewrites an
// existing account.
func (c *Client) FillMissingContact(ct Contact) {
	changed := false
	if c.Name == "" {
		if name := strings.TrimSpace(ct.Name); name != "" {
			c.Name = name
			changed = true
		}
	}
	if c.Phone == "" && strings.TrimSpace(ct.Phone) != "" {
		c.Phone = strings.TrimSpace(ct.Phone)
		changed = true
	}
	if c.Address == (Address{}) && ct.Address != (Address{}) {
		c.Address = ct.Address
		changed = true
	}
	if c.DateOfBirth == nil && ct.DateOfBirth != nil {
		c.DateOfBirth = ct.DateOfBirth
		changed = true
	}
	if changed {
		c.Touch()
	}
}

// IsSigned reports whether the agreement was signed
func (c *Client) IsSigned() bool {
	return c.Signature != ""
}

// HasPortalAccess reports whether a portal password was set
func (c *Client) HasPortalAccess() bool {
	return c.PasswordHash != ""
}

// SetPassword sets the portal password and clears any pending reset
func (c *Client) SetPassword(password string) error {
	if err := identity.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := identity.HashPassword(password)
	if err != nil {
		return err
	}
	c.PasswordHash = hash
	c.ResetToken = ""
	c.ResetTokenExpires = nil
	c.Touch()
	return nil
}

// VerifyPassword checks the portal password
func (c *Client) VerifyPassword(password string) bool {
	return identity.CheckPassword(c.PasswordHash, password)
}

// IssueResetToken creates a one-hour password reset token
func (c *Client) IssueResetToken(now time.Time) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(b)
	expires := now.Add(ResetTokenTTL)
	c.ResetToken = token
	c.ResetTokenExpires = &expires
	c.Touch()
	return token, nil
}

// ResetTokenValid reports whether token matches and has not expired
func (c *Client) ResetTokenValid(token string, now time.Time) bool {
	if c.ResetToken == "" || token == "" || c.ResetTokenExpires == nil {
		return false
	}
	return c.ResetToken == token && now.Before(*c.ResetTokenExpires)
}

// ResetPassword sets a new password using a valid reset token
func (c *Client) ResetPassword(token, password string, now time.Time) error {
	if !c.ResetTokenValid(token, now) {
		return shared.NewDomainError("INVALID_TOKEN", "Reset token is invalid or expired")
	}
	return c.SetPassword(password)
}

// AttachDocument records the storage key of an uploaded document
func (c *Client) AttachDocument(docType DocumentType, key string) error {
	switch docType {
	case DocumentTypeID:
		c.IDDocumentPath = key
	case DocumentTypeSSN:
		c.SSNDocumentPath = key
	default:
		return shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Invalid document type: %s", docType))
	}
	c.DocumentsVerified = false
	c.Touch()
	return nil
}

// OwnsDocument reports whether key is one of this client's stored documents
func (c *Client) OwnsDocument(key string) bool {
	return key != "" && (key == c.IDDocumentPath || key == c.SSNDocumentPath)
}

// SetDocumentsVerified records the admin KYC decision
func (c *Client) SetDocumentsVerified(verified bool) {
	c.DocumentsVerified = verified
	c.Touch()
}

// Sign records the agreement signature, either a data-URL image or a typed legal name
func (c *Client) Sign(signature string, at time.Time) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return shared.NewDomainError("INVALID_SIGNATURE", "Signature cannot be empty")
	}
	c.Signature = signature
	c.SignedAgreementDate = &at
	c.Touch()
	return nil
}

// SignatureIsImage reports whether the signature is a drawn image
func (c *Client) SignatureIsImage() bool {
	return strings.HasPrefix(c.Signature, "data:image/")
}

// SetExcludedBanks records banks the client already holds tradelines with
func (c *Client) SetExcludedBanks(banks []string) {
	out := make([]string, 0, len(banks))
	seen := make(map[string]struct{}, len(banks))
	for _, b := range banks {
		b = strings.TrimSpace(b)
		key := strings.ToLower(b)
		if b == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	c.ExcludedBanks = out
	c.Touch()
}

// RecordLogin stamps the last login time
func (c *Client) RecordLogin() {
	now := time.Now()
	c.LastLoginAt = &now
	c.UpdatedAt = now
}

// Principal returns the authenticated view of the client
func (c *Client) Principal() identity.Principal {
	return identity.Principal{
		ID:    c.ID,
		Email: c.Email,
		Name:  c.Name,
		Role:  identity.PrincipalRoleClient,
	}
}

// DocumentKey builds the object key documents/<clientId>/<type>-<unixMillis>-<6 hex>.<ext>
func DocumentKey(clientID uuid.UUID, docType DocumentType, ext string, now time.Time) (string, error) {
	if !docType.IsValid() {
		return "", shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Invalid document type: %s", docType))
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return "", shared.NewDomainError("INVALID_FILE", "File extension is required")
	}
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate document suffix: %w", err)
	}
	name := fmt.Sprintf("%s-%d-%s.%s", docType, now.UnixMilli(), hex.EncodeToString(buf), ext)
	return path.Join("documents", clientID.String(), name), nil
}

// DocumentKeyFromFilename resolves a stored filename of the given type back to
// its object key. Path separators and names of another type are rejected.
func DocumentKeyFromFilename(clientID uuid.UUID, docType DocumentType, filename string) (string, error) {
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		return "", shared.NewDomainError("INVALID_FILENAME", "Invalid document filename")
	}
	if !strings.HasPrefix(filename, string(docType)+"-") {
		return "", shared.NewDomainError("INVALID_FILENAME", "Filename does not match document type")
	}
	return path.Join("documents", clientID.String(), filename), nil
}
