package client

import (
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/tradelinemarket/backend/internal/domain/client"
)

// AddressResponse is a postal address
type AddressResponse struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

// ProfileResponse is the client's own view of their account
type ProfileResponse struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	Email               string          `json:"email"`
	Phone               string          `json:"phone,omitempty"`
	Address             AddressResponse `json:"address"`
	DateOfBirth         *time.Time      `json:"date_of_birth,omitempty"`
	IDDocument          string          `json:"id_document,omitempty"`
	SSNDocument         string          `json:"ssn_document,omitempty"`
	DocumentsVerified   bool            `json:"documents_verified"`
	SignedAgreementDate *time.Time      `json:"signed_agreement_date,omitempty"`
	ExcludedBanks       []string        `json:"excluded_banks"`
	LastLoginAt         *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ToProfileResponse converts a domain Client to ProfileResponse
func ToProfileResponse(c *client.Client) ProfileResponse {
	banks := c.ExcludedBanks
	if banks == nil {
		banks = []string{}
	}
	return ProfileResponse{
		ID:    c.ID,
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
		Address: AddressResponse{
			Street:  c.Address.Street,
			City:    c.Address.City,
			State:   c.Address.State,
			ZipCode: c.Address.ZipCode,
		},
		DateOfBirth:         c.DateOfBirth,
		IDDocument:          fileName(c.IDDocumentPath),
		SSNDocument:         fileName(c.SSNDocumentPath),
		DocumentsVerified:   c.DocumentsVerified,
		SignedAgreementDate: c.SignedAgreementDate,
		ExcludedBanks:       banks,
		LastLoginAt:         c.LastLoginAt,
		CreatedAt:           c.CreatedAt,
	}
}

// UploadDocumentRequest carries one uploaded KYC file
type UploadDocumentRequest struct {
	Type        client.DocumentType
	Filename    string
	ContentType string
	Data        []byte
}

// DocumentResponse identifies a stored document
type DocumentResponse struct {
	Type     string `json:"type"`
	Filename string `json:"filename"`
}

// DocumentURLResponse is a time-limited download link
type DocumentURLResponse struct {
	URL       string    `json:"url"`
	ExpiresIn int       `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
}

func fileName(key string) string {
	if key == "" {
		return ""
	}
	return path.Base(key)
}
