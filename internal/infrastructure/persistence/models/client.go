package models

import (
	"time"

	"github.com/tradelinemarket/backend/internal/domain/client"
)

// ClientModel is the persistence model for the Client entity.
type ClientModel struct {
	BaseModel
	Name                string `gorm:"type:varchar(200);not null"`
	Email               string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Phone               string `gorm:"type:varchar(50)"`
	Street              string `gorm:"type:varchar(300)"`
	City                string `gorm:"type:varchar(100)"`
	State               string `gorm:"type:varchar(50)"`
	ZipCode             string `gorm:"type:varchar(20)"`
	DateOfBirth         *time.Time
	PasswordHash        string `gorm:"type:varchar(255)"`
	ResetToken          string `gorm:"type:varchar(100);index"`
	ResetTokenExpires   *time.Time
	IDDocumentPath      string `gorm:"column:id_document_path;type:varchar(500)"`
	SSNDocumentPath     string `gorm:"column:ssn_document_path;type:varchar(500)"`
	DocumentsVerified   bool   `gorm:"not null;default:false"`
	Signature           string `gorm:"type:text"`
	SignedAgreementDate *time.Time
	ExcludedBanks       []string `gorm:"serializer:json;type:text"`
	LastLoginAt         *time.Time
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client.
func (m *ClientModel) ToDomain() *client.Client {
	return &client.Client{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Address: client.Address{
			Street:  m.Street,
			City:    m.City,
			State:   m.State,
			ZipCode: m.ZipCode,
		},
		DateOfBirth:         m.DateOfBirth,
		PasswordHash:        m.PasswordHash,
		ResetToken:          m.ResetToken,
		ResetTokenExpires:   m.ResetTokenExpires,
		IDDocumentPath:      m.IDDocumentPath,
		SSNDocumentPath:     m.SSNDocumentPath,
		DocumentsVerified:   m.DocumentsVerified,
		Signature:           m.Signature,
		SignedAgreementDate: m.SignedAgreementDate,
		ExcludedBanks:       m.ExcludedBanks,
		LastLoginAt:         m.LastLoginAt,
	}
}

// ClientModelFromDomain creates a persistence model from a domain Client.
func ClientModelFromDomain(c *client.Client) *ClientModel {
	m := &ClientModel{
		Name:                c.Name,
		Email:               c.Email,
		Phone:               c.Phone,
		Street:              c.Address.Street,
		City:                c.Address.City,
		State:               c.Address.State,
		ZipCode:             c.Address.ZipCode,
		DateOfBirth:         c.DateOfBirth,
		PasswordHash:        c.PasswordHash,
		ResetToken:          c.ResetToken,
		ResetTokenExpires:   c.ResetTokenExpires,
		IDDocumentPath:      c.IDDocumentPath,
		SSNDocumentPath:     c.SSNDocumentPath,
		DocumentsVerified:   c.DocumentsVerified,
		Signature:           c.Signature,
		SignedAgreementDate: c.SignedAgreementDate,
		ExcludedBanks:       c.ExcludedBanks,
		LastLoginAt:         c.LastLoginAt,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}
