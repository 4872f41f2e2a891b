package models

import (
	"time"

	"github.com/tradelinemarket/backend/internal/domain/identity"
)

// AdminModel is the persistence model for back-office operators.
type AdminModel struct {
	BaseModel
	Email        string             `gorm:"type:varchar(200);not null;uniqueIndex"`
	Name         string             `gorm:"type:varchar(200);not null"`
	PasswordHash string             `gorm:"type:varchar(255);not null"`
	Role         identity.AdminRole `gorm:"type:varchar(20);not null;default:'ADMIN'"`
	IsActive     bool               `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (AdminModel) TableName() string {
	return "admins"
}

// ToDomain converts the persistence model to a domain Admin.
func (m *AdminModel) ToDomain() *identity.Admin {
	return &identity.Admin{
		BaseEntity:   m.BaseModel.ToDomain(),
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
		IsActive:     m.IsActive,
		LastLoginAt:  m.LastLoginAt,
	}
}

// AdminModelFromDomain creates a persistence model from a domain Admin.
func AdminModelFromDomain(a *identity.Admin) *AdminModel {
	m := &AdminModel{
		Email:        a.Email,
		Name:         a.Name,
		PasswordHash: a.PasswordHash,
		Role:         a.Role,
		IsActive:     a.IsActive,
		LastLoginAt:  a.LastLoginAt,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}
