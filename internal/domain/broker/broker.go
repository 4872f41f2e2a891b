// Package broker models affiliate partners that resell tradelines under a
// revenue-share and markup agreement.
package broker

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tradelinemarket/backend/internal/domain/identity"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
	"github.com/tradelinemarket/backend/internal/domain/shared"
)

// Status represents the lifecycle status of a broker
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusInactive  Status = "INACTIVE"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended, StatusInactive:
		return true
	}
	return false
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch target {
	case StatusActive:
		return s == StatusPending || s == StatusSuspended || s == StatusInactive
	case StatusSuspended:
		return s == StatusActive
	case StatusInactive:
		return s != StatusInactive
	}
	return false
}

// Broker is the affiliate aggregate root
type Broker struct {
	shared.BaseAggregateRoot
	Name                string
	Email               string
	CompanyName         string
	Phone               string
	Website             string
	APIKey              string
	APISecretHash       string
	PasswordHash        string
	RevenueSharePercent decimal.Decimal
	MarkupType          pricing.MarkupType
	MarkupValue         decimal.Decimal
	Status              Status
	ApprovedBy          *uuid.UUID
	ApprovedAt          *time.Time
	LastLoginAt         *time.Time
	Notes               string
}

// Profile holds the editable contact fields of a broker
type Profile struct {
	Name        string
	Email       string
	CompanyName string
	Phone       string
	Website     string
	Notes       string
}

// NewBroker creates a PENDING broker with fresh credentials.
// The plaintext secret is returned once and only its hash is kept.
func NewBroker(p Profile, terms pricing.BrokerTerms) (*Broker, string, error) {
	b := &Broker{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Status:            StatusPending,
	}
	if err := b.applyProfile(p); err != nil {
		return nil, "", err
	}
	if err := b.applyTerms(terms); err != nil {
		return nil, "", err
	}

	creds, err := GenerateCredentials()
	if err != nil {
		return nil, "", err
	}
	hash, err := identity.HashPassword(creds.Secret)
	if err != nil {
		return nil, "", fmt.Errorf("hash api secret: %w", err)
	}
	b.APIKey = creds.APIKey
	b.APISecretHash = hash

	b.AddDomainEvent(NewCreatedEvent(b))
	return b, creds.Secret, nil
}

func (b *Broker) applyProfile(p Profile) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Broker name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Broker name cannot exceed 200 characters")
	}
	email := identity.NormalizeEmail(p.Email)
	if err := identity.ValidateEmail(email); err != nil {
		return err
	}

	b.Name = name
	b.Email = email
	b.CompanyName = strings.TrimSpace(p.CompanyName)
	b.Phone = strings.TrimSpace(p.Phone)
	b.Website = strings.TrimRight(strings.TrimSpace(p.Website), "/")
	b.Notes = p.Notes
	return nil
}

func (b *Broker) applyTerms(terms pricing.BrokerTerms) error {
	if err := terms.Validate(); err != nil {
		return err
	}
	b.RevenueSharePercent = pricing.EffectiveSharePercent(terms.RevenueSharePercent)
	b.MarkupType = terms.MarkupType
	b.MarkupValue = terms.MarkupValue
	return nil
}

// UpdateProfile replaces the contact fields
func (b *Broker) UpdateProfile(p Profile) error {
	if err := b.applyProfile(p); err != nil {
		return err
	}
	b.Touch()
	b.IncrementVersion()
	return nil
}

// UpdateTerms changes the commercial terms. The share percent is stored clamped.
func (b *Broker) UpdateTerms(terms pricing.BrokerTerms) error {
	if err := b.applyTerms(terms); err != nil {
		return err
	}
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewTermsChangedEvent(b))
	return nil
}

// Terms returns the pricing configuration of the broker
func (b *Broker) Terms() pricing.BrokerTerms {
	return pricing.BrokerTerms{
		RevenueSharePercent: b.RevenueSharePercent,
		MarkupType:          b.MarkupType,
		MarkupValue:         b.MarkupValue,
	}
}

// Approve activates the broker
func (b *Broker) Approve(adminID uuid.UUID) error {
	if !b.Status.CanTransitionTo(StatusActive) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve broker in %s status", b.Status))
	}
	now := time.Now()
	b.Status = StatusActive
	b.ApprovedBy = &adminID
	b.ApprovedAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()
	b.AddDomainEvent(NewStatusChangedEvent(b, StatusActive))
	return nil
}

// Suspend blocks an active broker from the widget and portal
func (b *Broker) Suspend() error {
	if !b.Status.CanTransitionTo(StatusSuspended) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot suspend broker in %s status", b.Status))
	}
	b.Status = StatusSuspended
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewStatusChangedEvent(b, StatusSuspended))
	return nil
}

// Deactivate retires the broker
func (b *Broker) Deactivate() error {
	if !b.Status.CanTransitionTo(StatusInactive) {
		return shared.NewDomainError("INVALID_STATE", "Broker is already inactive")
	}
	b.Status = StatusInactive
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewStatusChangedEvent(b, StatusInactive))
	return nil
}

// IsActive reports whether the broker may use the widget and portal
func (b *Broker) IsActive() bool {
	return b.Status == StatusActive
}

// ResetSecret issues a new API secret. The previous secret stops validating.
func (b *Broker) ResetSecret() (string, error) {
	secret, err := generateSecret()
	if err != nil {
		return "", err
	}
	hash, err := identity.HashPassword(secret)
	if err != nil {
		return "", fmt.Errorf("hash api secret: %w", err)
	}
	b.APISecretHash = hash
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewSecretResetEvent(b))
	return secret, nil
}

// VerifySecret checks a plaintext API secret against the stored hash
func (b *Broker) VerifySecret(plain string) bool {
	return identity.CheckPassword(b.APISecretHash, plain)
}

// SetPassword sets an optional portal password
func (b *Broker) SetPassword(password string) error {
	if err := identity.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := identity.HashPassword(password)
	if err != nil {
		return err
	}
	b.PasswordHash = hash
	b.Touch()
	return nil
}

// Authenticate accepts either the portal password or the API secret
func (b *Broker) Authenticate(credential string) bool {
	return identity.CheckPassword(b.PasswordHash, credential) || b.VerifySecret(credential)
}

// RecordLogin stamps the last login time
func (b *Broker) RecordLogin() {
	now := time.Now()
	b.LastLoginAt = &now
	b.UpdatedAt = now
}

// Principal returns the authenticated view of the broker
func (b *Broker) Principal() identity.Principal {
	return identity.Principal{
		ID:    b.ID,
		Email: b.Email,
		Name:  b.Name,
		Role:  identity.PrincipalRoleBroker,
	}
}
