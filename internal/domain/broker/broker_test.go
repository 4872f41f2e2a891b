package broker

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
)

func testProfile() Profile {
	return Profile{
		Name:        "Acme Credit",
		Email:       "Partner@Acme.io",
		CompanyName: "Acme LLC",
		Website:     "https://acme.io/",
	}
}

func createTestBroker(t *testing.T) (*Broker, string) {
	b, secret, err := NewBroker(testProfile(), pricing.DefaultTerms())
	require.NoError(t, err)
	return b, secret
}

// ============================================
// Status Tests
// ============================================

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusActive, true},
		{StatusSuspended, StatusActive, true},
		{StatusInactive, StatusActive, true},
		{StatusActive, StatusActive, false},
		{StatusActive, StatusSuspended, true},
		{StatusPending, StatusSuspended, false},
		{StatusPending, StatusInactive, true},
		{StatusActive, StatusInactive, true},
		{StatusInactive, StatusInactive, false},
		{StatusActive, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// ============================================
// NewBroker Tests
// ============================================

func TestNewBroker(t *testing.T) {
	t.Run("creates pending broker with credentials", func(t *testing.T) {
		b, secret := createTestBroker(t)

		assert.Equal(t, StatusPending, b.Status)
		assert.Equal(t, "partner@acme.io", b.Email)
		assert.Equal(t, "https://acme.io", b.Website)
		assert.True(t, strings.HasPrefix(b.APIKey, APIKeyPrefix))
		assert.Len(t, b.APIKey, len(APIKeyPrefix)+64)
		assert.True(t, LooksLikeAPIKey(b.APIKey))
		assert.Len(t, secret, 32)
		assert.NotEqual(t, secret, b.APISecretHash)
		assert.Len(t, b.GetDomainEvents(), 1)
	})

	t.Run("secret verifies against stored hash", func(t *testing.T) {
		b, secret := createTestBroker(t)
		assert.True(t, b.VerifySecret(secret))
		assert.False(t, b.VerifySecret(secret+"x"))
		assert.False(t, b.VerifySecret(""))
	})

	t.Run("clamps share percent on create", func(t *testing.T) {
		terms := pricing.DefaultTerms()
		terms.RevenueSharePercent = decimal.NewFromInt(40)
		b, _, err := NewBroker(testProfile(), terms)
		require.NoError(t, err)
		assert.True(t, b.RevenueSharePercent.Equal(decimal.NewFromInt(pricing.MaxBrokerSharePercent)))
	})

	t.Run("rejects invalid markup", func(t *testing.T) {
		terms := pricing.BrokerTerms{
			RevenueSharePercent: decimal.NewFromInt(10),
			MarkupType:          pricing.MarkupTypePercentage,
			MarkupValue:         decimal.NewFromInt(101),
		}
		_, _, err := NewBroker(testProfile(), terms)
		assert.Error(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		p := testProfile()
		p.Name = "  "
		_, _, err := NewBroker(p, pricing.DefaultTerms())
		assert.Error(t, err)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		p := testProfile()
		p.Email = "acme"
		_, _, err := NewBroker(p, pricing.DefaultTerms())
		assert.Error(t, err)
	})

	t.Run("each broker gets unique credentials", func(t *testing.T) {
		a, sa := createTestBroker(t)
		b, sb := createTestBroker(t)
		assert.NotEqual(t, a.APIKey, b.APIKey)
		assert.NotEqual(t, sa, sb)
	})
}

// ============================================
// Lifecycle Tests
// ============================================

func TestBroker_Lifecycle(t *testing.T) {
	b, _ := createTestBroker(t)
	adminID := uuid.New()

	require.NoError(t, b.Approve(adminID))
	assert.True(t, b.IsActive())
	assert.Equal(t, adminID, *b.ApprovedBy)
	assert.NotNil(t, b.ApprovedAt)

	assert.Error(t, b.Approve(adminID))

	require.NoError(t, b.Suspend())
	assert.Equal(t, StatusSuspended, b.Status)
	assert.False(t, b.IsActive())
	assert.Error(t, b.Suspend())

	require.NoError(t, b.Deactivate())
	assert.Equal(t, StatusInactive, b.Status)
	assert.Error(t, b.Deactivate())

	require.NoError(t, b.Approve(adminID))
	assert.True(t, b.IsActive())
}

func TestBroker_ResetSecret(t *testing.T) {
	b, oldSecret := createTestBroker(t)
	b.ClearDomainEvents()

	newSecret, err := b.ResetSecret()
	require.NoError(t, err)

	assert.NotEqual(t, oldSecret, newSecret)
	assert.False(t, b.VerifySecret(oldSecret))
	assert.True(t, b.VerifySecret(newSecret))
	require.Len(t, b.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeBrokerSecretReset, b.GetDomainEvents()[0].EventType())
}

func TestBroker_Authenticate(t *testing.T) {
	b, secret := createTestBroker(t)

	assert.True(t, b.Authenticate(secret))
	assert.False(t, b.Authenticate("password123"))

	require.NoError(t, b.SetPassword("password123"))
	assert.True(t, b.Authenticate("password123"))
	assert.True(t, b.Authenticate(secret))
}

func TestBroker_UpdateTerms(t *testing.T) {
	b, _ := createTestBroker(t)
	b.ClearDomainEvents()

	err := b.UpdateTerms(pricing.BrokerTerms{
		RevenueSharePercent: decimal.NewFromInt(5),
		MarkupType:          pricing.MarkupTypeFixed,
		MarkupValue:         decimal.NewFromInt(2500),
	})
	require.NoError(t, err)

	terms := b.Terms()
	assert.True(t, terms.RevenueSharePercent.Equal(decimal.NewFromInt(pricing.MinBrokerSharePercent)))
	assert.Equal(t, pricing.MarkupTypeFixed, terms.MarkupType)
	assert.Equal(t, EventTypeBrokerTermsChanged, b.GetDomainEvents()[0].EventType())
}

func TestBroker_Principal(t *testing.T) {
	b, _ := createTestBroker(t)
	p := b.Principal()
	assert.Equal(t, b.ID, p.ID)
	assert.Equal(t, "broker", p.Role.String())
}
