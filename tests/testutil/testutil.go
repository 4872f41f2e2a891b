package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/catalog"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
	"github.com/tradelinemarket/backend/internal/infrastructure/cache"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a postgres-dialect GORM handle backed by sqlmock. Pings
// are monitored, so tests that ping must expect them.
// The caller is responsible for calling Close() when done.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err, "Failed to create sqlmock")

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{
		DB:    gormDB,
		Mock:  mock,
		SqlDB: mockDB,
	}
}

// Close closes the mock database connection.
func (m *MockDB) Close() error {
	return m.SqlDB.Close()
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// =============================================================================
// Domain fixtures
// =============================================================================

// NewAdvisory returns an advisory cache over a fresh in-memory store.
func NewAdvisory(t *testing.T) *cache.Advisory {
	t.Helper()
	store := cache.NewInMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return cache.NewAdvisory(store, zap.NewNop())
}

// BrokerTerms returns 15% share with a 10% markup.
func BrokerTerms() pricing.BrokerTerms {
	return pricing.BrokerTerms{
		RevenueSharePercent: decimal.NewFromInt(15),
		MarkupType:          pricing.MarkupTypePercentage,
		MarkupValue:         decimal.NewFromInt(10),
	}
}

// NewPendingBroker creates a PENDING broker and returns its plaintext secret.
func NewPendingBroker(t *testing.T) (*broker.Broker, string) {
	t.Helper()
	b, secret, err := broker.NewBroker(broker.Profile{
		Name:        "Jane Broker",
		Email:       "jane@brokerage.test",
		CompanyName: "Credit Partners LLC",
		Website:     "https://brokerage.test",
	}, BrokerTerms())
	require.NoError(t, err)
	b.ClearDomainEvents()
	return b, secret
}

// NewActiveBroker creates an approved broker and returns its plaintext secret.
func NewActiveBroker(t *testing.T) (*broker.Broker, string) {
	t.Helper()
	b, secret := NewPendingBroker(t)
	require.NoError(t, b.Approve(uuid.New()))
	b.ClearDomainEvents()
	return b, secret
}

// NewTestClient creates a client with contact details.
func NewTestClient(t *testing.T) *client.Client {
	t.Helper()
	cl, err := client.NewClient(client.Contact{
		Name:  "John Client",
		Email: "john@client.test",
		Phone: "555-0100",
		Address: client.Address{
			Street:  "1 Main St",
			City:    "Austin",
			State:   "TX",
			ZipCode: "73301",
		},
	})
	require.NoError(t, err)
	return cl
}

// Tradelines returns a small normalized catalog.
func Tradelines() []catalog.Tradeline {
	return []catalog.Tradeline{
		{CardID: "101", BankName: "Chase", CreditLimit: 10000, Stock: 3, Price: valueobject.Cents(20000)},
		{CardID: "102", BankName: "Citi", CreditLimit: 25000, Stock: 1, Price: valueobject.Cents(45000)},
		{CardID: "103", BankName: "Amex", CreditLimit: 5000, Stock: 0, Price: valueobject.Cents(15000)},
	}
}

// NewPendingOrder builds an unpaid order for two tradelines. brokerID may be nil.
func NewPendingOrder(t *testing.T, brokerID, clientID *uuid.UUID) *order.Order {
	t.Helper()

	var terms *pricing.BrokerTerms
	if brokerID != nil {
		bt := BrokerTerms()
		terms = &bt
	}
	quote, err := pricing.BuildQuote([]pricing.LineInput{
		{CardID: "101", BankName: "Chase", CreditLimit: 10000, BasePrice: valueobject.Cents(20000), Quantity: 1},
		{CardID: "102", BankName: "Citi", CreditLimit: 25000, BasePrice: valueobject.Cents(45000), Quantity: 2},
	}, terms, "")
	require.NoError(t, err)

	number, err := order.GenerateOrderNumber(time.Now())
	require.NoError(t, err)
	o, err := order.NewOrder(number, brokerID, clientID, order.Customer{
		Name:  "John Client",
		Email: "john@client.test",
		Phone: "555-0100",
	}, quote)
	require.NoError(t, err)
	return o
}
