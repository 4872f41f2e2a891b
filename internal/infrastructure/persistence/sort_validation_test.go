package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "DESC"},
		{"asc", "ASC"},
		{"  ASC  ", "ASC"},
		{"desc", "DESC"},
		{"ASC; DROP TABLE orders;--", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"whitelisted", "order_number", "order_number"},
		{"trimmed", "  status ", "status"},
		{"empty uses default", "", "created_at"},
		{"unknown uses default", "customer_email", "created_at"},
		{"injection uses default", "status; DROP TABLE orders", "created_at"},
		{"case sensitive", "STATUS", "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, OrderSortFields, "created_at"))
		})
	}
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "name ASC", orderClause("name", "asc", BrokerSortFields))
	assert.Equal(t, "created_at DESC", orderClause("api_secret_hash", "", BrokerSortFields))
}
