package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes a sort direction to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when whitelisted, otherwise defaultField.
// Sort fields are interpolated into SQL, so only whitelisted names may pass.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// orderClause builds a safe ORDER BY clause from a filter
func orderClause(orderBy, orderDir string, allowed map[string]bool) string {
	return ValidateSortField(orderBy, allowed, "created_at") + " " + ValidateSortOrder(orderDir)
}

// BrokerSortFields contains allowed sort fields for brokers
var BrokerSortFields = map[string]bool{
	"created_at":            true,
	"updated_at":            true,
	"name":                  true,
	"email":                 true,
	"company_name":          true,
	"status":                true,
	"revenue_share_percent": true,
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"order_number":   true,
	"status":         true,
	"payment_status": true,
	"total_charged":  true,
	"paid_at":        true,
}

// PayoutSortFields contains allowed sort fields for payouts
var PayoutSortFields = map[string]bool{
	"created_at":   true,
	"period_start": true,
	"period_end":   true,
	"total_amount": true,
	"status":       true,
}
