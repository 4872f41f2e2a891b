package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelinemarket/backend/internal/domain/shared"
)

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Order not found", "req-123-456")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Order not found", resp.Error.Message)
	assert.Equal(t, "req-123-456", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "email", Message: "Invalid email format"},
		{Field: "items[0].quantity", Message: "Must be at least 1"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "items[0].quantity", resp.Error.Details[1].Field)
}

func TestErrorResponseJSON(t *testing.T) {
	t.Run("envelope shape", func(t *testing.T) {
		data, err := json.Marshal(NewErrorResponse(ErrCodeForbidden, "Broker account is not active"))
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Equal(t, false, raw["success"])
		assert.NotContains(t, raw, "data")
		assert.NotContains(t, raw, "meta")

		errObj := raw["error"].(map[string]any)
		assert.Equal(t, ErrCodeForbidden, errObj["code"])
		assert.NotContains(t, errObj, "request_id")
		assert.NotContains(t, errObj, "details")
	})
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		total         int64
		pageSize      int
		expectedPages int
	}{
		{100, 10, 10},
		{101, 10, 11},
		{0, 10, 0},
		{9, 10, 1},
		{100, 0, 0},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, 1, tt.pageSize)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages, "total=%d pageSize=%d", tt.total, tt.pageSize)
	}
}

func TestNewListResponse(t *testing.T) {
	filter := shared.DefaultFilter()
	filter.Page = 2

	resp := NewListResponse[string](nil, 25, filter)

	assert.True(t, resp.Success)
	assert.Equal(t, []string{}, resp.Data)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 20, resp.Meta.PageSize)
	assert.Equal(t, 2, resp.Meta.TotalPages)
}

func TestListRequest_ToFilter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f := ListRequest{}.ToFilter()
		assert.Equal(t, 1, f.Page)
		assert.Equal(t, 20, f.PageSize)
		assert.Equal(t, "created_at", f.OrderBy)
		assert.Equal(t, "desc", f.OrderDir)
		assert.NotNil(t, f.Filters)
	})

	t.Run("overrides", func(t *testing.T) {
		f := ListRequest{Page: 3, PageSize: 50, OrderBy: "total_charged", OrderDir: "asc", Search: "TL-"}.ToFilter()
		assert.Equal(t, 3, f.Page)
		assert.Equal(t, 50, f.PageSize)
		assert.Equal(t, "total_charged", f.OrderBy)
		assert.Equal(t, "asc", f.OrderDir)
		assert.Equal(t, "TL-", f.Search)
	})
}
