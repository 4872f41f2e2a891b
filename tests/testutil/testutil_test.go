package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelinemarket/backend/internal/domain/broker"
)

func TestFixtures(t *testing.T) {
	b, secret := NewActiveBroker(t)
	assert.Equal(t, broker.StatusActive, b.Status)
	assert.True(t, b.VerifySecret(secret))

	cl := NewTestClient(t)
	assert.Equal(t, "john@client.test", cl.Email)

	brokerID := b.ID
	o := NewPendingOrder(t, &brokerID, &cl.ID)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, o.ItemsTotal(), o.TotalCharged)

	house := NewPendingOrder(t, nil, nil)
	assert.False(t, house.IsBrokered())

	adv := NewAdvisory(t)
	adv.Set(context.Background(), "k", "v", time.Minute)
	var got string
	assert.True(t, adv.Get(context.Background(), "k", &got))
	assert.Equal(t, "v", got)
}

func TestPerformRequest(t *testing.T) {
	engine := gin.New()
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, gin.H{"success": true, "data": body})
	})
	engine.GET("/fail", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": gin.H{"code": "NOT_FOUND", "message": "missing"}})
	})

	w := PerformRequest(t, engine, http.MethodPost, "/echo", map[string]string{"id": uuid.Nil.String()}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := DecodeData[map[string]string](t, w)
	assert.Equal(t, uuid.Nil.String(), data["id"])

	w = PerformRequest(t, engine, http.MethodGet, "/fail", nil, nil)
	AssertErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")
}
