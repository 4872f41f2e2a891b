package handler

import (
	"time"

	appcatalog "github.com/tradelinemarket/backend/internal/application/catalog"
	apporder "github.com/tradelinemarket/backend/internal/application/order"
	"github.com/tradelinemarket/backend/internal/domain/client"
)

// CartItemRequest is one cart line
type CartItemRequest struct {
	CardID   string `json:"card_id" binding:"required,notblank,max=64"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// CalculateRequest prices a cart
type CalculateRequest struct {
	Items     []CartItemRequest `json:"items" binding:"required,min=1,max=100,dive"`
	PromoCode string            `json:"promo_code" binding:"max=50"`
}

// TrackRequest records a widget funnel event
type TrackRequest struct {
	Event string         `json:"event" binding:"required,oneof=view click add_to_cart checkout_started"`
	Data  map[string]any `json:"data"`
}

// AddressRequest is a postal address
type AddressRequest struct {
	Street  string `json:"street" binding:"max=200"`
	City    string `json:"city" binding:"max=100"`
	State   string `json:"state" binding:"max=50"`
	ZipCode string `json:"zip_code" binding:"max=20"`
}

// CustomerRequest identifies the buyer at checkout
type CustomerRequest struct {
	Name        string         `json:"name" binding:"required,notblank,max=200"`
	Email       string         `json:"email" binding:"required,email,max=255"`
	Phone       string         `json:"phone" binding:"max=50"`
	Address     AddressRequest `json:"address"`
	DateOfBirth string         `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Password    string         `json:"password" binding:"omitempty,min=8,max=128"`
	// Signature is a typed name or an image data URL
	Signature string `json:"signature" binding:"max=500000"`
}

// CheckoutRequest places an order through the widget
type CheckoutRequest struct {
	Customer  CustomerRequest   `json:"customer" binding:"required"`
	Items     []CartItemRequest `json:"items" binding:"required,min=1,max=100,dive"`
	PromoCode string            `json:"promo_code" binding:"max=50"`
}

func toQuoteItems(items []CartItemRequest) []appcatalog.QuoteItem {
	out := make([]appcatalog.QuoteItem, len(items))
	for i, it := range items {
		out[i] = appcatalog.QuoteItem{CardID: it.CardID, Quantity: it.Quantity}
	}
	return out
}

func (r CustomerRequest) toApp() apporder.CheckoutCustomer {
	var dob *time.Time
	if r.DateOfBirth != "" {
		if t, err := time.Parse(time.DateOnly, r.DateOfBirth); err == nil {
			dob = &t
		}
	}
	return apporder.CheckoutCustomer{
		Name:  r.Name,
		Email: r.Email,
		Phone: r.Phone,
		Address: client.Address{
			Street:  r.Address.Street,
			City:    r.Address.City,
			State:   r.Address.State,
			ZipCode: r.Address.ZipCode,
		},
		DateOfBirth: dob,
		Password:    r.Password,
		Signature:   r.Signature,
	}
}
