package handler

import (
	"time"

	appidentity "github.com/tradelinemarket/backend/internal/application/identity"
)

// LoginRequest represents a login request for any portal
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=1,max=128"`
}

// LoginResponse carries the token and the account it was issued to. Exactly
// one of Admin, Broker or Client is set.
type LoginResponse struct {
	Token     string                     `json:"token"`
	ExpiresAt time.Time                  `json:"expires_at"`
	TokenType string                     `json:"token_type"`
	Admin     *appidentity.PrincipalInfo `json:"admin,omitempty"`
	Broker    *appidentity.PrincipalInfo `json:"broker,omitempty"`
	Client    *appidentity.PrincipalInfo `json:"client,omitempty"`
}

func toLoginResponse(r *appidentity.LoginResult) LoginResponse {
	resp := LoginResponse{Token: r.Token, ExpiresAt: r.ExpiresAt, TokenType: r.TokenType}
	p := r.Principal
	switch p.Role {
	case "admin":
		resp.Admin = &p
	case "broker":
		resp.Broker = &p
	default:
		resp.Client = &p
	}
	return resp
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}
