package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appidentity "github.com/tradelinemarket/backend/internal/application/identity"
	"github.com/tradelinemarket/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles the login endpoints of the three portals and logout
type AuthHandler struct {
	BaseHandler
	authService *appidentity.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *appidentity.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// AdminLogin godoc
// @Summary      Admin login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=LoginResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/auth/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, h.authService.AdminLogin)
}

// BrokerLogin accepts the broker portal password or the API secret
// @Summary      Broker login
// @Tags         auth
// @Router       /broker/auth/login [post]
func (h *AuthHandler) BrokerLogin(c *gin.Context) {
	h.login(c, h.authService.BrokerLogin)
}

// PortalLogin godoc
// @Summary      Client portal login
// @Tags         auth
// @Router       /portal/login [post]
func (h *AuthHandler) PortalLogin(c *gin.Context) {
	h.login(c, h.authService.ClientLogin)
}

type loginFunc func(ctx context.Context, input appidentity.LoginInput) (*appidentity.LoginResult, error)

func (h *AuthHandler) login(c *gin.Context, fn loginFunc) {
	var req LoginRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := fn(c.Request.Context(), appidentity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toLoginResponse(result))
}

// Logout godoc
// @Summary      Logout
// @Description  Revokes the presented token for the rest of its lifetime
// @Tags         auth
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	p, ok := h.principal(c)
	if !ok || claims == nil {
		return
	}

	err := h.authService.Logout(c.Request.Context(), appidentity.LogoutInput{
		TokenJTI:       claims.ID,
		TokenExpiresIn: claims.GetRemainingTTL(),
		PrincipalID:    p.ID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MessageResponse{Message: "Logged out successfully"})
}
