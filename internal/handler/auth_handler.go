package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService  service.AuthService
	secureCookie bool
}

// NewAuthHandler sets up the login/session endpoints; secureCookie marks the token cookie Secure
func NewAuthHandler(authService service.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookie: secureCookie}
}

// RegisterRoutes binds the endpoints under /auth
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, gate *middleware.Gate) {
	gate.Mount(router.Group("/auth"),
		middleware.Route{Method: http.MethodPost, Path: "/login", Access: middleware.Public, Handle: h.Login},
		middleware.Route{Method: http.MethodPost, Path: "/register", Access: middleware.Public, Handle: h.Register},
		middleware.Route{Method: http.MethodGet, Path: "/me", Access: middleware.Authenticated, Handle: h.Me},
		middleware.Route{Method: http.MethodPost, Path: "/logout", Access: middleware.Authenticated, Handle: h.Logout},
	)
}

// Login handles POST /auth/login
// @Summary      Login
// @Description  Authenticates by username or email. Unknown login, wrong password and disabled account all return invalid_credentials.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	tok, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetTokenCookie(c, tok.AccessToken, int(tok.ExpiresIn), h.secureCookie)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tok))
}

// Register handles POST /auth/register
// @Summary      Register
// @Description  Creates an ordinary account with no roles
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Account"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Me handles GET /auth/me
// @Summary      Current user
// @Description  Returns the current user with effective permission codes and active role codes
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	me, err := h.authService.Me(c.Request.Context(), p.User)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, me))
}

// Logout handles POST /auth/logout
// @Summary      Logout
// @Description  Revokes the presented token until it expires and clears the cookie
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	if err := h.authService.Logout(c.Request.Context(), p.Session); err != nil {
		respondError(c, err)
		return
	}
	middleware.ClearTokenCookie(c, h.secureCookie)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Logged out"}))
}
