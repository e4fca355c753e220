package handler

import (
	"net/http"

	"pomi/internal/middleware"
	"pomi/internal/service"
	"pomi/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	userService service.UserService
	tokens      *service.TokenManager
	release     bool
	log         *zap.Logger
}

func NewAuthHandler(userService service.UserService, tokens *service.TokenManager, release bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens, release: release, log: log}
}

// RegisterRoutes binds the session endpoints. authed must run Authenticate.
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, authed gin.HandlerFunc) {
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)
	router.GET("/me", authed, h.Me)
	router.POST("/me/refresh", authed, h.Refresh)
}

// Login handles POST /login
// @Summary      Login
// @Description  Checks the credentials, opens a session and returns its token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginUserRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	middleware.SetTokenCookie(c, res.Token, h.tokens.TTL(), h.release)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Logout handles POST /logout
// @Summary      Logout
// @Description  Closes the session and drops its cached principal and edit snapshots
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.TokenFrom(c); token != "" {
		if claims, err := h.tokens.Parse(token); err == nil {
			if err := h.userService.Logout(c.Request.Context(), claims.SessionID); err != nil {
				h.log.Warn("failed to close session", zap.Error(err))
			}
		}
	}
	middleware.ClearTokenCookie(c, h.release)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Déconnecté"}))
}

// Me handles GET /me
// @Summary      Current principal
// @Description  Returns the identity, role and permissions cached for the session
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=access.Principal}
// @Failure      401  {object}  response.Response
// @Router       /api/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, middleware.PrincipalFrom(c)))
}

// Refresh handles POST /me/refresh
// @Summary      Reload permissions
// @Description  Re-reads the role and permission matrix of the current session
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=access.Principal}
// @Failure      401  {object}  response.Response
// @Router       /api/me/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	p, err := h.userService.Refresh(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p))
}
