package handler

import (
	"net/http"

	"pomi/internal/access"
	"pomi/internal/middleware"
	"pomi/internal/service"
	"pomi/pkg/pagination"
	"pomi/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService service.UserService
	log         *zap.Logger
}

func NewUserHandler(userService service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

// RegisterRoutes expects router to be authenticated already.
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	users := router.Group("/users")
	{
		users.GET("", auth.RequireAccess(access.GroupAdmin, access.CapView), h.ListUsers)
		users.GET("/:id", auth.RequireAccess(access.GroupAdmin, access.CapView), h.GetUserByID)
		users.POST("", auth.RequireAccess(access.GroupAdmin, access.CapAdmin), h.CreateUser)
		users.PUT("/:id", auth.RequireAccess(access.GroupAdmin, access.CapAdmin), h.UpdateUser)
		users.PUT("/:id/password", auth.RequireAccess(access.GroupAdmin, access.CapAdmin), h.ResetPassword)
		users.POST("/:id/deactivate", auth.RequireAccess(access.GroupAdmin, access.CapAdmin), h.Deactivate)
		users.POST("/:id/reactivate", auth.RequireAccess(access.GroupAdmin, access.CapAdmin), h.Reactivate)
	}
}

// ListUsers handles GET /users
// @Summary      List users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Page[service.UserResponse]}
// @Failure      403    {object}  response.Response
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(users, total, p)))
}

// GetUserByID handles GET /users/:id
// @Summary      Get a user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// CreateUser handles POST /users
// @Summary      Create a user
// @Description  Creates an account with a role strictly below the caller's level
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateUserRequest  true  "New user"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// UpdateUser handles PUT /users/:id
// @Summary      Update a user
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.UpdateUserRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ResetPassword handles PUT /users/:id/password
// @Summary      Reset a password
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "User ID"
// @Param        payload  body      service.ResetPasswordRequest  true  "New password"
// @Success      200      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/users/{id}/password [put]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req service.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.userService.ResetPassword(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), req); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Mot de passe réinitialisé"}))
}

// Deactivate handles POST /users/:id/deactivate
// @Summary      Deactivate a user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

// Reactivate handles POST /users/:id/reactivate
// @Summary      Reactivate a user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/users/{id}/reactivate [post]
func (h *UserHandler) Reactivate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	if err := h.userService.SetActive(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), active); err != nil {
		fail(c, h.log, err)
		return
	}
	msg := "Utilisateur désactivé"
	if active {
		msg = "Utilisateur réactivé"
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": msg}))
}
