package handler

import (
	"net/http"

	"pomi/internal/access"
	"pomi/internal/middleware"
	"pomi/internal/service"
	"pomi/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RoleHandler struct {
	roleService service.RoleService
	log         *zap.Logger
}

func NewRoleHandler(roleService service.RoleService, log *zap.Logger) *RoleHandler {
	return &RoleHandler{roleService: roleService, log: log}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	view := auth.RequireAccess(access.GroupAdmin, access.CapView)
	manage := auth.RequireAccess(access.GroupAdmin, access.CapAdmin)

	roles := router.Group("/roles")
	{
		roles.GET("", view, h.ListRoles)
		roles.GET("/:id", view, h.GetRole)
		roles.POST("", manage, h.CreateRole)
		roles.PUT("/:id", manage, h.UpdateRole)
		roles.PUT("/:id/permissions", manage, h.UpdateRolePermissions)
	}

	router.GET("/page-groups", view, h.ListPageGroups)
}

// ListRoles handles GET /roles
// @Summary      List roles
// @Description  Returns every role with its permission matrix, highest level first
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.RoleResponse}
// @Router       /api/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// GetRole handles GET /roles/:id
// @Summary      Get a role
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response{data=service.RoleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/roles/{id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.roleService.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// CreateRole handles POST /roles
// @Summary      Create a role
// @Tags         roles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRoleRequest  true  "New role"
// @Success      201      {object}  response.Response{data=service.RoleResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, role))
}

// UpdateRole handles PUT /roles/:id
// @Summary      Update a role
// @Tags         roles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Role ID"
// @Param        payload  body      service.UpdateRoleRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Failure      403      {object}  response.Response
// @Router       /api/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	role, err := h.roleService.UpdateRole(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// UpdateRolePermissions handles PUT /roles/:id/permissions
// @Summary      Replace a role's permissions
// @Description  Open sessions keep their cached permissions until refresh or next login
// @Tags         roles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                                true  "Role ID"
// @Param        payload  body      service.UpdateRolePermissionsRequest  true  "Permission matrix"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/roles/{id}/permissions [put]
func (h *RoleHandler) UpdateRolePermissions(c *gin.Context) {
	var req service.UpdateRolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	role, err := h.roleService.UpdateRolePermissions(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// ListPageGroups handles GET /page-groups
// @Summary      List page groups
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.PageGroupResponse}
// @Router       /api/page-groups [get]
func (h *RoleHandler) ListPageGroups(c *gin.Context) {
	groups, err := h.roleService.ListPageGroups(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, groups))
}
