package handler

import (
	"net/http"

	"pomi/internal/access"
	"pomi/internal/middleware"
	"pomi/internal/repository"
	"pomi/internal/service"
	"pomi/pkg/pagination"
	"pomi/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuditHandler struct {
	auditService service.AuditService
	log          *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, log *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	router.GET("/audit-logs", auth.RequireAccess(access.GroupAdmin, access.CapView), h.GetAuditLogs)
}

// GetAuditLogs handles GET /audit-logs
// @Summary      Activity log
// @Description  Pages through the activity log, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entity  query     string  false  "Entity name"
// @Param        action  query     string  false  "Action code"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=pagination.Page[service.AuditLogResponse]}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.AuditFilter{Entity: c.Query("entity"), Action: c.Query("action")}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(logs, total, p)))
}
