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

type StockHandler struct {
	stockService service.StockService
	log          *zap.Logger
}

func NewStockHandler(stockService service.StockService, log *zap.Logger) *StockHandler {
	return &StockHandler{stockService: stockService, log: log}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	router.GET("/stock/summary", auth.RequireAccess(access.GroupStock, access.CapView), h.GetSummary)
}

// GetSummary handles GET /stock/summary
// @Summary      Stock summary
// @Description  Totals active raw lots per variety, optionally for one storage site
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        site  query     string  false  "Storage site code"
// @Success      200   {object}  response.Response{data=service.StockSummary}
// @Failure      403   {object}  response.Response
// @Router       /api/stock/summary [get]
func (h *StockHandler) GetSummary(c *gin.Context) {
	summary, err := h.stockService.Summary(c.Request.Context(), c.Query("site"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
