package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pomi/internal/access"
	"pomi/internal/apperror"
	"pomi/internal/export"
	"pomi/internal/middleware"
	"pomi/internal/service"
	"pomi/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RecordHandler struct {
	recordService service.RecordService
	gate          *access.Gate
	log           *zap.Logger
}

func NewRecordHandler(recordService service.RecordService, gate *access.Gate, log *zap.Logger) *RecordHandler {
	return &RecordHandler{recordService: recordService, gate: gate, log: log}
}

type saveRequest struct {
	Rows []map[string]any `json:"rows" binding:"required"`
}

// RegisterRoutes expects router to be authenticated already.
func (h *RecordHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Auth) {
	router.GET("/entities", h.ListEntities)

	records := router.Group("/records/:entity")
	{
		records.GET("", auth.RequireEntityAccess(access.CapView), h.Open)
		records.GET("/schema", auth.RequireEntityAccess(access.CapView), h.Describe)
		records.GET("/options/:column", auth.RequireEntityAccess(access.CapView), h.Options)
		records.GET("/export", auth.RequireEntityAccess(access.CapView), h.Export)
		records.POST("/diff", auth.RequireEntityAccess(access.CapEdit), h.Diff)
		records.PUT("", auth.RequireEntityAccess(access.CapEdit), h.Save)
		records.POST("", auth.RequireEntityAccess(access.CapEdit), h.Create)
		records.POST("/:id/deactivate", auth.RequireEntityAccess(access.CapDelete), h.Deactivate)
		records.POST("/:id/reactivate", auth.RequireEntityAccess(access.CapDelete), h.Reactivate)
	}
}

// ListEntities handles GET /entities
// @Summary      Editable tables
// @Description  Lists the tables the caller may view
// @Tags         records
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.EntityInfo}
// @Router       /api/entities [get]
func (h *RecordHandler) ListEntities(c *gin.Context) {
	entities := h.recordService.Entities(middleware.PrincipalFrom(c))
	if entities == nil {
		entities = []service.EntityInfo{}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entities))
}

// Describe handles GET /records/:entity/schema
// @Summary      Table layout
// @Tags         records
// @Security     BearerAuth
// @Produce      json
// @Param        entity  path      string  true  "Entity name"
// @Success      200     {object}  response.Response{data=service.EntityInfo}
// @Failure      404     {object}  response.Response
// @Router       /api/records/{entity}/schema [get]
func (h *RecordHandler) Describe(c *gin.Context) {
	info, err := h.recordService.Describe(c.Param("entity"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, info))
}

// Open handles GET /records/:entity
// @Summary      Load a table
// @Description  Loads the rows for editing and keeps them as the session's original snapshot
// @Tags         records
// @Security     BearerAuth
// @Produce      json
// @Param        entity            path      string  true   "Entity name"
// @Param        include_inactive  query     bool    false  "Also return deactivated rows"
// @Success      200               {object}  response.Response{data=service.TableView}
// @Failure      403               {object}  response.Response
// @Failure      503               {object}  response.Response
// @Router       /api/records/{entity} [get]
func (h *RecordHandler) Open(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	view, err := h.recordService.Open(c.Request.Context(), p.SessionID, c.Param("entity"), queryBool(c, "include_inactive"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	info, _ := h.recordService.Describe(view.Entity)
	view.ReadOnly = h.gate.Mode(p, info.PageGroup) != access.ModeEdit
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// Diff handles POST /records/:entity/diff
// @Summary      Preview changes
// @Description  Compares the submitted rows with the loaded snapshot without writing
// @Tags         records
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        entity   path      string       true  "Entity name"
// @Param        payload  body      saveRequest  true  "Edited rows"
// @Success      200      {object}  response.Response{data=editor.ChangeSet}
// @Failure      409      {object}  response.Response
// @Router       /api/records/{entity}/diff [post]
func (h *RecordHandler) Diff(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	changes, err := h.recordService.Diff(c.Request.Context(), middleware.PrincipalFrom(c).SessionID, c.Param("entity"), req.Rows)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, changes))
}

// Save handles PUT /records/:entity
// @Summary      Save edited rows
// @Description  Writes only the changed editable columns of changed rows, in one transaction
// @Tags         records
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        entity   path      string       true  "Entity name"
// @Param        payload  body      saveRequest  true  "Edited rows"
// @Success      200      {object}  response.Response{data=service.SaveResult}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/records/{entity} [put]
func (h *RecordHandler) Save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.recordService.Save(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("entity"), req.Rows)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Create handles POST /records/:entity
// @Summary      Create a row
// @Tags         records
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        entity   path      string          true  "Entity name"
// @Param        payload  body      map[string]any  true  "Column values"
// @Success      201      {object}  response.Response{data=service.CreateResult}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/records/{entity} [post]
func (h *RecordHandler) Create(c *gin.Context) {
	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.recordService.Create(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("entity"), data)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// Deactivate handles POST /records/:entity/:id/deactivate
// @Summary      Deactivate a row
// @Tags         records
// @Security     BearerAuth
// @Produce      json
// @Param        entity  path      string  true  "Entity name"
// @Param        id      path      int     true  "Row ID"
// @Success      200     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /api/records/{entity}/{id}/deactivate [post]
func (h *RecordHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

// Reactivate handles POST /records/:entity/:id/reactivate
// @Summary      Reactivate a row
// @Tags         records
// @Security     BearerAuth
// @Produce      json
// @Param        entity  path      string  true  "Entity name"
// @Param        id      path      int     true  "Row ID"
// @Success      200     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /api/records/{entity}/{id}/reactivate [post]
func (h *RecordHandler) Reactivate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *RecordHandler) setActive(c *gin.Context, active bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, h.log, apperror.New(apperror.ErrValidationFailed, "Identifiant invalide"))
		return
	}

	p := middleware.PrincipalFrom(c)
	if active {
		err = h.recordService.Reactivate(c.Request.Context(), p, c.Param("entity"), id)
	} else {
		err = h.recordService.Deactivate(c.Request.Context(), p, c.Param("entity"), id)
	}
	if err != nil {
		fail(c, h.log, err)
		return
	}

	msg := "Enregistrement désactivé"
	if active {
		msg = "Enregistrement réactivé"
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": msg}))
}

// Options handles GET /records/:entity/options/:column
// @Summary      Dropdown values
// @Tags         records
// @Security     BearerAuth
// @Produce      json
// @Param        entity  path      string  true  "Entity name"
// @Param        column  path      string  true  "Column name"
// @Success      200     {object}  response.Response{data=service.Options}
// @Failure      404     {object}  response.Response
// @Router       /api/records/{entity}/options/{column} [get]
func (h *RecordHandler) Options(c *gin.Context) {
	opts, err := h.recordService.Options(c.Request.Context(), c.Param("entity"), c.Param("column"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, opts))
}

// Export handles GET /records/:entity/export
// @Summary      Export a table
// @Description  Downloads the displayed columns as CSV or XLSX. Other query parameters filter rows by column (case-insensitive contains).
// @Tags         records
// @Security     BearerAuth
// @Produce      octet-stream
// @Param        entity            path   string  true   "Entity name"
// @Param        format            query  string  false  "csv (default) or xlsx"
// @Param        include_inactive  query  bool    false  "Also export deactivated rows"
// @Success      200
// @Failure      400  {object}  response.Response
// @Router       /api/records/{entity}/export [get]
func (h *RecordHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		fail(c, h.log, err)
		return
	}

	filters := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if key == "format" || key == "include_inactive" || len(values) == 0 {
			continue
		}
		if v := strings.TrimSpace(values[0]); v != "" {
			filters[key] = v
		}
	}

	t, rows, err := h.recordService.ExportRows(c.Request.Context(), c.Param("entity"), queryBool(c, "include_inactive"), filters)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, t, rows); err != nil {
		fail(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(t, format, time.Now())+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
