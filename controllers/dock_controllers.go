package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dock-scheduler/models"
	"github.com/yeremiapane/dock-scheduler/services"
	"github.com/yeremiapane/dock-scheduler/utils"
)

type DockController struct {
	Docks   *services.DockService
	Metrics *services.MetricsService
}

func NewDockController(docks *services.DockService, metrics *services.MetricsService) *DockController {
	return &DockController{Docks: docks, Metrics: metrics}
}

type dockRequest struct {
	Name         string   `json:"name" binding:"required"`
	Capabilities []string `json:"capabilities"`
	IsActive     *bool    `json:"is_active"`
}

func (r dockRequest) input() services.DockInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return services.DockInput{Name: r.Name, Capabilities: r.Capabilities, IsActive: active}
}

// CreateDock -> menambahkan dock baru
func (dc *DockController) CreateDock(c *gin.Context) {
	var req dockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	dock, err := dc.Docks.Create(c.Request.Context(), req.input())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	dc.respondView(c, http.StatusCreated, "Dock created successfully", *dock)
}

// ListDocks -> semua dock beserta metrik hari ini
func (dc *DockController) ListDocks(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	docks, err := dc.Docks.List(c.Request.Context(), page)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	views, err := dc.Metrics.Views(c.Request.Context(), docks)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of docks", views)
}

func (dc *DockController) GetDock(c *gin.Context) {
	id, ok := parseIDParam(c, "dock_id")
	if !ok {
		return
	}
	dock, err := dc.Docks.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	dc.respondView(c, http.StatusOK, "Dock detail", *dock)
}

// UpdateDock replaces every field of the dock.
func (dc *DockController) UpdateDock(c *gin.Context) {
	id, ok := parseIDParam(c, "dock_id")
	if !ok {
		return
	}
	var req dockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	dock, err := dc.Docks.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	dc.respondView(c, http.StatusOK, "Dock updated successfully", *dock)
}

func (dc *DockController) DeleteDock(c *gin.Context) {
	id, ok := parseIDParam(c, "dock_id")
	if !ok {
		return
	}
	dock, err := dc.Docks.Delete(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	// dock sudah terhapus, metrik dikembalikan nol
	utils.RespondJSON(c, http.StatusOK, "Dock deleted successfully", models.DockView{Dock: *dock})
}

func (dc *DockController) respondView(c *gin.Context, code int, message string, dock models.Dock) {
	view, err := dc.Metrics.View(c.Request.Context(), dock)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, code, message, view)
}
