package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dock-scheduler/services"
	"github.com/yeremiapane/dock-scheduler/utils"
)

type DriverController struct {
	Directory *services.DriverDirectory
}

func NewDriverController(dir *services.DriverDirectory) *DriverController {
	return &DriverController{Directory: dir}
}

// ListDrivers -> roster driver dari riwayat booking
func (dc *DriverController) ListDrivers(c *gin.Context) {
	drivers, err := dc.Directory.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of drivers", drivers)
}
