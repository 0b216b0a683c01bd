package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dock-scheduler/utils"
	"gorm.io/gorm"
)

// Pinger is implemented by collaborators that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	DB        *gorm.DB
	POGateway Pinger
}

func NewHealthController(db *gorm.DB, gateway Pinger) *HealthController {
	return &HealthController{DB: db, POGateway: gateway}
}

func (hc *HealthController) Welcome(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Welcome to SimpleDock API", nil)
}

// Ping reports database health and, when configured, the PO gateway.
func (hc *HealthController) Ping(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := gin.H{"database": "ok", "po_gateway": "disabled"}
	code := http.StatusOK

	sqlDB, err := hc.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	if hc.POGateway != nil {
		if err := hc.POGateway.Ping(ctx); err != nil {
			// gateway down tidak menghentikan admission
			status["po_gateway"] = "unavailable"
		} else {
			status["po_gateway"] = "ok"
		}
	}

	utils.RespondJSON(c, code, "pong", status)
}
