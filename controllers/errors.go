package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dock-scheduler/services"
	"github.com/yeremiapane/dock-scheduler/utils"
)

var errSlotTaken = errors.New("Time slot already booked")

// respondServiceError maps service errors onto HTTP status codes.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSlotConflict):
		utils.RespondError(c, http.StatusBadRequest, errSlotTaken)
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrDuplicateName),
		errors.Is(err, services.ErrPhoneTaken):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrDockInUse):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Header("WWW-Authenticate", "Bearer")
		utils.RespondError(c, http.StatusUnauthorized, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		utils.RespondError(c, http.StatusServiceUnavailable, errors.New("request cancelled"))
	default:
		utils.ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		_ = c.Error(err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

func parsePage(c *gin.Context) (services.Page, bool) {
	var page services.Page
	var err error
	if v := c.Query("skip"); v != "" {
		if page.Offset, err = strconv.Atoi(v); err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("skip must be an integer"))
			return page, false
		}
	}
	if v := c.Query("limit"); v != "" {
		if page.Limit, err = strconv.Atoi(v); err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("limit must be an integer"))
			return page, false
		}
	}
	return page, true
}

func parseInstantField(c *gin.Context, field, value string, loc *time.Location) (time.Time, bool) {
	t, err := utils.ParseInstant(value, loc)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("%s: %w", field, err))
		return time.Time{}, false
	}
	return t, true
}
