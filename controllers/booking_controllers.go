package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dock-scheduler/services"
	"github.com/yeremiapane/dock-scheduler/utils"
)

type BookingController struct {
	Bookings *services.BookingService
	Location *time.Location
}

func NewBookingController(bookings *services.BookingService, loc *time.Location) *BookingController {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingController{Bookings: bookings, Location: loc}
}

// CreateBooking -> admission slot baru
func (bc *BookingController) CreateBooking(c *gin.Context) {
	var req struct {
		DockID      uint    `json:"dock_id" binding:"required"`
		StartTime   string  `json:"start_time" binding:"required"`
		EndTime     string  `json:"end_time" binding:"required"`
		CarrierName string  `json:"carrier_name" binding:"required"`
		PONumber    string  `json:"po_number" binding:"required"`
		DriverPhone *string `json:"driver_phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	start, ok := parseInstantField(c, "start_time", req.StartTime, bc.Location)
	if !ok {
		return
	}
	end, ok := parseInstantField(c, "end_time", req.EndTime, bc.Location)
	if !ok {
		return
	}

	booking, err := bc.Bookings.Create(c.Request.Context(), services.BookingInput{
		DockID:      req.DockID,
		StartTime:   start,
		EndTime:     end,
		CarrierName: req.CarrierName,
		PONumber:    req.PONumber,
		DriverPhone: req.DriverPhone,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Booking confirmed", booking)
}

// ListBookings supports ?skip, ?limit, ?dock_id and ?date=YYYY-MM-DD.
func (bc *BookingController) ListBookings(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	filter := services.BookingFilter{Page: page}

	if v := c.Query("dock_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("dock_id must be a positive integer"))
			return
		}
		// dock_id=0 dianggap tanpa filter
		if id > 0 {
			dockID := uint(id)
			filter.DockID = &dockID
		}
	}
	if v := c.Query("date"); v != "" {
		day, err := utils.ParseDate(v, bc.Location)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		filter.Date = &day
	}

	bookings, err := bc.Bookings.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of bookings", bookings)
}

func (bc *BookingController) GetBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "booking_id")
	if !ok {
		return
	}
	booking, err := bc.Bookings.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Booking detail", booking)
}

// UpdateBooking applies a partial patch; omitted or null fields are kept.
func (bc *BookingController) UpdateBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "booking_id")
	if !ok {
		return
	}
	var req struct {
		Status    *string `json:"status"`
		DockID    *uint   `json:"dock_id"`
		StartTime *string `json:"start_time"`
		EndTime   *string `json:"end_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var patch services.BookingPatch
	if req.Status != nil && *req.Status != "" {
		patch.Status = req.Status
	}
	if req.DockID != nil && *req.DockID != 0 {
		patch.DockID = req.DockID
	}
	if req.StartTime != nil && *req.StartTime != "" {
		t, ok := parseInstantField(c, "start_time", *req.StartTime, bc.Location)
		if !ok {
			return
		}
		patch.StartTime = &t
	}
	if req.EndTime != nil && *req.EndTime != "" {
		t, ok := parseInstantField(c, "end_time", *req.EndTime, bc.Location)
		if !ok {
			return
		}
		patch.EndTime = &t
	}

	booking, err := bc.Bookings.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Booking updated", booking)
}

// ValidatePO -> cek PO ke ERP tanpa membuat booking
func (bc *BookingController) ValidatePO(c *gin.Context) {
	po := c.Query("po")
	if po == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("po query parameter is required"))
		return
	}
	result, err := bc.Bookings.ValidatePO(c.Request.Context(), po)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "PO validation result", result)
}
