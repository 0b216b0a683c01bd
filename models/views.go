package models

import "time"

// DockMetrics is derived from the booking set on every read.
type DockMetrics struct {
	TodayBookingCount  int     `json:"today_booking_count"`
	UtilizationPercent int     `json:"utilization_percent"`
	NextBookingInfo    *string `json:"next_booking_info"`
}

// DockView is a dock as returned on read paths, augmented with live metrics.
type DockView struct {
	Dock
	DockMetrics
}

type DriverSummary struct {
	DriverPhone string    `json:"driver_phone"`
	CarrierName string    `json:"carrier_name"`
	TotalVisits int       `json:"total_visits"`
	LastVisit   time.Time `json:"last_visit"`
	Status      string    `json:"status"`
}
