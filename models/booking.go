package models

import (
	"fmt"
	"time"
)

type Booking struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	DockID          uint          `gorm:"not null;index:idx_bookings_dock_start,priority:1" json:"dock_id"`
	StartTime       time.Time     `gorm:"not null;index;index:idx_bookings_dock_start,priority:2" json:"start_time"`
	EndTime         time.Time     `gorm:"not null;index" json:"end_time"`
	CarrierName     string        `gorm:"type:varchar(255);not null" json:"carrier_name"`
	PONumber        string        `gorm:"column:po_number;type:varchar(100);not null;index" json:"po_number"`
	Status          BookingStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	DriverPhone     *string       `gorm:"type:varchar(32);index" json:"driver_phone"`
	ExternalOrderID *int64        `json:"external_order_id,omitempty"`
	CreatedAt       time.Time     `gorm:"not null" json:"-"`
	UpdatedAt       time.Time     `gorm:"not null" json:"-"`
}

// Reference is the human readable booking code sent to carriers.
func (b *Booking) Reference() string {
	return fmt.Sprintf("BK-%04d", b.ID)
}

// Overlaps uses half-open windows, so back-to-back slots do not collide.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

func (b *Booking) Phone() string {
	if b.DriverPhone == nil {
		return ""
	}
	return *b.DriverPhone
}
