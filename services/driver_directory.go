package services

import (
	"context"
	"sort"

	"github.com/yeremiapane/dock-scheduler/models"
	"gorm.io/gorm"
)

const driverStatusActive = "Active"

// DriverDirectory derives the driver roster from bookings on every call.
type DriverDirectory struct {
	DB *gorm.DB
}

func NewDriverDirectory(db *gorm.DB) *DriverDirectory {
	return &DriverDirectory{DB: db}
}

func (d *DriverDirectory) List(ctx context.Context) ([]models.DriverSummary, error) {
	var bookings []models.Booking
	if err := d.DB.WithContext(ctx).
		Select("id", "driver_phone", "carrier_name", "start_time").
		Where("driver_phone IS NOT NULL AND driver_phone <> ''").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return summarizeDrivers(bookings), nil
}

func summarizeDrivers(bookings []models.Booking) []models.DriverSummary {
	type group struct {
		summary models.DriverSummary
		latest  uint
	}
	groups := make(map[string]*group)

	for _, b := range bookings {
		phone := b.Phone()
		if phone == "" {
			continue
		}
		g, ok := groups[phone]
		if !ok {
			g = &group{summary: models.DriverSummary{DriverPhone: phone, Status: driverStatusActive}}
			groups[phone] = g
		}
		g.summary.TotalVisits++

		// carrier ikut booking terbaru; seri diputus oleh id terbesar
		newer := b.StartTime.After(g.summary.LastVisit) ||
			(b.StartTime.Equal(g.summary.LastVisit) && b.ID > g.latest)
		if g.summary.TotalVisits == 1 || newer {
			g.summary.LastVisit = b.StartTime
			g.summary.CarrierName = b.CarrierName
			g.latest = b.ID
		}
	}

	out := make([]models.DriverSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastVisit.Equal(out[j].LastVisit) {
			return out[i].LastVisit.After(out[j].LastVisit)
		}
		return out[i].DriverPhone < out[j].DriverPhone
	})
	return out
}
