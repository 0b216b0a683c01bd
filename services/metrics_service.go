package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yeremiapane/dock-scheduler/models"
	"gorm.io/gorm"
)

// DefaultDailyCapacity is the number of slots a dock is assumed to offer per day.
const DefaultDailyCapacity = 8

type MetricsService struct {
	DB       *gorm.DB
	Location *time.Location
	Clock    Clock
	Capacity int
}

func NewMetricsService(db *gorm.DB, loc *time.Location) *MetricsService {
	if loc == nil {
		loc = time.UTC
	}
	return &MetricsService{DB: db, Location: loc, Clock: systemClock, Capacity: DefaultDailyCapacity}
}

// Utilization is count/capacity as a whole percentage, capped at 100.
func Utilization(count, capacity int) int {
	if count <= 0 || capacity <= 0 {
		return 0
	}
	pct := count * 100 / capacity
	if pct > 100 {
		return 100
	}
	return pct
}

func (m *MetricsService) DockMetrics(ctx context.Context, dockID uint, at time.Time) (models.DockMetrics, error) {
	var out models.DockMetrics
	db := m.DB.WithContext(ctx)
	from, to := DayBounds(at, m.Location)

	var count int64
	if err := db.Model(&models.Booking{}).
		Where("dock_id = ? AND status <> ? AND start_time >= ? AND start_time <= ?",
			dockID, models.StatusCancelled, from, to).
		Count(&count).Error; err != nil {
		return out, err
	}
	out.TodayBookingCount = int(count)
	out.UtilizationPercent = Utilization(int(count), m.Capacity)

	var next []models.Booking
	if err := db.Where("dock_id = ? AND status <> ? AND start_time >= ?",
		dockID, models.StatusCancelled, at.UTC()).
		Order("start_time ASC, id ASC").
		Limit(1).
		Find(&next).Error; err != nil {
		return out, err
	}
	if len(next) > 0 {
		info := fmt.Sprintf("%s - %s", next[0].StartTime.In(m.Location).Format("15:04"), next[0].CarrierName)
		out.NextBookingInfo = &info
	}
	return out, nil
}

// View decorates one dock with metrics computed at the current instant.
func (m *MetricsService) View(ctx context.Context, dock models.Dock) (models.DockView, error) {
	metrics, err := m.DockMetrics(ctx, dock.ID, m.Clock())
	if err != nil {
		return models.DockView{}, err
	}
	return models.DockView{Dock: dock, DockMetrics: metrics}, nil
}

func (m *MetricsService) Views(ctx context.Context, docks []models.Dock) ([]models.DockView, error) {
	at := m.Clock()
	views := make([]models.DockView, 0, len(docks))
	for _, d := range docks {
		metrics, err := m.DockMetrics(ctx, d.ID, at)
		if err != nil {
			return nil, err
		}
		views = append(views, models.DockView{Dock: d, DockMetrics: metrics})
	}
	return views, nil
}
