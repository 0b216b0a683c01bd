package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/dock-scheduler/models"
	"github.com/yeremiapane/dock-scheduler/utils"
	"gorm.io/gorm"
)

// LateMonitor marks confirmed bookings as late once their start time plus
// the grace period has passed without an arrival.
type LateMonitor struct {
	DB       *gorm.DB
	Sink     EventSink
	Grace    time.Duration
	Interval time.Duration
	Clock    Clock
	StopChan chan struct{}

	stopOnce sync.Once
}

func NewLateMonitor(db *gorm.DB, sink EventSink, grace, interval time.Duration) *LateMonitor {
	if sink == nil {
		sink = discardSink{}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &LateMonitor{
		DB:       db,
		Sink:     sink,
		Grace:    grace,
		Interval: interval,
		Clock:    systemClock,
		StopChan: make(chan struct{}),
	}
}

func (lm *LateMonitor) Start() {
	go func() {
		ticker := time.NewTicker(lm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), lm.Interval)
				if _, err := lm.CheckOnce(ctx); err != nil {
					utils.ErrorLogger.Printf("Error checking late bookings: %v", err)
				}
				cancel()
			case <-lm.StopChan:
				return
			}
		}
	}()
}

func (lm *LateMonitor) Stop() {
	lm.stopOnce.Do(func() { close(lm.StopChan) })
}

// CheckOnce runs a single sweep and returns the bookings it moved to Late.
func (lm *LateMonitor) CheckOnce(ctx context.Context) ([]models.Booking, error) {
	cutoff := lm.Clock().Add(-lm.Grace).UTC()

	var candidates []models.Booking
	if err := lm.DB.WithContext(ctx).
		Where("status = ? AND start_time < ?", models.StatusConfirmed, cutoff).
		Order("start_time ASC").
		Limit(100).
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	var marked []models.Booking
	for _, b := range candidates {
		// kondisi status dicek lagi di UPDATE, jadi perubahan manual tidak tertimpa
		res := lm.DB.WithContext(ctx).Model(&models.Booking{}).
			Where("id = ? AND status = ?", b.ID, models.StatusConfirmed).
			Update("status", models.StatusLate)
		if res.Error != nil {
			return marked, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}

		b.Status = models.StatusLate
		marked = append(marked, b)
		utils.InfoLogger.Printf("Booking %s marked Late", b.Reference())
		lm.Sink.Enqueue(NewBookingNotification(EventBookingUpdated, b))
	}
	return marked, nil
}
