package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dock-scheduler/database"
	"github.com/yeremiapane/dock-scheduler/models"
	"github.com/yeremiapane/dock-scheduler/utils"
	"gorm.io/gorm"
)

// DockInput carries the full replacement state of a dock.
type DockInput struct {
	Name         string
	Capabilities []string
	IsActive     bool
}

func (in DockInput) normalize() (DockInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, fmt.Errorf("%w: dock name is required", ErrValidation)
	}

	seen := make(map[string]struct{}, len(in.Capabilities))
	caps := make([]string, 0, len(in.Capabilities))
	for _, c := range in.Capabilities {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		caps = append(caps, c)
	}
	in.Capabilities = caps
	return in, nil
}

type DockService struct {
	DB    *gorm.DB
	Locks *DockLocks
	Sink  EventSink
	Clock Clock
}

func NewDockService(db *gorm.DB, locks *DockLocks, sink EventSink) *DockService {
	if sink == nil {
		sink = discardSink{}
	}
	return &DockService{DB: db, Locks: locks, Sink: sink, Clock: systemClock}
}

func (s *DockService) Create(ctx context.Context, in DockInput) (*models.Dock, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, in.Name, 0); err != nil {
		return nil, err
	}

	dock := models.Dock{
		Name:         in.Name,
		Capabilities: models.StringList(in.Capabilities),
		IsActive:     in.IsActive,
	}
	// Select supaya is_active=false tidak diganti default kolom
	if err := s.DB.WithContext(ctx).
		Select("Name", "Capabilities", "IsActive", "CreatedAt", "UpdatedAt").
		Create(&dock).Error; err != nil {
		return nil, translateDockError(err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{"dock_id": dock.ID, "name": dock.Name}).Info("dock created")
	s.Sink.Enqueue(NewDockNotification(EventDockChanged, dock))
	return &dock, nil
}

// List returns docks in insertion order.
func (s *DockService) List(ctx context.Context, page Page) ([]models.Dock, error) {
	page, err := page.normalize()
	if err != nil {
		return nil, err
	}
	var docks []models.Dock
	if err := s.DB.WithContext(ctx).
		Order("id ASC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&docks).Error; err != nil {
		return nil, err
	}
	return docks, nil
}

func (s *DockService) Get(ctx context.Context, id uint) (*models.Dock, error) {
	var dock models.Dock
	if err := s.DB.WithContext(ctx).First(&dock, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDockNotFound
		}
		return nil, err
	}
	return &dock, nil
}

// Update overwrites name, capabilities and the active flag together.
func (s *DockService) Update(ctx context.Context, id uint, in DockInput) (*models.Dock, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	var dock models.Dock
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&dock, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDockNotFound
			}
			return err
		}
		if err := ensureNameFree(tx, in.Name, id); err != nil {
			return err
		}

		dock.Name = in.Name
		dock.Capabilities = models.StringList(in.Capabilities)
		dock.IsActive = in.IsActive
		return tx.Model(&dock).
			Select("Name", "Capabilities", "IsActive", "UpdatedAt").
			Updates(&dock).Error
	})
	if err != nil {
		return nil, translateDockError(err)
	}

	s.Sink.Enqueue(NewDockNotification(EventDockChanged, dock))
	return &dock, nil
}

// Delete removes a dock that has no upcoming live bookings. Past bookings
// are kept so the driver directory still sees them; any that never reached a
// final status are cancelled.
func (s *DockService) Delete(ctx context.Context, id uint) (*models.Dock, error) {
	release, err := s.Locks.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	terminal := []models.BookingStatus{models.StatusCancelled, models.StatusCompleted}
	var dock *models.Dock
	var closed int64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := lockDockRow(tx, id)
		if err != nil {
			return err
		}

		var upcoming int64
		if err := tx.Model(&models.Booking{}).
			Where("dock_id = ? AND status NOT IN ? AND end_time > ?", id, terminal, s.Clock().UTC()).
			Count(&upcoming).Error; err != nil {
			return err
		}
		if upcoming > 0 {
			return fmt.Errorf("%w: %d active booking(s)", ErrDockInUse, upcoming)
		}

		// booking lama yang tidak pernah selesai ditutup supaya tidak
		// ikut terhitung bila id dock dipakai ulang
		res := tx.Model(&models.Booking{}).
			Where("dock_id = ? AND status NOT IN ?", id, terminal).
			Update("status", models.StatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		closed = res.RowsAffected

		dock = d
		return tx.Delete(&models.Dock{}, id).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{"dock_id": id, "cancelled_bookings": closed}).Info("dock deleted")
	s.Sink.Enqueue(NewDockNotification(EventDockDeleted, *dock))
	return dock, nil
}

func (s *DockService) ensureNameFree(ctx context.Context, name string, exceptID uint) error {
	return ensureNameFree(s.DB.WithContext(ctx), name, exceptID)
}

func ensureNameFree(db *gorm.DB, name string, exceptID uint) error {
	q := db.Model(&models.Dock{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateName
	}
	return nil
}

// A concurrent create can still slip past the pre-check; the unique index
// catches it.
func translateDockError(err error) error {
	if errors.Is(database.TranslateError(err), database.ErrUniqueViolation) {
		return ErrDuplicateName
	}
	return err
}
