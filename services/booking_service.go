package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dock-scheduler/models"
	"github.com/yeremiapane/dock-scheduler/utils"
	"gorm.io/gorm"
)

const maxRelockAttempts = 3

// BookingPolicy holds the business rules the engine enforces.
type BookingPolicy struct {
	SlotDuration      time.Duration
	StrictDuration    bool
	StrictTransitions bool
	RequireVerifiedPO bool
	POTimeout         time.Duration
	Location          *time.Location
}

func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		SlotDuration:      time.Hour,
		StrictDuration:    true,
		StrictTransitions: true,
		POTimeout:         5 * time.Second,
		Location:          time.UTC,
	}
}

type BookingInput struct {
	DockID      uint
	StartTime   time.Time
	EndTime     time.Time
	CarrierName string
	PONumber    string
	DriverPhone *string
}

// BookingPatch fields left nil keep their stored value.
type BookingPatch struct {
	Status    *string
	DockID    *uint
	StartTime *time.Time
	EndTime   *time.Time
}

type BookingFilter struct {
	Page
	DockID *uint
	Date   *time.Time
}

type BookingService struct {
	DB        *gorm.DB
	Locks     *DockLocks
	Validator POValidator
	Sink      EventSink
	Policy    BookingPolicy
}

func NewBookingService(db *gorm.DB, locks *DockLocks, validator POValidator, sink EventSink, policy BookingPolicy) *BookingService {
	if validator == nil {
		validator = NoopPOValidator{}
	}
	if sink == nil {
		sink = discardSink{}
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if policy.SlotDuration <= 0 {
		policy.SlotDuration = time.Hour
	}
	return &BookingService{DB: db, Locks: locks, Validator: validator, Sink: sink, Policy: policy}
}

// Create admits a booking. The overlap check and the insert run under the
// dock's lock inside one transaction, so concurrent requests for the same
// window resolve to exactly one winner.
func (s *BookingService) Create(ctx context.Context, in BookingInput) (*models.Booking, error) {
	if err := ValidatePONumber(in.PONumber); err != nil {
		return nil, err
	}
	start, end := in.StartTime.UTC(), in.EndTime.UTC()
	if err := s.checkWindow(start, end); err != nil {
		return nil, err
	}
	carrier := strings.TrimSpace(in.CarrierName)
	if carrier == "" {
		return nil, fmt.Errorf("%w: carrier name is required", ErrValidation)
	}

	verification, err := s.verifyPO(ctx, in.PONumber)
	if err != nil {
		return nil, err
	}

	booking := models.Booking{
		DockID:      in.DockID,
		StartTime:   start,
		EndTime:     end,
		CarrierName: carrier,
		PONumber:    in.PONumber,
		Status:      models.StatusConfirmed,
		DriverPhone: normalizePhone(in.DriverPhone),
	}
	if verification.Verified() {
		id := verification.ExternalOrderID
		booking.ExternalOrderID = &id
	}

	release, err := s.Locks.Acquire(ctx, in.DockID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dock, err := lockDockRow(tx, in.DockID)
		if err != nil {
			return err
		}
		if !dock.IsActive {
			return ErrDockInactive
		}
		if err := checkConflict(tx, in.DockID, start, end, 0); err != nil {
			return err
		}
		return tx.Create(&booking).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"reference": booking.Reference(),
		"dock_id":   booking.DockID,
		"start":     booking.StartTime,
		"carrier":   booking.CarrierName,
	}).Info("booking confirmed")
	s.Sink.Enqueue(NewBookingNotification(EventBookingConfirmed, booking))
	return &booking, nil
}

// Update applies a partial patch. Moving the window or the dock, or
// reviving a cancelled booking, re-runs the overlap check under the locks
// of every dock involved.
func (s *BookingService) Update(ctx context.Context, id uint, patch BookingPatch) (*models.Booking, error) {
	var target *models.BookingStatus
	if patch.Status != nil {
		st, err := models.ParseBookingStatus(*patch.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
		}
		target = &st
	}

	for attempt := 0; attempt < maxRelockAttempts; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		dockIDs := []uint{current.DockID}
		if patch.DockID != nil {
			dockIDs = append(dockIDs, *patch.DockID)
		}

		booking, err := s.updateLocked(ctx, id, current.DockID, dockIDs, target, patch)
		if errors.Is(err, errDockMoved) {
			continue
		}
		if err != nil {
			return nil, err
		}

		utils.InfoLogger.WithFields(logrus.Fields{
			"reference": booking.Reference(),
			"status":    booking.Status,
		}).Info("booking updated")
		s.Sink.Enqueue(NewBookingNotification(EventBookingUpdated, *booking))
		return booking, nil
	}
	return nil, fmt.Errorf("booking %d kept moving between docks", id)
}

var errDockMoved = errors.New("booking moved to another dock")

func (s *BookingService) updateLocked(ctx context.Context, id, lockedDock uint, dockIDs []uint, target *models.BookingStatus, patch BookingPatch) (*models.Booking, error) {
	release, err := s.Locks.Acquire(ctx, dockIDs...)
	if err != nil {
		return nil, err
	}
	defer release()

	var booking models.Booking
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		// dipindah oleh request lain sebelum lock didapat
		if booking.DockID != lockedDock {
			return errDockMoved
		}

		prevStatus := booking.Status
		windowChanged, dockChanged := false, false

		if target != nil && *target != booking.Status {
			if s.Policy.StrictTransitions && !booking.Status.CanTransitionTo(*target) {
				return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, booking.Status, *target)
			}
			booking.Status = *target
		}
		if patch.DockID != nil && *patch.DockID != booking.DockID {
			booking.DockID = *patch.DockID
			dockChanged = true
		}
		if patch.StartTime != nil && !patch.StartTime.Equal(booking.StartTime) {
			booking.StartTime = patch.StartTime.UTC()
			windowChanged = true
		}
		if patch.EndTime != nil && !patch.EndTime.Equal(booking.EndTime) {
			booking.EndTime = patch.EndTime.UTC()
			windowChanged = true
		}

		if windowChanged {
			if err := s.checkWindow(booking.StartTime, booking.EndTime); err != nil {
				return err
			}
		}

		revived := !prevStatus.Occupies() && booking.Status.Occupies()
		needsCheck := booking.Status.Occupies() && (windowChanged || dockChanged || revived)
		if needsCheck || dockChanged {
			// row lock sama seperti admission, urut id naik
			for _, dockID := range uniqueSorted([]uint{lockedDock, booking.DockID}) {
				dock, err := lockDockRow(tx, dockID)
				if dockID != booking.DockID {
					// dock lama boleh sudah dihapus
					if err != nil && !errors.Is(err, ErrDockNotFound) {
						return err
					}
					continue
				}
				if err != nil {
					return err
				}
				if dockChanged && !dock.IsActive {
					return ErrDockInactive
				}
			}
		}
		if needsCheck {
			if err := checkConflict(tx, booking.DockID, booking.StartTime, booking.EndTime, booking.ID); err != nil {
				return err
			}
		}

		return tx.Model(&booking).
			Select("DockID", "StartTime", "EndTime", "Status", "UpdatedAt").
			Updates(&booking).Error
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns bookings ordered by id. The date filter covers the whole
// calendar day in the reference location.
func (s *BookingService) List(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	page, err := f.Page.normalize()
	if err != nil {
		return nil, err
	}

	q := s.DB.WithContext(ctx).Model(&models.Booking{})
	if f.DockID != nil {
		q = q.Where("dock_id = ?", *f.DockID)
	}
	if f.Date != nil {
		from, to := DayBounds(*f.Date, s.Policy.Location)
		q = q.Where("start_time >= ? AND start_time <= ?", from, to)
	}

	var bookings []models.Booking
	if err := q.Order("id ASC").Offset(page.Offset).Limit(page.Limit).Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *BookingService) Get(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.DB.WithContext(ctx).First(&booking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// ForDriver lists a driver's bookings, newest first.
func (s *BookingService) ForDriver(ctx context.Context, phone string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.DB.WithContext(ctx).
		Where("driver_phone = ?", phone).
		Order("start_time DESC, id DESC").
		Find(&bookings).Error
	return bookings, err
}

// ValidatePO checks the local format and then asks the ERP.
func (s *BookingService) ValidatePO(ctx context.Context, po string) (POVerification, error) {
	if err := ValidatePONumber(po); err != nil {
		return POVerification{}, err
	}
	ctx, cancel := s.poContext(ctx)
	defer cancel()
	v, err := s.Validator.Validate(ctx, po)
	if err != nil {
		utils.ErrorLogger.WithField("po_number", po).Warnf("PO validation unavailable: %v", err)
	}
	return v, nil
}

func (s *BookingService) checkWindow(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidDuration)
	}
	if s.Policy.StrictDuration && end.Sub(start) != s.Policy.SlotDuration {
		return fmt.Errorf("%w: slot must last exactly %s", ErrInvalidDuration, s.Policy.SlotDuration)
	}
	return nil
}

// verifyPO never fails the admission on gateway trouble unless the policy
// demands a verified PO.
func (s *BookingService) verifyPO(ctx context.Context, po string) (POVerification, error) {
	ctx, cancel := s.poContext(ctx)
	defer cancel()

	v, err := s.Validator.Validate(ctx, po)
	fields := logrus.Fields{"po_number": po, "po_status": v.Status}
	switch {
	case err != nil:
		utils.ErrorLogger.WithFields(fields).Warnf("PO validation unavailable: %v", err)
	case v.Verified():
		fields["supplier"] = v.SupplierName
		fields["external_order_id"] = v.ExternalOrderID
		utils.InfoLogger.WithFields(fields).Info("PO verified")
	case v.Status == PONoMatch:
		utils.InfoLogger.WithFields(fields).Warn("PO not found in ERP")
	}

	if s.Policy.RequireVerifiedPO && !v.Verified() {
		return v, ErrPONotVerified
	}
	return v, nil
}

func (s *BookingService) poContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Policy.POTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Policy.POTimeout)
}

func checkConflict(tx *gorm.DB, dockID uint, start, end time.Time, exceptID uint) error {
	q := tx.Model(&models.Booking{}).
		Where("dock_id = ? AND status <> ? AND start_time < ? AND end_time > ?",
			dockID, models.StatusCancelled, end, start)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}

	var clash []models.Booking
	if err := q.Order("start_time ASC").Limit(1).Find(&clash).Error; err != nil {
		return err
	}
	if len(clash) > 0 {
		return fmt.Errorf("%w: overlaps %s", ErrSlotConflict, clash[0].Reference())
	}
	return nil
}

// DayBounds returns the first and last microsecond of the calendar day
// containing t in loc, expressed in UTC.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	day := now.New(t.In(loc))
	return day.BeginningOfDay().UTC(), day.EndOfDay().Truncate(time.Microsecond).UTC()
}

func normalizePhone(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
