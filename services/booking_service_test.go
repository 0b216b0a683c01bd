package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/dock-scheduler/models"
	"github.com/yeremiapane/dock-scheduler/testutil"
	"gorm.io/gorm"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type bookingFixture struct {
	db   *gorm.DB
	svc  *BookingService
	sink *recordingSink
	dock models.Dock
}

func newBookingFixture(t *testing.T, mutate ...func(*BookingPolicy)) bookingFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	policy := DefaultBookingPolicy()
	for _, m := range mutate {
		m(&policy)
	}
	sink := &recordingSink{}
	return bookingFixture{
		db:   db,
		svc:  NewBookingService(db, NewDockLocks(), NoopPOValidator{}, sink, policy),
		sink: sink,
		dock: testutil.CreateDock(t, db, "D1"),
	}
}

func (f bookingFixture) input(start time.Time, po, carrier string) BookingInput {
	return BookingInput{
		DockID:      f.dock.ID,
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		CarrierName: carrier,
		PONumber:    po,
	}
}

func countBookings(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Booking{}).Count(&n).Error)
	return n
}

func TestCreateBooking_OverlapAndAdjacent(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-123", "Acme"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, a.Status)

	_, err = f.svc.Create(ctx, f.input(at(9, 30), "PO-456", "Globex"))
	assert.ErrorIs(t, err, ErrSlotConflict)

	c, err := f.svc.Create(ctx, f.input(at(10, 0), "PO-789", "Initech"))
	require.NoError(t, err, "adjacent slot must be admitted")
	assert.Equal(t, models.StatusConfirmed, c.Status)

	assert.EqualValues(t, 2, countBookings(t, f.db))
}

func TestCreateBooking_InvalidPONumber(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.Create(context.Background(), f.input(at(9, 0), "123", "Acme"))
	assert.ErrorIs(t, err, ErrInvalidPoFormat)
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualValues(t, 0, countBookings(t, f.db))
}

func TestCreateBooking_CancelledSlotCanBeRebooked(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, a.ID, BookingPatch{Status: strPtr("CANCELLED")})
	require.NoError(t, err)

	b, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-2", "Globex"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateBooking_ConcurrentAdmissionHasOneWinner(t *testing.T) {
	f := newBookingFixture(t)
	const attempts = 12

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// windows overlap pairwise: all start within the first slot
			start := at(9, i%4*10)
			_, err := f.svc.Create(context.Background(), f.input(start, "PO-RACE", "Acme"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
	assert.EqualValues(t, 1, countBookings(t, f.db))
}

func TestCreateBooking_DockLockSerialisesCheckAndInsert(t *testing.T) {
	// several connections: only the dock lock keeps check and insert together
	db := testutil.NewFileDB(t, 4)
	dock := testutil.CreateDock(t, db, "D1")
	svc := NewBookingService(db, NewDockLocks(), NoopPOValidator{}, nil, DefaultBookingPolicy())

	// insert pertama ditahan supaya admission lain sempat membaca jadwal
	var hold sync.Once
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:hold_first_insert", func(tx *gorm.DB) {
		if tx.Statement.Table == "bookings" {
			hold.Do(func() { time.Sleep(150 * time.Millisecond) })
		}
	}))

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), BookingInput{
				DockID:      dock.ID,
				StartTime:   at(9, i*10),
				EndTime:     at(10, i*10),
				CarrierName: "Acme",
				PONumber:    "PO-RACE",
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotConflict, "losers must see the winner, not a storage error")
	}
	assert.Equal(t, 1, successes)
	assert.EqualValues(t, 1, countBookings(t, db))
}

func TestCreateBooking_DifferentDocksDoNotConflict(t *testing.T) {
	f := newBookingFixture(t)
	other := testutil.CreateDock(t, f.db, "D2")
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
	require.NoError(t, err)

	in := f.input(at(9, 0), "PO-2", "Globex")
	in.DockID = other.ID
	_, err = f.svc.Create(ctx, in)
	assert.NoError(t, err)
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	t.Run("end before start", func(t *testing.T) {
		in := f.input(at(9, 0), "PO-1", "Acme")
		in.EndTime = at(8, 0)
		_, err := f.svc.Create(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("not one slot long", func(t *testing.T) {
		in := f.input(at(9, 0), "PO-1", "Acme")
		in.EndTime = at(9, 30)
		_, err := f.svc.Create(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("format checked before duration", func(t *testing.T) {
		in := f.input(at(9, 0), "X-1", "Acme")
		in.EndTime = at(9, 30)
		_, err := f.svc.Create(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidPoFormat)
	})

	t.Run("blank carrier", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "  "))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown dock", func(t *testing.T) {
		in := f.input(at(9, 0), "PO-1", "Acme")
		in.DockID = 999
		_, err := f.svc.Create(ctx, in)
		assert.ErrorIs(t, err, ErrDockNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("inactive dock", func(t *testing.T) {
		closed := testutil.CreateDock(t, f.db, "Closed")
		require.NoError(t, f.db.Model(&closed).Update("is_active", false).Error)

		in := f.input(at(9, 0), "PO-1", "Acme")
		in.DockID = closed.ID
		_, err := f.svc.Create(ctx, in)
		assert.ErrorIs(t, err, ErrDockInactive)
	})

	assert.EqualValues(t, 0, countBookings(t, f.db))
}

func TestCreateBooking_FlexibleDuration(t *testing.T) {
	f := newBookingFixture(t, func(p *BookingPolicy) { p.StrictDuration = false })

	in := f.input(at(9, 0), "PO-1", "Acme")
	in.EndTime = at(10, 30)
	b, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, b.EndTime.Sub(b.StartTime))
}

func TestCreateBooking_EmitsConfirmation(t *testing.T) {
	f := newBookingFixture(t)
	in := f.input(at(9, 0), "PO-1", "Acme")
	in.DriverPhone = strPtr(" 0812 ")

	b, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "0812", b.Phone())

	events := f.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventBookingConfirmed, events[0].Event)
	assert.Equal(t, b.Reference(), events[0].Reference())
	assert.True(t, events[0].Booking.StartTime.Equal(at(9, 0)))
}

func TestCreateBooking_POVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("verified PO records the ERP order", func(t *testing.T) {
		f := newBookingFixture(t)
		f.svc.Validator = &stubValidator{result: POVerification{Status: POVerified, ExternalOrderID: 42, SupplierName: "PT Maju"}}

		b, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
		require.NoError(t, err)
		require.NotNil(t, b.ExternalOrderID)
		assert.EqualValues(t, 42, *b.ExternalOrderID)
	})

	t.Run("gateway failure does not block admission", func(t *testing.T) {
		f := newBookingFixture(t)
		f.svc.Validator = &stubValidator{result: POVerification{Status: POUnavailable}, err: errors.New("connection refused")}

		b, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
		require.NoError(t, err)
		assert.Nil(t, b.ExternalOrderID)
	})

	t.Run("verified PO required", func(t *testing.T) {
		f := newBookingFixture(t, func(p *BookingPolicy) { p.RequireVerifiedPO = true })
		f.svc.Validator = &stubValidator{result: POVerification{Status: PONoMatch}}

		_, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
		assert.ErrorIs(t, err, ErrPONotVerified)
		assert.EqualValues(t, 0, countBookings(t, f.db))
	})

	t.Run("invalid format never reaches the gateway", func(t *testing.T) {
		f := newBookingFixture(t)
		stub := &stubValidator{result: POVerification{Status: POVerified}}
		f.svc.Validator = stub

		_, err := f.svc.Create(ctx, f.input(at(9, 0), "123", "Acme"))
		assert.ErrorIs(t, err, ErrInvalidPoFormat)
		assert.Equal(t, 0, stub.calls)
	})
}

func TestUpdateBooking_PartialPatchKeepsOtherFields(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, b.ID, BookingPatch{Status: strPtr("Arrived")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusArrived, updated.Status)
	assert.True(t, updated.StartTime.Equal(b.StartTime))
	assert.Equal(t, b.DockID, updated.DockID)

	events := f.sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventBookingUpdated, events[1].Event)
}

func TestUpdateBooking_RescheduleRechecksOverlap(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, f.input(at(11, 0), "PO-2", "Globex"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, b.ID, BookingPatch{StartTime: timePtr(at(9, 30)), EndTime: timePtr(at(10, 30))})
	assert.ErrorIs(t, err, ErrSlotConflict)

	stored, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartTime.Equal(at(11, 0)), "rejected patch must leave the booking untouched")

	moved, err := f.svc.Update(ctx, b.ID, BookingPatch{StartTime: timePtr(at(10, 0)), EndTime: timePtr(at(11, 0))})
	require.NoError(t, err)
	assert.True(t, moved.StartTime.Equal(at(10, 0)))

	// moving a booking within its own window does not collide with itself
	_, err = f.svc.Update(ctx, a.ID, BookingPatch{StartTime: timePtr(at(8, 30)), EndTime: timePtr(at(9, 30))})
	assert.NoError(t, err)
}

func TestUpdateBooking_RescheduleValidatesDuration(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, b.ID, BookingPatch{EndTime: timePtr(at(9, 45))})
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestUpdateBooking_MoveToOtherDock(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	d2 := testutil.CreateDock(t, f.db, "D2")

	a, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
	require.NoError(t, err)

	in := f.input(at(9, 0), "PO-2", "Globex")
	in.DockID = d2.ID
	_, err = f.svc.Create(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, a.ID, BookingPatch{DockID: uintPtr(d2.ID)})
	assert.ErrorIs(t, err, ErrSlotConflict)

	_, err = f.svc.Update(ctx, a.ID, BookingPatch{DockID: uintPtr(404)})
	assert.ErrorIs(t, err, ErrDockNotFound)

	moved, err := f.svc.Update(ctx, a.ID, BookingPatch{
		DockID:    uintPtr(d2.ID),
		StartTime: timePtr(at(10, 0)),
		EndTime:   timePtr(at(11, 0)),
	})
	require.NoError(t, err)
	assert.Equal(t, d2.ID, moved.DockID)
}

func TestUpdateBooking_ConflictCheckLocksDockRows(t *testing.T) {
	f := newBookingFixture(t)
	other := testutil.CreateDock(t, f.db, "D2")
	ctx := context.Background()

	var dockReads []uint
	var mu sync.Mutex
	require.NoError(t, f.db.Callback().Query().After("gorm:query").Register("test:dock_reads", func(tx *gorm.DB) {
		if tx.Statement.Table != "docks" {
			return
		}
		if d, ok := tx.Statement.Dest.(*models.Dock); ok {
			mu.Lock()
			dockReads = append(dockReads, d.ID)
			mu.Unlock()
		}
	}))
	reads := func() []uint {
		mu.Lock()
		defer mu.Unlock()
		out := dockReads
		dockReads = nil
		return out
	}

	b, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
	require.NoError(t, err)
	assert.Equal(t, []uint{f.dock.ID}, reads())

	t.Run("status only", func(t *testing.T) {
		_, err := f.svc.Update(ctx, b.ID, BookingPatch{Status: strPtr("Rescheduled")})
		require.NoError(t, err)
		assert.Empty(t, reads())
	})

	t.Run("reschedule on same dock", func(t *testing.T) {
		_, err := f.svc.Update(ctx, b.ID, BookingPatch{StartTime: timePtr(at(11, 0)), EndTime: timePtr(at(12, 0))})
		require.NoError(t, err)
		assert.Equal(t, []uint{f.dock.ID}, reads())
	})

	t.Run("move locks both docks in id order", func(t *testing.T) {
		_, err := f.svc.Update(ctx, b.ID, BookingPatch{DockID: uintPtr(other.ID)})
		require.NoError(t, err)
		assert.Equal(t, []uint{f.dock.ID, other.ID}, reads())
	})
}

func TestUpdateBooking_RevivingCancelledChecksOverlap(t *testing.T) {
	f := newBookingFixture(t, func(p *BookingPolicy) { p.StrictTransitions = false })
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, a.ID, BookingPatch{Status: strPtr("Cancelled")})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.input(at(9, 0), "PO-2", "Globex"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, a.ID, BookingPatch{Status: strPtr("Confirmed")})
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestUpdateBooking_StatusRules(t *testing.T) {
	ctx := context.Background()

	t.Run("strict table", func(t *testing.T) {
		f := newBookingFixture(t)
		b, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, b.ID, BookingPatch{Status: strPtr("Completed")})
		assert.ErrorIs(t, err, ErrInvalidTransition)

		for _, st := range []string{"Arrived", "Completed"} {
			_, err = f.svc.Update(ctx, b.ID, BookingPatch{Status: strPtr(st)})
			require.NoError(t, err, st)
		}
		_, err = f.svc.Update(ctx, b.ID, BookingPatch{Status: strPtr("Confirmed")})
		assert.ErrorIs(t, err, ErrInvalidTransition)

		// same status is a no-op, even for terminal states
		_, err = f.svc.Update(ctx, b.ID, BookingPatch{Status: strPtr("COMPLETED")})
		assert.NoError(t, err)
	})

	t.Run("unrestricted", func(t *testing.T) {
		f := newBookingFixture(t, func(p *BookingPolicy) { p.StrictTransitions = false })
		b, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
		require.NoError(t, err)

		updated, err := f.svc.Update(ctx, b.ID, BookingPatch{Status: strPtr("Pending")})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, updated.Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newBookingFixture(t)
		b, err := f.svc.Create(ctx, f.input(at(9, 0), "PO-1", "Acme"))
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, b.ID, BookingPatch{Status: strPtr("Lost")})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("missing booking", func(t *testing.T) {
		f := newBookingFixture(t)
		_, err := f.svc.Update(ctx, 77, BookingPatch{Status: strPtr("Arrived")})
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}

func TestListBookings_Filters(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	d2 := testutil.CreateDock(t, f.db, "D2")

	testutil.CreateBooking(t, f.db, models.Booking{DockID: f.dock.ID, StartTime: at(9, 0), EndTime: at(10, 0)})
	testutil.CreateBooking(t, f.db, models.Booking{DockID: d2.ID, StartTime: at(9, 0), EndTime: at(10, 0)})
	testutil.CreateBooking(t, f.db, models.Booking{DockID: f.dock.ID, StartTime: at(23, 59), EndTime: at(24, 59)})
	testutil.CreateBooking(t, f.db, models.Booking{DockID: f.dock.ID, StartTime: at(24, 0), EndTime: at(25, 0)})

	all, err := f.svc.List(ctx, BookingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}

	date := day
	today, err := f.svc.List(ctx, BookingFilter{Date: &date})
	require.NoError(t, err)
	assert.Len(t, today, 3)

	dockToday, err := f.svc.List(ctx, BookingFilter{Date: &date, DockID: &f.dock.ID})
	require.NoError(t, err)
	assert.Len(t, dockToday, 2)

	again, err := f.svc.List(ctx, BookingFilter{Date: &date, DockID: &f.dock.ID})
	require.NoError(t, err)
	assert.Equal(t, dockToday, again)

	paged, err := f.svc.List(ctx, BookingFilter{Page: Page{Offset: 1, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, all[1].ID, paged[0].ID)

	_, err = f.svc.List(ctx, BookingFilter{Page: Page{Limit: -1}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListBookings_DateUsesReferenceLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	f := newBookingFixture(t, func(p *BookingPolicy) { p.Location = wib })

	// 2025-03-10 23:30 UTC is already 2025-03-11 in WIB
	testutil.CreateBooking(t, f.db, models.Booking{DockID: f.dock.ID, StartTime: at(23, 30), EndTime: at(24, 30)})

	local := time.Date(2025, 3, 11, 0, 0, 0, 0, wib)
	got, err := f.svc.List(context.Background(), BookingFilter{Date: &local})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	prev := time.Date(2025, 3, 10, 0, 0, 0, 0, wib)
	got, err = f.svc.List(context.Background(), BookingFilter{Date: &prev})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDayBounds(t *testing.T) {
	from, to := DayBounds(at(15, 4), time.UTC)
	assert.Equal(t, day, from)
	assert.Equal(t, day.Add(24*time.Hour-time.Microsecond), to)
}

func TestForDriver(t *testing.T) {
	f := newBookingFixture(t)
	phone := "0812"
	testutil.CreateBooking(t, f.db, models.Booking{DockID: f.dock.ID, StartTime: at(9, 0), EndTime: at(10, 0), DriverPhone: &phone})
	testutil.CreateBooking(t, f.db, models.Booking{DockID: f.dock.ID, StartTime: at(11, 0), EndTime: at(12, 0), DriverPhone: &phone})
	testutil.CreateBooking(t, f.db, models.Booking{DockID: f.dock.ID, StartTime: at(13, 0), EndTime: at(14, 0)})

	got, err := f.svc.ForDriver(context.Background(), phone)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].StartTime.After(got[1].StartTime))
}

func TestValidatePO(t *testing.T) {
	f := newBookingFixture(t)
	f.svc.Validator = &stubValidator{result: POVerification{Status: POVerified, ExternalOrderID: 9, SupplierName: "PT Maju"}}

	_, err := f.svc.ValidatePO(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrInvalidPoFormat)

	v, err := f.svc.ValidatePO(context.Background(), "PO-9")
	require.NoError(t, err)
	assert.True(t, v.Verified())
	assert.Equal(t, "PT Maju", v.SupplierName)
}

func timePtr(t time.Time) *time.Time { return &t }
