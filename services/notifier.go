package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dock-scheduler/board"
	"github.com/yeremiapane/dock-scheduler/models"
	"github.com/yeremiapane/dock-scheduler/utils"
)

type EventType string

const (
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingUpdated   EventType = "booking.updated"
	EventDockChanged      EventType = "dock.changed"
	EventDockDeleted      EventType = "dock.deleted"
)

// Notification describes something that already happened. Delivery is best
// effort and never feeds back into the operation that produced it.
type Notification struct {
	ID         string
	Event      EventType
	Booking    *models.Booking
	Dock       *models.Dock
	OccurredAt time.Time
}

func NewBookingNotification(event EventType, b models.Booking) Notification {
	return Notification{
		ID:         uuid.NewString(),
		Event:      event,
		Booking:    &b,
		OccurredAt: time.Now().UTC(),
	}
}

func NewDockNotification(event EventType, d models.Dock) Notification {
	return Notification{
		ID:         uuid.NewString(),
		Event:      event,
		Dock:       &d,
		OccurredAt: time.Now().UTC(),
	}
}

// Reference returns the booking code, or "" for dock events.
func (n Notification) Reference() string {
	if n.Booking == nil {
		return ""
	}
	return n.Booking.Reference()
}

// Notifier delivers a notification to one outbound channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier stands in for the carrier messaging channel.
type LogNotifier struct {
	Location *time.Location
}

func (ln LogNotifier) Notify(_ context.Context, n Notification) error {
	if n.Event != EventBookingConfirmed || n.Booking == nil {
		utils.InfoLogger.WithFields(logrus.Fields{
			"event":     n.Event,
			"reference": n.Reference(),
		}).Debug("notification")
		return nil
	}

	loc := ln.Location
	if loc == nil {
		loc = time.UTC
	}
	utils.InfoLogger.Printf("NOTICE: Booking %s Confirmed for %s [Sent via WhatsApp]",
		n.Reference(), n.Booking.StartTime.In(loc).Format("2006-01-02 15:04:05"))
	return nil
}

// BoardNotifier pushes every event to the live dock board.
type BoardNotifier struct {
	Hub *board.Hub
}

func (bn BoardNotifier) Notify(_ context.Context, n Notification) error {
	if bn.Hub == nil {
		return nil
	}
	var data interface{}
	switch {
	case n.Booking != nil:
		data = payload{"reference": n.Reference(), "booking": n.Booking}
	case n.Dock != nil:
		data = payload{"dock": n.Dock}
	}
	bn.Hub.Broadcast(board.Message{Event: string(n.Event), Data: data})
	return nil
}

type payload = map[string]interface{}

// MultiNotifier fans out to every notifier and joins their failures.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", notifier, err))
		}
	}
	return errors.Join(errs...)
}
