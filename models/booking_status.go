package models

import (
	"fmt"
	"strings"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending     BookingStatus = "Pending"
	StatusConfirmed   BookingStatus = "Confirmed"
	StatusArrived     BookingStatus = "Arrived"
	StatusLate        BookingStatus = "Late"
	StatusCompleted   BookingStatus = "Completed"
	StatusCancelled   BookingStatus = "Cancelled"
	StatusRescheduled BookingStatus = "Rescheduled"
)

var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:     {StatusConfirmed, StatusCancelled},
	StatusConfirmed:   {StatusArrived, StatusLate, StatusRescheduled, StatusCancelled},
	StatusLate:        {StatusArrived, StatusRescheduled, StatusCancelled},
	StatusRescheduled: {StatusConfirmed, StatusArrived, StatusLate, StatusCancelled},
	StatusArrived:     {StatusCompleted, StatusCancelled},
	StatusCompleted:   {},
	StatusCancelled:   {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether the strict lifecycle allows moving to target.
// Staying in the same status is always allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	if s == target {
		return true
	}
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	allowed, ok := validTransitions[s]
	return !ok || len(allowed) == 0
}

// Occupies reports whether a booking in this status holds its slot.
func (s BookingStatus) Occupies() bool {
	return s != StatusCancelled
}

func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus accepts the display value ("Confirmed") or the
// enumeration name ("CONFIRMED"), case-insensitively.
func ParseBookingStatus(s string) (BookingStatus, error) {
	for status := range validTransitions {
		if strings.EqualFold(string(status), strings.TrimSpace(s)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid booking status: %q", s)
}
