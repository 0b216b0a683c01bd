package services

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every input rule violation.
var ErrValidation = errors.New("validation error")

var (
	ErrInvalidPoFormat   = fmt.Errorf("%w: PO Number must start with %q", ErrValidation, poPrefix)
	ErrInvalidDuration   = fmt.Errorf("%w: invalid slot duration", ErrValidation)
	ErrInvalidStatus     = fmt.Errorf("%w: invalid booking status", ErrValidation)
	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", ErrValidation)
	ErrPONotVerified     = fmt.Errorf("%w: PO Number could not be verified", ErrValidation)
	ErrDockInactive      = fmt.Errorf("%w: dock is not active", ErrValidation)
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDockNotFound    = fmt.Errorf("dock %w", ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrDriverNotFound  = fmt.Errorf("driver %w", ErrNotFound)
)

var (
	ErrSlotConflict       = errors.New("time slot already booked")
	ErrDuplicateName      = errors.New("dock name already exists")
	ErrDockInUse          = errors.New("dock has upcoming bookings")
	ErrPhoneTaken         = errors.New("phone number already registered")
	ErrInvalidCredentials = errors.New("incorrect phone or password")
)
