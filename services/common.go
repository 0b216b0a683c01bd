package services

import (
	"fmt"
	"time"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// Clock returns the current instant. Services take one so tests can pin time.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

// EventSink accepts notifications without blocking the caller.
type EventSink interface {
	Enqueue(n Notification) bool
}

type discardSink struct{}

func (discardSink) Enqueue(Notification) bool { return false }

// Page is an offset/limit window over an ordered listing.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) normalize() (Page, error) {
	if p.Offset < 0 || p.Limit < 0 {
		return Page{}, fmt.Errorf("%w: skip and limit must not be negative", ErrValidation)
	}
	if p.Limit == 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p, nil
}
