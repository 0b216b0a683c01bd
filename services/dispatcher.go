package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dock-scheduler/utils"
)

const deliveryTimeout = 10 * time.Second

// Dispatcher delivers notifications on a single background worker so that
// admission never waits on outbound channels.
type Dispatcher struct {
	notifier Notifier
	queue    chan Notification

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

func NewDispatcher(n Notifier, size int) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		notifier: n,
		queue:    make(chan Notification, size),
		done:     make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	go func() {
		defer close(d.done)
		for n := range d.queue {
			d.deliver(n)
		}
	}()
}

// Enqueue never blocks. It reports false when the queue is full or stopped.
func (d *Dispatcher) Enqueue(n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.queue <- n:
		return true
	default:
		utils.ErrorLogger.WithFields(logrus.Fields{
			"event":     n.Event,
			"reference": n.Reference(),
		}).Warn("notification queue full, dropping")
		return false
	}
}

// Stop refuses new notifications and waits for queued ones to be delivered.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if started {
		<-d.done
	}
}

func (d *Dispatcher) deliver(n Notification) {
	defer func() {
		if r := recover(); r != nil {
			utils.ErrorLogger.Printf("notifier panic on %s: %v", n.Event, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := d.notifier.Notify(ctx, n); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"event":     n.Event,
			"reference": n.Reference(),
		}).Error(fmt.Sprintf("notification delivery failed: %v", err))
	}
}
