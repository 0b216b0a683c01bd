package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes booking events to a topic exchange, routed by event.
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	mu       sync.Mutex
}

type bookingEvent struct {
	ID          string    `json:"id"`
	Event       EventType `json:"event"`
	Reference   string    `json:"reference"`
	BookingID   uint      `json:"booking_id"`
	DockID      uint      `json:"dock_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Status      string    `json:"status"`
	CarrierName string    `json:"carrier_name"`
	DriverPhone string    `json:"driver_phone,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

func (an *AMQPNotifier) Notify(ctx context.Context, n Notification) error {
	if n.Booking == nil {
		return nil
	}
	body, err := json.Marshal(bookingEvent{
		ID:          n.ID,
		Event:       n.Event,
		Reference:   n.Reference(),
		BookingID:   n.Booking.ID,
		DockID:      n.Booking.DockID,
		Start:       n.Booking.StartTime,
		End:         n.Booking.EndTime,
		Status:      n.Booking.Status.String(),
		CarrierName: n.Booking.CarrierName,
		DriverPhone: n.Booking.Phone(),
		OccurredAt:  n.OccurredAt,
	})
	if err != nil {
		return err
	}

	// amqp.Channel tidak aman dipakai bersamaan
	an.mu.Lock()
	defer an.mu.Unlock()
	return an.ch.PublishWithContext(ctx, an.exchange, string(n.Event), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Timestamp:    n.OccurredAt,
		Body:         body,
	})
}

func (an *AMQPNotifier) Close() error {
	if an.ch != nil {
		_ = an.ch.Close()
	}
	if an.conn != nil {
		return an.conn.Close()
	}
	return nil
}
