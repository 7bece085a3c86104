package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"unistay/internal/models"
)

// Event is the envelope published for booking/payment lifecycle changes.
// Events are observability-only; nothing consumes them to drive state.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Producer publishes lifecycle events. A nil *Producer is valid and turns
// publishing into a no-op, so the service runs without Kafka.
type Producer struct {
	bookings *kafka.Writer
	payments *kafka.Writer
}

func NewProducer(brokers []string, bookingTopic, paymentTopic string) *Producer {
	return &Producer{
		bookings: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   bookingTopic,
		}),
		payments: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   paymentTopic,
		}),
	}
}

func (p *Producer) publish(w *kafka.Writer, key, eventType string, payload interface{}) error {
	if p == nil {
		return nil
	}
	value, err := json.Marshal(Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return err
	}
	return w.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) PublishBookingCreated(b models.Booking) error {
	if p == nil {
		return nil
	}
	return p.publish(p.bookings, b.ID, "booking.created", b)
}

func (p *Producer) PublishBookingStatusChanged(b models.Booking) error {
	if p == nil {
		return nil
	}
	return p.publish(p.bookings, b.ID, "booking.status_changed", b)
}

func (p *Producer) PublishPaymentCompleted(pay models.Payment) error {
	if p == nil {
		return nil
	}
	return p.publish(p.payments, pay.ID, "payment.completed", pay)
}

func (p *Producer) PublishPaymentRefunded(pay models.Payment) error {
	if p == nil {
		return nil
	}
	return p.publish(p.payments, pay.ID, "payment.refunded", pay)
}

// Close flushes and closes the underlying writers.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	if err := p.bookings.Close(); err != nil {
		return err
	}
	return p.payments.Close()
}
