// Package notify turns ride events into passenger notifications on the
// message broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"dispatch-service/internal/events"
	"dispatch-service/internal/rides"
	"dispatch-service/pkg/kafka"
)

// Publisher sends one notification with a routing key (RabbitMQ in
// production).
type Publisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
}

// Subscriber starts a background consumer of one topic.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, groupID string, handler func([]byte) error)
}

// Notification is the message body on the notifications exchange.
type Notification struct {
	Event       string `json:"event"`
	RideID      string `json:"ride_id"`
	PassengerID string `json:"passenger_id"`
	DriverID    string `json:"driver_id,omitempty"`
	Status      string `json:"status,omitempty"`
	Message     string `json:"message"`
	Rating      int    `json:"rating,omitempty"`
	At          string `json:"at"`
}

// RoutingKey addresses passenger-facing notifications by event name.
func RoutingKey(event string) string { return "passenger." + event }

// Notifier forwards ride status changes and feedback to the broker.
type Notifier struct {
	events Subscriber
	pub    Publisher
}

func NewNotifier(events Subscriber, pub Publisher) *Notifier {
	return &Notifier{events: events, pub: pub}
}

// Start consumes both topics in the background until ctx is cancelled.
func (n *Notifier) Start(ctx context.Context) {
	n.events.Subscribe(ctx, kafka.TopicRideStatusChanged, "notify-group", func(data []byte) error {
		var ev events.RideStatusChangedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		return n.StatusChanged(ctx, ev)
	})
	n.events.Subscribe(ctx, kafka.TopicRideFeedback, "notify-group", func(data []byte) error {
		var ev events.FeedbackSubmittedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		return n.FeedbackSubmitted(ctx, ev)
	})
}

func (n *Notifier) StatusChanged(ctx context.Context, ev events.RideStatusChangedEvent) error {
	status := rides.Status(ev.To)
	return n.send(ctx, Notification{
		Event:       ev.To,
		RideID:      ev.RideID,
		PassengerID: ev.PassengerID,
		DriverID:    ev.DriverID,
		Status:      ev.To,
		Message:     status.Label(),
		At:          ev.ChangedAt,
	})
}

func (n *Notifier) FeedbackSubmitted(ctx context.Context, ev events.FeedbackSubmittedEvent) error {
	return n.send(ctx, Notification{
		Event:       "feedback_received",
		RideID:      ev.RideID,
		PassengerID: ev.PassengerID,
		DriverID:    ev.DriverID,
		Message:     fmt.Sprintf("Thanks for rating your ride %d/5", ev.Rating),
		Rating:      ev.Rating,
		At:          ev.SubmittedAt,
	})
}

func (n *Notifier) send(ctx context.Context, msg Notification) error {
	key := RoutingKey(msg.Event)
	if err := n.pub.Publish(ctx, key, msg); err != nil {
		log.Printf("[notify] publish %s for ride %s: %v", key, msg.RideID, err)
		return err
	}
	return nil
}

// LogPublisher stands in for the broker when none is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, routingKey string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	log.Printf("[notify] %s %s", routingKey, data)
	return nil
}
