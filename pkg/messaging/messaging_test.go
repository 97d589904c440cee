package messaging

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/matst80/securityapp/pkg/types"
)

func TestGetName(t *testing.T) {
	if name := getName("securityapp", LoginEventTopic); name != "securityapp_login_event" {
		t.Errorf("Expected securityapp_login_event, got %s", name)
	}
}

func TestDecodeLoginEvent(t *testing.T) {
	d := amqp.Delivery{Body: []byte(`{"userId":"u1","label":"office-pc","timestamp":"2024-05-01T10:00:00Z"}`)}
	event, err := Decode[types.LoginEvent](d)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if event.UserID != "u1" || event.Label != "office-pc" {
		t.Errorf("Unexpected event %+v", event)
	}
	if !event.Timestamp.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected timestamp %v", event.Timestamp)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode[types.LoginEvent](amqp.Delivery{Body: []byte("not json")}); err == nil {
		t.Error("Expected an error for invalid json")
	}
}

func TestRabbitConfigEnabled(t *testing.T) {
	if (RabbitConfig{}).Enabled() {
		t.Error("Expected empty config to be disabled")
	}
	if !(RabbitConfig{Url: "amqp://localhost"}).Enabled() {
		t.Error("Expected config with url to be enabled")
	}
}

type settlement struct {
	tag     uint64
	ack     bool
	requeue bool
}

type recordingAcknowledger struct {
	mu      sync.Mutex
	settled []settlement
}

func (a *recordingAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settled = append(a.settled, settlement{tag: tag, ack: true})
	return nil
}

func (a *recordingAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settled = append(a.settled, settlement{tag: tag, requeue: requeue})
	return nil
}

func (a *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *recordingAcknowledger) get() []settlement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]settlement(nil), a.settled...)
}

func TestSettle(t *testing.T) {
	acks := &recordingAcknowledger{}
	Settle(amqp.Delivery{Acknowledger: acks, DeliveryTag: 1}, nil)
	Settle(amqp.Delivery{Acknowledger: acks, DeliveryTag: 2}, errors.New("store down"))
	Settle(amqp.Delivery{Acknowledger: acks, DeliveryTag: 3, Redelivered: true}, errors.New("store down"))

	want := []settlement{{tag: 1, ack: true}, {tag: 2, requeue: true}, {tag: 3}}
	if got := acks.get(); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestListenSettlesWhenDone(t *testing.T) {
	acks := &recordingAcknowledger{}
	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: []byte(`{"userId":"u1","label":"a"}`)}
	msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: []byte("garbage")}
	msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 3, Body: []byte(`{"userId":"u2","label":"b"}`)}
	close(msgs)

	var pending []func(error)
	listen(msgs, LoginEventTopic, func(event types.LoginEvent, done func(error)) {
		pending = append(pending, done)
	})
	if got := acks.get(); !slices.Equal(got, []settlement{{tag: 2}}) {
		t.Fatalf("Expected only the undecodable message to be settled, got %v", got)
	}

	pending[1](errors.New("store down"))
	pending[0](nil)
	want := []settlement{{tag: 2}, {tag: 3, requeue: true}, {tag: 1, ack: true}}
	if got := acks.get(); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
