package messaging

import (
	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/common/jsoncompat"
)

// Consume reads the durable queue of the topic. Deliveries must be acked by
// the caller.
func Consume(ch *amqp.Channel, prefix string, topic ChangeTopic, prefetch int) (<-chan amqp.Delivery, error) {
	if err := DefineTopic(ch, prefix, topic); err != nil {
		return nil, err
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return nil, errors.Wrap(err, "set qos")
		}
	}
	return ch.Consume(
		getName(prefix, topic),
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
}

// Decode unmarshals a delivery body.
func Decode[V any](d amqp.Delivery) (V, error) {
	var v V
	if err := jsoncompat.Unmarshal(d.Body, &v); err != nil {
		return v, errors.Wrap(err, "decode message")
	}
	return v, nil
}

// Settle acks the delivery when err is nil. Otherwise the delivery is nacked
// and requeued unless it already was redelivered once.
func Settle(d amqp.Delivery, err error) {
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			log.Printf("could not ack message: %v", ackErr)
		}
		return
	}
	log.Printf("Error processing message: %v", err)
	if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
		log.Printf("could not nack message: %v", nackErr)
	}
}

// listen decodes deliveries until msgs is closed. Each decoded value is
// handed over with a done func that settles its delivery.
func listen[V any](msgs <-chan amqp.Delivery, topic ChangeTopic, handler func(v V, done func(error))) {
	for d := range msgs {
		v, err := Decode[V](d)
		if err != nil {
			log.Printf("Dropping message on %s: %v", topic, err)
			_ = d.Nack(false, false)
			continue
		}
		handler(v, func(err error) {
			Settle(d, err)
		})
	}
	log.Printf("listener for %s stopped", topic)
}

// ListenToTopic decodes every delivery of the topic and hands it to handler.
// Messages that cannot be decoded are dropped. A delivery stays unacked until
// its done func is called, a non nil error requeues it once. At most prefetch
// deliveries are outstanding, unsettled ones return to the queue when the
// channel closes.
func ListenToTopic[V any](ch *amqp.Channel, prefix string, topic ChangeTopic, prefetch int, handler func(v V, done func(error))) error {
	msgs, err := Consume(ch, prefix, topic, prefetch)
	if err != nil {
		return err
	}
	go listen(msgs, topic, handler)
	return nil
}
