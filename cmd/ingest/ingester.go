package main

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/types"
)

var (
	eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "securityapp_ingest_events_total",
		Help: "The total number of login events processed",
	})
	eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "securityapp_ingest_failures_total",
		Help: "The total number of login events that could not be stored",
	})
)

type RecordWriter interface {
	AddRecord(ctx context.Context, session types.Session, record types.Record) (types.Account, error)
}

// Ingester stores login events and notifies the account's devices.
type Ingester struct {
	records  RecordWriter
	notifier types.LoginNotifier
	now      func() time.Time
}

func NewIngester(records RecordWriter, notifier types.LoginNotifier) *Ingester {
	return &Ingester{records: records, notifier: notifier, now: time.Now}
}

// PendingEvent is a queued login event. Done is called once the event is
// stored, with the error when it could not be.
type PendingEvent struct {
	Event types.LoginEvent
	Done  func(error)
}

func (i *Ingester) Process(items []PendingEvent) {
	ctx := context.Background()
	for _, item := range items {
		err := i.handle(ctx, item.Event)
		if errors.Is(err, types.ErrAccountNotFound) {
			// retrying will not create the account
			err = nil
		}
		if item.Done != nil {
			item.Done(err)
		}
	}
}

func (i *Ingester) handle(ctx context.Context, event types.LoginEvent) error {
	logger := log.WithField("uid", event.UserID)
	record := event.Record()
	if !record.HasTimestamp() {
		record.Timestamp = i.now()
	}
	account, err := i.records.AddRecord(ctx, types.NewSession(event.UserID), record)
	if err != nil {
		eventsFailed.Inc()
		logger.Printf("could not store login event: %v", err)
		return err
	}
	eventsProcessed.Inc()
	if i.notifier == nil {
		return nil
	}
	if err := i.notifier.NotifyLogin(ctx, account, record); err != nil {
		logger.Printf("could not notify login: %v", err)
	}
	return nil
}
