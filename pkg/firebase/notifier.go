package firebase

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/types"
)

// Notifier sends login notifications with Firebase Cloud Messaging.
type Notifier struct {
	client *messaging.Client
}

// LoginMessage builds the push sent to every device of the account.
func LoginMessage(account types.Account, record types.Record) *messaging.MulticastMessage {
	label := record.Label
	if label == "" {
		label = "An unknown computer"
	}
	when := record.Timestamp.UTC().Format(time.RFC3339)
	return &messaging.MulticastMessage{
		Tokens: account.DeviceTokens,
		Notification: &messaging.Notification{
			Title: "New login",
			Body:  fmt.Sprintf("%s signed in at %s", label, when),
		},
		Data: map[string]string{
			"type":      "login",
			"label":     record.Label,
			"timestamp": when,
		},
	}
}

func (n *Notifier) NotifyLogin(ctx context.Context, account types.Account, record types.Record) error {
	if len(account.DeviceTokens) == 0 {
		return nil
	}
	response, err := n.client.SendEachForMulticast(ctx, LoginMessage(account, record))
	if err != nil {
		return errors.Wrap(err, "send login notification")
	}
	for i, r := range response.Responses {
		if !r.Success {
			log.WithField("uid", account.ID).Printf("failed to notify device %d: %v", i, r.Error)
		}
	}
	log.Printf("sent %d of %d login notifications for %s", response.SuccessCount, len(account.DeviceTokens), account.ID)
	return nil
}
