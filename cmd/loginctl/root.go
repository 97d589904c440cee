package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/matst80/securityapp/pkg/backend"
	"github.com/matst80/securityapp/pkg/config"
	"github.com/matst80/securityapp/pkg/messaging"
	"github.com/matst80/securityapp/pkg/records"
	"github.com/matst80/securityapp/pkg/types"
)

// deps opens the services a command needs; tests replace them.
type deps struct {
	aggregator func(ctx context.Context) (*records.Aggregator, func(), error)
	publish    func(ctx context.Context, event types.LoginEvent) error
}

func defaultDeps() deps {
	return deps{
		aggregator: func(ctx context.Context) (*records.Aggregator, func(), error) {
			cfg, err := config.Load(".env", ".env.local")
			if err != nil {
				return nil, nil, err
			}
			b, err := backend.Open(ctx, cfg)
			if err != nil {
				return nil, nil, err
			}
			return b.Aggregator(cfg.Schema), func() { b.Close(context.WithoutCancel(ctx)) }, nil
		},
		publish: func(ctx context.Context, event types.LoginEvent) error {
			cfg, err := config.Load(".env", ".env.local")
			if err != nil {
				return err
			}
			if !cfg.Rabbit.Enabled() {
				return errors.New("RABBIT_URL is not set")
			}
			conn, err := amqp.Dial(cfg.Rabbit.Url)
			if err != nil {
				return errors.Wrap(err, "connect to rabbitmq")
			}
			defer conn.Close()
			ch, err := conn.Channel()
			if err != nil {
				return errors.Wrap(err, "open channel")
			}
			if err := messaging.DefineTopic(ch, cfg.Rabbit.Prefix, messaging.LoginEventTopic); err != nil {
				_ = ch.Close()
				return err
			}
			_ = ch.Close()
			return messaging.SendChange(conn, cfg.Rabbit.Prefix, messaging.LoginEventTopic, event)
		},
	}
}

func newRootCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "loginctl",
		Short:        "Inspect and report computer logins",
		SilenceUsage: true,
	}
	cmd.AddCommand(newRecordsCmd(d), newAccountCmd(d), newPublishCmd(d))
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
