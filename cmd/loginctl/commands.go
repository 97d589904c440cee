package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/matst80/securityapp/pkg/types"
	"github.com/matst80/securityapp/pkg/view"
)

func newRecordsCmd(d deps) *cobra.Command {
	var (
		order  string
		filter string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "records <uid>",
		Short: "Print the login records of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ordering, err := types.ParseOrdering(order)
			if err != nil {
				return err
			}
			aggregator, done, err := d.aggregator(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			found := view.Filter(aggregator.FetchOrdering(cmd.Context(), types.NewSession(args[0]), ordering), filter)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), found)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tCOMPUTER")
			for _, r := range found {
				at := "-"
				if r.HasTimestamp() {
					at = r.Timestamp.Local().Format(time.DateTime)
				}
				fmt.Fprintf(w, "%s\t%s\n", at, r.Label)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&order, "order", "default", "default, time-asc, time-desc, label-asc or label-desc")
	cmd.Flags().StringVar(&filter, "filter", "", "Only show computers whose name contains this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print json")
	return cmd
}

func newAccountCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "account <uid>",
		Short: "Print an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aggregator, done, err := d.aggregator(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			account := aggregator.FetchAccount(cmd.Context(), types.NewSession(args[0]))
			if account.ID == "" {
				return fmt.Errorf("no account for %s", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), account)
		},
	}
}

func newPublishCmd(d deps) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "publish <uid> <computer>",
		Short: "Publish a login event for an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			event := types.LoginEvent{UserID: args[0], Label: args[1]}
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				event.Timestamp = t
			}
			if err := d.publish(cmd.Context(), event); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published login of %q for %s\n", event.Label, event.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Login time (RFC3339), defaults to when the event is stored")
	return cmd
}
