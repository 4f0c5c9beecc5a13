package main

import (
	"github.com/spf13/cobra"

	"github.com/rickgao/homepage/internal/model"
)

func newViewsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "Page view log",
	}

	total := &cobra.Command{
		Use:   "total",
		Short: "Print the total number of recorded visits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.openEngage(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := svc.Views.Total(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "%d\n", n)
			return nil
		},
	}

	var pv model.PageView
	record := &cobra.Command{
		Use:   "record <path>",
		Short: "Record a visit to a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.openEngage(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			pv.PageURL = a.cfg.Site.URL + args[0]
			return svc.Views.Record(cmd.Context(), pv)
		},
	}
	record.Flags().StringVar(&pv.PageTitle, "title", "", "page title")
	record.Flags().StringVar(&pv.Referrer, "referrer", "", "referring URL")
	record.Flags().StringVar(&pv.UserAgent, "user-agent", "", "visitor user agent, used to derive the device type")

	cmd.AddCommand(total, record)
	return cmd
}
