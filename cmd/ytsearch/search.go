package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/use-agent/ytsearch/browser"
	"github.com/use-agent/ytsearch/search"
)

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Run one search and print the video ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			bcfg := a.cfg.Browser
			bcfg.HealthInterval = 0
			mgr, err := browser.Start(bcfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			id, err := search.New(a.cfg.Search, mgr).Search(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}
