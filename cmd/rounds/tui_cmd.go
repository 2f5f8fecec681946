package main

import (
	"github.com/fieldops/rounds/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive plan viewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.New(apiAddr).Run()
	},
}
