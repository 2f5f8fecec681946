package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rounds",
	Short: "Rounds - field worker daily plan",
	Long:  `Rounds synthesizes a field worker's daily work plan from routine schedules, ad-hoc tasks and weather, and resolves which building the worker is at right now.`,
}

var (
	apiAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7640", "API server address")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(whereCmd)
	rootCmd.AddCommand(upcomingCmd)
	rootCmd.AddCommand(checkinCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
