package main

import (
	"encoding/json"
	"fmt"

	"github.com/fieldops/rounds/internal/models"
	"github.com/fieldops/rounds/internal/store"
	"github.com/spf13/cobra"
)

var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show the current building",
	RunE:  runWhere,
}

func runWhere(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/building/current")
	if err != nil {
		return err
	}

	var b models.BuildingSummary
	if err := json.Unmarshal(resp, &b); err != nil {
		return err
	}

	fmt.Printf("Building: %s\n", b.Name)
	fmt.Printf("ID:       %s\n", b.ID)
	if b.Address != "" {
		fmt.Printf("Address:  %s\n", b.Address)
	}
	fmt.Printf("Status:   %s\n", b.Status)
	return nil
}

var checkinCmd = &cobra.Command{
	Use:   "checkin [building-id]",
	Short: "Check in at a building",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckin,
}

func runCheckin(cmd *cobra.Command, args []string) error {
	resp, err := apiPost("/checkin", map[string]string{"building_id": args[0]})
	if err != nil {
		return err
	}

	var ci models.CheckIn
	if err := json.Unmarshal(resp, &ci); err != nil {
		return err
	}

	fmt.Printf("Checked in at %s until %s\n", ci.Building.Name, ci.ExpiresAt.Format("15:04"))
	return nil
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Clear the explicit check-in",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := apiDelete("/checkin"); err != nil {
			return err
		}
		fmt.Println("Checked out")
		return nil
	},
}

var seedDB string

var seedCmd = &cobra.Command{
	Use:   "seed [fixture.json]",
	Short: "Load a seed fixture into the database",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedDB, "db", "", "SQLite database path (required)")
	seedCmd.MarkFlagRequired("db")
}

func runSeed(cmd *cobra.Command, args []string) error {
	st, err := store.New(seedDB)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.LoadSeed(args[0]); err != nil {
		return err
	}
	fmt.Println("Seed loaded")
	return nil
}
