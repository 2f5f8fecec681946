package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fieldops/rounds/internal/models"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the weekly plan",
	RunE:  runPlan,
}

var planToday bool

func init() {
	planCmd.Flags().BoolVar(&planToday, "today", false, "Show only today's schedule")
}

func runPlan(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/plan")
	if err != nil {
		return err
	}

	var plan models.DailyPlan
	if err := json.Unmarshal(resp, &plan); err != nil {
		return err
	}

	days := plan.Week.Days
	if planToday && len(days) > 0 {
		days = days[:1]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, day := range days {
		fmt.Fprintf(w, "%s\t(%.1f h)\t\n", day.Date.Format("Mon Jan 2"), day.TotalHours)
		if len(day.Items) == 0 {
			fmt.Fprintln(w, "  -\tnothing scheduled\t")
		}
		for _, e := range day.Items {
			building := e.BuildingID
			if building == "" {
				building = "(unattributed)"
			}
			count := ""
			if e.TaskCount > 1 {
				count = fmt.Sprintf("x%d", e.TaskCount)
			}
			fmt.Fprintf(w, "  %s-%s\t%s\t%s\t%s\n",
				e.StartTime.Format("15:04"), e.EndTime.Format("15:04"), e.Title, building, count)
		}
	}
	w.Flush()
	return nil
}

var upcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Show the weather-ordered task list",
	RunE:  runUpcoming,
}

func runUpcoming(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/upcoming")
	if err != nil {
		return err
	}

	var view struct {
		Upcoming        []models.Task       `json:"upcoming"`
		DeferredOutdoor []models.Task       `json:"deferred_outdoor"`
		DeferOutdoor    bool                `json:"defer_outdoor"`
		Suggestions     []models.Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(resp, &view); err != nil {
		return err
	}

	if view.DeferOutdoor {
		fmt.Println("Outdoor work is deferred for weather.")
	}

	if len(view.Upcoming) == 0 {
		fmt.Println("No upcoming tasks")
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "URGENCY\tTITLE\tDUE\tBUILDING")
		for _, t := range view.Upcoming {
			due := ""
			if t.DueTime != nil {
				due = t.DueTime.Format("15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Urgency, t.Title, due, t.BuildingID)
		}
		w.Flush()
	}

	for _, t := range view.DeferredOutdoor {
		fmt.Printf("deferred: %s\n", t.Title)
	}
	for _, s := range view.Suggestions {
		fmt.Printf("suggested: %s (%s)\n", s.Title, s.Rationale)
	}
	return nil
}
