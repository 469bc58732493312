package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Work with calendars and events",
}

var calListJSON bool

var calendarListCmd = &cobra.Command{
	Use:   "list",
	Short: "List calendars",
	RunE:  runCalendarList,
}

var (
	calEventsFrom string
	calEventsTo   string
	calEventsJSON bool
)

var calendarEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events (defaults to the current month)",
	RunE:  runCalendarEvents,
}

var calendarShowCmd = &cobra.Command{
	Use:   "show [calendar-guid] [event-guid]",
	Short: "Show the full detail of one event",
	Args:  cobra.ExactArgs(2),
	RunE:  runCalendarShow,
}

func init() {
	calendarListCmd.Flags().BoolVar(&calListJSON, "json", false, "output as JSON")

	calendarEventsCmd.Flags().StringVar(&calEventsFrom, "from", "", "range start (2006-01-02)")
	calendarEventsCmd.Flags().StringVar(&calEventsTo, "to", "", "range end (2006-01-02)")
	calendarEventsCmd.Flags().BoolVar(&calEventsJSON, "json", false, "output as JSON")

	calendarCmd.AddCommand(calendarListCmd)
	calendarCmd.AddCommand(calendarEventsCmd)
	calendarCmd.AddCommand(calendarShowCmd)
	rootCmd.AddCommand(calendarCmd)
}

func runCalendarList(cmd *cobra.Command, _ []string) error {
	if calendarService == nil {
		return errors.New("calendar service not configured")
	}

	calendars, err := calendarService.Calendars(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list calendars: %w", err)
	}

	if calListJSON {
		return printJSON(cmd, calendars)
	}
	if len(calendars) == 0 {
		cmd.Println("No calendars.")
		return nil
	}
	for _, c := range calendars {
		cmd.Printf("  [%s] %s\n", c.GUID, c.Title)
	}
	return nil
}

func runCalendarEvents(cmd *cobra.Command, _ []string) error {
	if calendarService == nil {
		return errors.New("calendar service not configured")
	}

	var from, to time.Time
	var err error
	if calEventsFrom != "" {
		if from, err = parseDate(calEventsFrom); err != nil {
			return err
		}
	}
	if calEventsTo != "" {
		if to, err = parseDate(calEventsTo); err != nil {
			return err
		}
	}

	events, err := calendarService.Events(context.Background(), from, to)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	if calEventsJSON {
		return printJSON(cmd, events)
	}
	if len(events) == 0 {
		cmd.Println("No events in range.")
		return nil
	}
	for _, e := range events {
		printEvent(cmd, e)
	}
	return nil
}

func runCalendarShow(cmd *cobra.Command, args []string) error {
	if calendarService == nil {
		return errors.New("calendar service not configured")
	}

	event, err := calendarService.EventDetail(context.Background(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to fetch event: %w", err)
	}

	cmd.Printf("%s\n", event.Title)
	cmd.Printf("  Calendar: %s\n", event.CalendarGUID)
	cmd.Printf("  Start:    %s\n", event.StartDate.Format(time.RFC1123))
	if event.EndDate != nil {
		cmd.Printf("  End:      %s\n", event.EndDate.Format(time.RFC1123))
	}
	if event.Location != "" {
		cmd.Printf("  Location: %s\n", event.Location)
	}
	if event.AllDay {
		cmd.Println("  All day")
	}
	return nil
}

func printEvent(cmd *cobra.Command, e domain.Event) {
	when := e.StartDate.Format("2006-01-02 15:04")
	if e.AllDay {
		when = e.StartDate.Format("2006-01-02") + " (all day)"
	}
	line := fmt.Sprintf("  %s  %s", when, e.Title)
	if e.Location != "" {
		line += " @ " + e.Location
	}
	cmd.Println(line)
}
