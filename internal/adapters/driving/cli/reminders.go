package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/services/reminders"
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Work with reminder lists and reminders",
}

var (
	remListCollection string
	remListJSON       bool
)

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reminders, grouped by list",
	RunE:  runRemindersList,
}

var remUpcomingDays int

var remindersUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Show reminders due within the coming days",
	RunE:  runRemindersUpcoming,
}

var (
	remAddList        string
	remAddDescription string
	remAddDue         string
	remAddPriority    int
	remAddTags        []string
)

var remindersAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a reminder",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemindersAdd,
}

var remindersCompleteCmd = &cobra.Command{
	Use:   "complete [guid]...",
	Short: "Mark one or more reminders as completed",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemindersComplete,
}

var remMoveTarget string

var remindersMoveCmd = &cobra.Command{
	Use:   "move [guid]...",
	Short: "Move one or more reminders to another list",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemindersMove,
}

var (
	remUpdateTitle       string
	remUpdateDescription string
	remUpdateDue         string
	remUpdatePriority    int
	remUpdateList        string
	remUpdateTags        []string
)

var remindersUpdateCmd = &cobra.Command{
	Use:   "update [guid]",
	Short: "Update fields of a reminder",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemindersUpdate,
}

func init() {
	remindersListCmd.Flags().StringVar(&remListCollection, "list", "", "restrict to one reminder list")
	remindersListCmd.Flags().BoolVar(&remListJSON, "json", false, "output as JSON")

	remindersUpcomingCmd.Flags().IntVar(&remUpcomingDays, "days", 7, "look-ahead window in days")

	remindersAddCmd.Flags().StringVar(&remAddList, "list", "", "target list (defaults to the first list)")
	remindersAddCmd.Flags().StringVar(&remAddDescription, "description", "", "description text")
	remindersAddCmd.Flags().StringVar(&remAddDue, "due", "", "due date (2006-01-02 or \"2006-01-02 15:04\")")
	remindersAddCmd.Flags().IntVar(&remAddPriority, "priority", 0, "priority 0 (none) to 4 (urgent)")
	remindersAddCmd.Flags().StringSliceVar(&remAddTags, "tag", nil, "tag (repeatable)")

	remindersMoveCmd.Flags().StringVar(&remMoveTarget, "to", "", "target list title")
	_ = remindersMoveCmd.MarkFlagRequired("to")

	remindersUpdateCmd.Flags().StringVar(&remUpdateTitle, "title", "", "new title")
	remindersUpdateCmd.Flags().StringVar(&remUpdateDescription, "description", "", "new description")
	remindersUpdateCmd.Flags().StringVar(&remUpdateDue, "due", "", "new due date (2006-01-02 or \"2006-01-02 15:04\")")
	remindersUpdateCmd.Flags().IntVar(&remUpdatePriority, "priority", -1, "new priority 0 (none) to 4 (urgent)")
	remindersUpdateCmd.Flags().StringVar(&remUpdateList, "list", "", "move to this list")
	remindersUpdateCmd.Flags().StringSliceVar(&remUpdateTags, "tag", nil, "replace tags (repeatable)")

	remindersCmd.AddCommand(remindersListCmd)
	remindersCmd.AddCommand(remindersUpcomingCmd)
	remindersCmd.AddCommand(remindersAddCmd)
	remindersCmd.AddCommand(remindersCompleteCmd)
	remindersCmd.AddCommand(remindersMoveCmd)
	remindersCmd.AddCommand(remindersUpdateCmd)
	rootCmd.AddCommand(remindersCmd)
}

func runRemindersList(cmd *cobra.Command, _ []string) error {
	if remindersService == nil {
		return errors.New("reminders service not configured")
	}
	ctx := context.Background()

	lists, err := remindersService.Lists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reminders: %w", err)
	}

	type listing struct {
		List      domain.ReminderList `json:"list"`
		Reminders []domain.Reminder   `json:"reminders"`
	}
	var out []listing
	for _, l := range lists {
		if remListCollection != "" && l.Title != remListCollection {
			continue
		}
		rs, err := remindersService.ByCollection(ctx, l.Title)
		if err != nil {
			return err
		}
		out = append(out, listing{List: l, Reminders: rs})
	}
	if remListCollection != "" && len(out) == 0 {
		return fmt.Errorf("no reminder list named %q: %w", remListCollection, domain.ErrNotFound)
	}

	if remListJSON {
		return printJSON(cmd, out)
	}
	for _, l := range out {
		cmd.Printf("%s (%d)\n", l.List.Title, len(l.Reminders))
		for _, r := range l.Reminders {
			printReminder(cmd, r)
		}
		cmd.Println()
	}
	return nil
}

func runRemindersUpcoming(cmd *cobra.Command, _ []string) error {
	if remindersService == nil {
		return errors.New("reminders service not configured")
	}

	due, err := remindersService.Upcoming(context.Background(), remUpcomingDays)
	if err != nil {
		return fmt.Errorf("failed to fetch upcoming reminders: %w", err)
	}
	if len(due) == 0 {
		cmd.Printf("Nothing due in the next %d days.\n", remUpcomingDays)
		return nil
	}
	for list, rs := range due {
		cmd.Printf("%s\n", list)
		for _, r := range rs {
			printReminder(cmd, r)
		}
	}
	return nil
}

func runRemindersAdd(cmd *cobra.Command, args []string) error {
	if remindersService == nil {
		return errors.New("reminders service not configured")
	}

	in := reminders.NewReminder{
		Title:       args[0],
		Description: remAddDescription,
		Collection:  remAddList,
		Priority:    remAddPriority,
		Tags:        remAddTags,
	}
	if remAddDue != "" {
		due, err := parseDate(remAddDue)
		if err != nil {
			return err
		}
		in.DueDate = &due
	}

	guid, err := remindersService.Create(context.Background(), in)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	cmd.Printf("Created reminder %s\n", guid)
	return nil
}

func runRemindersComplete(cmd *cobra.Command, args []string) error {
	if remindersService == nil {
		return errors.New("reminders service not configured")
	}
	ctx := context.Background()

	if len(args) == 1 {
		if err := remindersService.Complete(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to complete reminder: %w", err)
		}
		cmd.Printf("Completed %s\n", args[0])
		return nil
	}

	results, err := remindersService.BatchComplete(ctx, args)
	if err != nil {
		return fmt.Errorf("failed to complete reminders: %w", err)
	}
	reportBatch(cmd, "Completed", results)
	return nil
}

func runRemindersMove(cmd *cobra.Command, args []string) error {
	if remindersService == nil {
		return errors.New("reminders service not configured")
	}
	ctx := context.Background()

	if len(args) == 1 {
		if err := remindersService.Move(ctx, args[0], remMoveTarget); err != nil {
			return fmt.Errorf("failed to move reminder: %w", err)
		}
		cmd.Printf("Moved %s to %s\n", args[0], remMoveTarget)
		return nil
	}

	results, err := remindersService.BatchMove(ctx, args, remMoveTarget)
	if err != nil {
		return fmt.Errorf("failed to move reminders: %w", err)
	}
	reportBatch(cmd, "Moved", results)
	return nil
}

func runRemindersUpdate(cmd *cobra.Command, args []string) error {
	if remindersService == nil {
		return errors.New("reminders service not configured")
	}

	var patch reminders.Patch
	if cmd.Flags().Changed("title") {
		patch.Title = &remUpdateTitle
	}
	if cmd.Flags().Changed("description") {
		patch.Description = &remUpdateDescription
	}
	if cmd.Flags().Changed("priority") {
		patch.Priority = &remUpdatePriority
	}
	if cmd.Flags().Changed("list") {
		patch.Collection = &remUpdateList
	}
	if cmd.Flags().Changed("tag") {
		patch.Tags = remUpdateTags
	}
	if remUpdateDue != "" {
		due, err := parseDate(remUpdateDue)
		if err != nil {
			return err
		}
		patch.DueDate = &due
	}

	if err := remindersService.Update(context.Background(), args[0], patch); err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	cmd.Printf("Updated %s\n", args[0])
	return nil
}

func printReminder(cmd *cobra.Command, r domain.Reminder) {
	line := fmt.Sprintf("  [%s] %s", r.GUID, r.Title)
	if r.DueDate != nil {
		line += " (due " + r.DueDate.Format("2006-01-02 15:04") + ")"
	}
	if r.Priority > domain.PriorityNone {
		line += fmt.Sprintf(" !%d", r.Priority)
	}
	cmd.Println(line)
}

func reportBatch(cmd *cobra.Command, verb string, results map[string]bool) {
	for guid, ok := range results {
		if ok {
			cmd.Printf("%s %s\n", verb, guid)
		} else {
			cmd.Printf("Skipped %s (unknown)\n", guid)
		}
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// parseDate accepts a date with optional time of day.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q (want 2006-01-02 or \"2006-01-02 15:04\"): %w", s, domain.ErrInvalidInput)
}
